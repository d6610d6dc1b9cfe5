package models

import (
	"errors"
	"fmt"
)

var ErrCategoryRequired = errors.New("category is required")

// Verdict is the pending selection collected for the active record.
// It is never stored; it only gates the progress increment.
type Verdict struct {
	Category Category `json:"category"`
	Flags    []Flag   `json:"flags"`
}

// Normalize checks the verdict against the task's enumerations and returns a copy
// with duplicate flags collapsed, ordered as the task defines them.
func (v Verdict) Normalize(task TaskType, requireCategory bool) (Verdict, error) {
	if v.Category == "" {
		if requireCategory {
			return Verdict{}, ErrCategoryRequired
		}
	} else if !task.AllowsCategory(v.Category) {
		return Verdict{}, fmt.Errorf("category %q is not valid for %s task", v.Category, task)
	}

	seen := make(map[Flag]bool, len(v.Flags))
	for _, f := range v.Flags {
		if !task.AllowsFlag(f) {
			return Verdict{}, fmt.Errorf("flag %q is not valid for %s task", f, task)
		}
		seen[f] = true
	}

	out := Verdict{Category: v.Category, Flags: []Flag{}}
	for _, f := range task.Definition().Flags {
		if seen[f] {
			out.Flags = append(out.Flags, f)
		}
	}
	return out, nil
}

// HasFlag reports whether f is set.
func (v Verdict) HasFlag(f Flag) bool {
	for _, have := range v.Flags {
		if have == f {
			return true
		}
	}
	return false
}
