package models

import "fmt"

// TaskType identifies one of the two independent labeling workflows.
type TaskType string

const (
	TaskSearch   TaskType = "search"
	TaskMatching TaskType = "matching"
)

// Category is the single-choice part of a verdict.
type Category string

const (
	CategoryExact     Category = "exact"
	CategoryPartial   Category = "partial"
	CategoryUnratable Category = "unratable"
	CategoryUseless   Category = "useless"

	CategoryMatch        Category = "match"
	CategoryNoMatch      Category = "no_match"
	CategoryPartialMatch Category = "partial_match"
)

// Flag is an independent boolean marker attached to a verdict.
type Flag string

const (
	FlagUsedItem         Flag = "used_item"
	FlagCounterfeit      Flag = "counterfeit"
	FlagCardMistake      Flag = "card_mistake"
	FlagInsufficientData Flag = "insufficient_data"
)

// TaskDefinition describes what a labeler may answer for a task.
type TaskDefinition struct {
	Type        TaskType   `json:"type"`
	DisplayName string     `json:"display_name"`
	Question    string     `json:"question"`
	Categories  []Category `json:"categories"`
	Flags       []Flag     `json:"flags"`
	// ExhaustedNotice is shown once every record of the task has been labeled.
	ExhaustedNotice string `json:"exhausted_notice"`
}

var taskDefinitions = map[TaskType]TaskDefinition{
	TaskSearch: {
		Type:            TaskSearch,
		DisplayName:     "search labeling",
		Question:        "How well does this product match the query?",
		Categories:      []Category{CategoryExact, CategoryPartial, CategoryUnratable, CategoryUseless},
		Flags:           []Flag{FlagUsedItem, FlagCounterfeit, FlagCardMistake},
		ExhaustedNotice: "All search markup data has been labeled. Restart the session to repeat the cycle.",
	},
	TaskMatching: {
		Type:            TaskMatching,
		DisplayName:     "matching labeling",
		Question:        "How closely do these two products match?",
		Categories:      []Category{CategoryMatch, CategoryNoMatch, CategoryPartialMatch},
		Flags:           []Flag{FlagUsedItem, FlagCounterfeit, FlagCardMistake, FlagInsufficientData},
		ExhaustedNotice: "All matching markup data has been labeled. Restart the session to repeat the cycle.",
	},
}

// AllTasks returns the task types in display order.
func AllTasks() []TaskType {
	return []TaskType{TaskSearch, TaskMatching}
}

// ParseTaskType converts a path or message value into a TaskType.
func ParseTaskType(s string) (TaskType, error) {
	t := TaskType(s)
	if _, ok := taskDefinitions[t]; !ok {
		return "", fmt.Errorf("unknown task type %q", s)
	}
	return t, nil
}

// Definition returns the task's enumeration and flag set.
func (t TaskType) Definition() TaskDefinition {
	return taskDefinitions[t]
}

// AllowsCategory reports whether c belongs to the task's enumeration.
func (t TaskType) AllowsCategory(c Category) bool {
	for _, allowed := range taskDefinitions[t].Categories {
		if allowed == c {
			return true
		}
	}
	return false
}

// AllowsFlag reports whether f belongs to the task's flag set.
func (t TaskType) AllowsFlag(f Flag) bool {
	for _, allowed := range taskDefinitions[t].Flags {
		if allowed == f {
			return true
		}
	}
	return false
}
