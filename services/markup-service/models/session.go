package models

import "time"

// Session holds the progress counters owned by one labeler session.
// Each counter is the number of records of that task already labeled and
// therefore the index of the next unlabeled record.
type Session struct {
	ID               string    `json:"id"`
	SearchProgress   int       `json:"search_progress"`
	MatchingProgress int       `json:"matching_progress"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Progress returns the counter for task.
func (s *Session) Progress(task TaskType) int {
	if s == nil {
		return 0
	}
	switch task {
	case TaskSearch:
		return s.SearchProgress
	case TaskMatching:
		return s.MatchingProgress
	}
	return 0
}

// SetProgress overwrites the counter for task.
func (s *Session) SetProgress(task TaskType, v int) {
	switch task {
	case TaskSearch:
		s.SearchProgress = v
	case TaskMatching:
		s.MatchingProgress = v
	}
}

// Stats is the read-only summary shown in the statistics widget.
type Stats struct {
	Search   int `json:"search"`
	Matching int `json:"matching"`
	Total    int `json:"total"`
}

// Step is everything a presentation layer needs to render one labeling turn.
type Step[R any] struct {
	Task      TaskType `json:"task"`
	Position  int      `json:"position"`
	Total     int      `json:"total"`
	Remaining int      `json:"remaining"`
	Record    *R       `json:"record,omitempty"`
	Exhausted bool     `json:"exhausted"`
	Notice    string   `json:"notice,omitempty"`
}

// SearchStep and MatchingStep are the concrete steps served over HTTP.
type (
	SearchStep   = Step[SearchRecord]
	MatchingStep = Step[MatchingRecord]
)
