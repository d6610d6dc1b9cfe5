package models

import "time"

const EventMarkupProgressed = "markup.progressed"

// ProgressEvent is published after a confirmed submission. It carries the new
// position only; verdict contents are never forwarded.
type ProgressEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	SessionID string    `json:"session_id"`
	Task      TaskType  `json:"task"`
	Position  int       `json:"position"`
	Total     int       `json:"total"`
	Exhausted bool      `json:"exhausted"`
	Timestamp time.Time `json:"timestamp"`
}

// DatasetRefreshMessage is consumed from the dataset refresh queue.
// Task is "search", "matching" or "all".
type DatasetRefreshMessage struct {
	Task string `json:"task"`
}

// SubmitVerdictRequest is the payload for POST /markup/:task.
type SubmitVerdictRequest struct {
	// Position is the progress value the form was rendered at.
	Position *int     `json:"position" validate:"required,gte=0"`
	Category string   `json:"category" validate:"omitempty,max=32"`
	Flags    []string `json:"flags" validate:"max=8,dive,required,max=32"`
}
