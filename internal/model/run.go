package model

import "time"

// RunStatus tracks a classification batch through its lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one persisted classification batch.
type Run struct {
	ID       string    `json:"id"`
	Seed     string    `json:"seed"`
	Language string    `json:"language"`
	Country  string    `json:"country"`
	Status   RunStatus `json:"status"`

	Stats *BatchStats `json:"stats,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
