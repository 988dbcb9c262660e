package domain

import "time"

// ResponseStatus tracks the lifecycle of one provider invocation.
// Transitions are one-directional: PROCESSING ends in COMPLETED or FAILED
// and never moves back.
type ResponseStatus string

const (
	StatusPending    ResponseStatus = "PENDING"
	StatusProcessing ResponseStatus = "PROCESSING"
	StatusCompleted  ResponseStatus = "COMPLETED"
	StatusFailed     ResponseStatus = "FAILED"
)

// Terminal reports whether the status is a final one.
func (s ResponseStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// LLMResponse is the audit/result record for one invocation of the external
// language-model provider. TaskID is nil for standalone prompt processing.
type LLMResponse struct {
	ID        string         `json:"id"`
	TaskID    *string        `json:"taskId"`
	Prompt    string         `json:"prompt"`
	Response  string         `json:"response"`
	Model     string         `json:"model"`
	Tokens    *int           `json:"tokens"`
	Cost      *float64       `json:"cost"`
	Status    ResponseStatus `json:"status"`
	Error     *string        `json:"error"`
	CreatedAt time.Time      `json:"createdAt"`
	Task      *Task          `json:"task,omitempty"`
}

// BelongsTo reports whether the record is owned by the given task.
func (r *LLMResponse) BelongsTo(taskID string) bool {
	return r != nil && r.TaskID != nil && *r.TaskID == taskID
}
