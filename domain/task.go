package domain

import "time"

// RepeatType describes the recurrence cadence of a task reminder.
type RepeatType string

const (
	RepeatNone    RepeatType = "none"
	RepeatDaily   RepeatType = "daily"
	RepeatWeekly  RepeatType = "weekly"
	RepeatMonthly RepeatType = "monthly"
)

// Valid reports whether the repeat type is one of the supported cadences.
func (r RepeatType) Valid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly:
		return true
	}
	return false
}

// Task represents a user-defined reminder with a schedule and repeat cadence.
type Task struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	ScheduledTime  time.Time     `json:"scheduledTime"`
	RepeatType     RepeatType    `json:"repeatType"`
	IsEnabled      bool          `json:"isEnabled"`
	NotificationID string        `json:"notificationId,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
	Responses      []LLMResponse `json:"llmResponses,omitempty"`
}

// Validate checks the task invariants shared by the create and update paths.
func (t *Task) Validate() error {
	if t == nil {
		return ErrInvalidPayload
	}
	if t.Title == "" {
		return NewError(ErrCodeInvalid, "title is required")
	}
	if t.Description == "" {
		return NewError(ErrCodeInvalid, "description is required")
	}
	if t.ScheduledTime.IsZero() {
		return NewError(ErrCodeInvalid, "scheduledTime is required")
	}
	if !t.RepeatType.Valid() {
		return NewError(ErrCodeInvalid, "repeatType must be one of none, daily, weekly, monthly")
	}
	return nil
}
