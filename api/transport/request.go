package transport

import (
	"time"

	"github.com/notifly/backend/domain"
)

type TaskCreateRequest struct {
	Title          string  `json:"title" validate:"required"`
	Description    string  `json:"description" validate:"required"`
	ScheduledTime  string  `json:"scheduledTime" validate:"required"`
	RepeatType     string  `json:"repeatType" validate:"required,oneof=none daily weekly monthly"`
	IsEnabled      *bool   `json:"isEnabled"`
	NotificationID *string `json:"notificationId"`
}

// Task converts the validated request into a domain task. isEnabled defaults
// to true when omitted.
func (r TaskCreateRequest) Task() (*domain.Task, error) {
	scheduled, err := parseTimestamp(r.ScheduledTime)
	if err != nil {
		return nil, err
	}

	enabled := true
	if r.IsEnabled != nil {
		enabled = *r.IsEnabled
	}

	task := &domain.Task{
		Title:         r.Title,
		Description:   r.Description,
		ScheduledTime: scheduled,
		RepeatType:    domain.RepeatType(r.RepeatType),
		IsEnabled:     enabled,
	}
	if r.NotificationID != nil {
		task.NotificationID = *r.NotificationID
	}
	return task, nil
}

// TaskUpdateRequest is a partial update; nil fields keep their stored value.
type TaskUpdateRequest struct {
	Title          *string `json:"title" validate:"omitempty,min=1"`
	Description    *string `json:"description" validate:"omitempty,min=1"`
	ScheduledTime  *string `json:"scheduledTime"`
	RepeatType     *string `json:"repeatType" validate:"omitempty,oneof=none daily weekly monthly"`
	IsEnabled      *bool   `json:"isEnabled"`
	NotificationID *string `json:"notificationId"`
}

type ProcessTaskRequest struct {
	CustomPrompt string `json:"customPrompt"`
	Model        string `json:"model" validate:"omitempty,oneof=gpt-3.5-turbo gpt-4 gpt-4-turbo"`
}

type ProcessPromptRequest struct {
	Prompt string `json:"prompt" validate:"required"`
	Model  string `json:"model" validate:"omitempty,oneof=gpt-3.5-turbo gpt-4 gpt-4-turbo"`
}

func parseTimestamp(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, domain.NewError(domain.ErrCodeInvalid, "scheduledTime must be an ISO-8601 timestamp")
	}
	return parsed, nil
}
