package notify

import (
	"context"
	"time"

	"github.com/notifly/backend/domain"
)

// Trigger describes one scheduled reminder on the notification platform.
type Trigger struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	FireAt time.Time         `json:"fire_at"`
	Repeat domain.RepeatType `json:"repeat"`
}

// Scheduler is the platform notification boundary. Implementations own all
// platform state; the backend only keeps the opaque notification id.
type Scheduler interface {
	RequestPermission(ctx context.Context) (bool, error)
	Schedule(ctx context.Context, trigger Trigger) (string, error)
	Cancel(ctx context.Context, id string) error
	ScheduledIDs(ctx context.Context) ([]string, error)
}
