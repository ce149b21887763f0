package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrEventNotFound is returned when an event id does not exist.
var ErrEventNotFound = errors.New("event not found")

// Service is the calendar backend the tools operate on. Implementations
// operate on a single calendar.
type Service interface {
	// ListEvents returns single (expanded) events overlapping [timeMin, timeMax)
	// ordered by start time. A non-empty query filters by free text.
	ListEvents(ctx context.Context, timeMin, timeMax time.Time, query string) ([]EventSummary, error)

	GetEvent(ctx context.Context, eventID string) (*EventSummary, error)
	CreateEvent(ctx context.Context, input EventInput) (*EventSummary, error)
	UpdateEvent(ctx context.Context, eventID string, input EventInput) (*EventSummary, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

var (
	_ Service = (*Client)(nil)
	_ Service = (*Memory)(nil)
)
