package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory calendar for local runs and tests.
type Memory struct {
	mu     sync.RWMutex
	events map[string]EventSummary
}

// NewMemory creates an empty in-memory calendar.
func NewMemory() *Memory {
	return &Memory{
		events: make(map[string]EventSummary),
	}
}

// ListEvents returns events overlapping [timeMin, timeMax). The query matches
// summary, description and location case-insensitively.
func (m *Memory) ListEvents(ctx context.Context, timeMin, timeMax time.Time, query string) ([]EventSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []EventSummary
	for _, ev := range m.events {
		if !ev.End.After(timeMin) || !ev.Start.Before(timeMax) {
			continue
		}
		if query != "" && !matches(ev, query) {
			continue
		}
		out = append(out, copyEvent(ev))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func matches(ev EventSummary, query string) bool {
	for _, field := range []string{ev.Summary, ev.Description, ev.Location} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// GetEvent returns the event with the given id.
func (m *Memory) GetEvent(ctx context.Context, eventID string) (*EventSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ev, ok := m.events[eventID]
	if !ok {
		return nil, fmt.Errorf("failed to get event %s: %w", eventID, ErrEventNotFound)
	}
	ev = copyEvent(ev)
	return &ev, nil
}

// CreateEvent stores a new event under a random id.
func (m *Memory) CreateEvent(ctx context.Context, input EventInput) (*EventSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateRange(input.Start, input.End); err != nil {
		return nil, err
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	ev := EventSummary{
		ID:          id,
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
		Start:       input.Start,
		End:         input.End,
		Status:      "confirmed",
		HTMLLink:    "memory://events/" + id,
		Attendees:   toAttendeeInfo(input.Attendees),
	}

	m.mu.Lock()
	m.events[id] = ev
	m.mu.Unlock()

	ev = copyEvent(ev)
	return &ev, nil
}

// UpdateEvent applies the non-empty fields of input.
func (m *Memory) UpdateEvent(ctx context.Context, eventID string, input EventInput) (*EventSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.events[eventID]
	if !ok {
		return nil, fmt.Errorf("failed to get existing event %s: %w", eventID, ErrEventNotFound)
	}

	if input.Summary != "" {
		ev.Summary = input.Summary
	}
	if input.Description != "" {
		ev.Description = input.Description
	}
	if input.Location != "" {
		ev.Location = input.Location
	}
	if !input.Start.IsZero() {
		ev.Start = input.Start
	}
	if !input.End.IsZero() {
		ev.End = input.End
	}
	if len(input.Attendees) > 0 {
		ev.Attendees = toAttendeeInfo(input.Attendees)
	}
	if err := validateRange(ev.Start, ev.End); err != nil {
		return nil, err
	}

	m.events[eventID] = ev
	ev = copyEvent(ev)
	return &ev, nil
}

// DeleteEvent removes an event.
func (m *Memory) DeleteEvent(ctx context.Context, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[eventID]; !ok {
		return fmt.Errorf("failed to delete event %s: %w", eventID, ErrEventNotFound)
	}
	delete(m.events, eventID)
	return nil
}

// Len returns the number of stored events.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return errors.New("event start and end are required")
	}
	if end.Before(start) {
		return fmt.Errorf("event end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return nil
}

func toAttendeeInfo(emails []string) []AttendeeInfo {
	if len(emails) == 0 {
		return nil
	}
	out := make([]AttendeeInfo, 0, len(emails))
	for _, email := range emails {
		out = append(out, AttendeeInfo{Email: email, ResponseStatus: "needsAction"})
	}
	return out
}

func copyEvent(ev EventSummary) EventSummary {
	if ev.Attendees != nil {
		ev.Attendees = append([]AttendeeInfo(nil), ev.Attendees...)
	}
	return ev
}
