package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/mahakaal/internal/instrumentation"
)

// PrimaryCalendar is the calendar id of the signed-in user's main calendar.
const PrimaryCalendar = "primary"

// Client wraps the Google Calendar service for a single calendar.
type Client struct {
	svc        *calendar.Service
	calendarID string
	metrics    *instrumentation.Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCalendarID selects a calendar other than the primary one.
func WithCalendarID(id string) ClientOption {
	return func(c *Client) {
		if id != "" {
			c.calendarID = id
		}
	}
}

// WithMetrics records google_api_operations_total for every call.
func WithMetrics(m *instrumentation.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a Calendar client authenticated by ts. The token source
// is consulted per request, so a client can be built before the user has
// signed in.
func NewClient(ctx context.Context, ts oauth2.TokenSource, opts ...ClientOption) (*Client, error) {
	if ts == nil {
		return nil, errors.New("token source cannot be nil")
	}

	httpClient := oauth2.NewClient(ctx, ts)

	// Force HTTP/1.1 by disabling HTTP/2
	if transport, ok := httpClient.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{ForceAttemptHTTP2: false}
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return NewClientWithService(svc, opts...), nil
}

// NewClientWithService wraps an existing Calendar service.
func NewClientWithService(svc *calendar.Service, opts ...ClientOption) *Client {
	c := &Client{svc: svc, calendarID: PrimaryCalendar}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CalendarID returns the calendar this client operates on.
func (c *Client) CalendarID() string {
	return c.calendarID
}

// observe wraps one API call with a span and operation metrics.
func (c *Client) observe(ctx context.Context, operation, resourceID string, fn func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, operation)
	if resourceID != "" {
		span.SetAttributes(instrumentation.ResourceIDAttr(resourceID))
	}

	start := time.Now()
	err := fn(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, operation, status, time.Since(start))
	instrumentation.EndSpan(span, err)
	return err
}

// ListEvents lists single events within a time range.
func (c *Client) ListEvents(ctx context.Context, timeMin, timeMax time.Time, query string) ([]EventSummary, error) {
	var summaries []EventSummary
	err := c.observe(ctx, instrumentation.OperationList, "", func(ctx context.Context) error {
		call := c.svc.Events.List(c.calendarID).
			TimeMin(timeMin.Format(time.RFC3339)).
			TimeMax(timeMax.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			Context(ctx)

		if query != "" {
			call = call.Q(query)
		}

		events, err := call.Do()
		if err != nil {
			return fmt.Errorf("failed to list events: %w", err)
		}
		for _, event := range events.Items {
			summaries = append(summaries, toEventSummary(event))
		}
		return nil
	})
	return summaries, err
}

// GetEvent retrieves a specific event by ID.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*EventSummary, error) {
	var summary EventSummary
	err := c.observe(ctx, instrumentation.OperationGet, eventID, func(ctx context.Context) error {
		event, err := c.svc.Events.Get(c.calendarID, eventID).Context(ctx).Do()
		if err != nil {
			return wrapAPIError("failed to get event", eventID, err)
		}
		summary = toEventSummary(event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// CreateEvent creates a new calendar event.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) (*EventSummary, error) {
	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
		Start:       toEventDateTime(input.Start),
		End:         toEventDateTime(input.End),
	}
	if len(input.Attendees) > 0 {
		event.Attendees = toEventAttendees(input.Attendees)
	}

	var summary EventSummary
	err := c.observe(ctx, instrumentation.OperationCreate, "", func(ctx context.Context) error {
		created, err := c.svc.Events.Insert(c.calendarID, event).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}
		summary = toEventSummary(created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// UpdateEvent reads the event, applies the non-empty fields of input and
// writes it back.
func (c *Client) UpdateEvent(ctx context.Context, eventID string, input EventInput) (*EventSummary, error) {
	var summary EventSummary
	err := c.observe(ctx, instrumentation.OperationUpdate, eventID, func(ctx context.Context) error {
		existing, err := c.svc.Events.Get(c.calendarID, eventID).Context(ctx).Do()
		if err != nil {
			return wrapAPIError("failed to get existing event", eventID, err)
		}

		if input.Summary != "" {
			existing.Summary = input.Summary
		}
		if input.Description != "" {
			existing.Description = input.Description
		}
		if input.Location != "" {
			existing.Location = input.Location
		}
		if !input.Start.IsZero() {
			existing.Start = toEventDateTime(input.Start)
		}
		if !input.End.IsZero() {
			existing.End = toEventDateTime(input.End)
		}
		if len(input.Attendees) > 0 {
			existing.Attendees = toEventAttendees(input.Attendees)
		}

		updated, err := c.svc.Events.Update(c.calendarID, eventID, existing).Context(ctx).Do()
		if err != nil {
			return wrapAPIError("failed to update event", eventID, err)
		}
		summary = toEventSummary(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// DeleteEvent deletes a calendar event.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	return c.observe(ctx, instrumentation.OperationDelete, eventID, func(ctx context.Context) error {
		if err := c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do(); err != nil {
			return wrapAPIError("failed to delete event", eventID, err)
		}
		return nil
	})
}

// wrapAPIError maps 404 and 410 responses to ErrEventNotFound.
func wrapAPIError(msg, eventID string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return fmt.Errorf("%s %s: %w", msg, eventID, ErrEventNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
