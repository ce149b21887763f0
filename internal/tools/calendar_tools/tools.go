package calendar_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/mahakaal/internal/calendar"
	"github.com/teemow/mahakaal/internal/tools"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04"
	dateTimeLayout = "Monday, 2006-01-02 15:04:05"

	// DefaultDurationMinutes is applied when schedule_event omits a duration.
	DefaultDurationMinutes = 60

	// DefaultRangeDays is the list_events_range window.
	DefaultRangeDays = 7

	// DefaultSearchDays is the search_events look-ahead.
	DefaultSearchDays = 30

	// MaxRangeDays bounds days and days_range, about ten years.
	MaxRangeDays = 3660

	// MaxDurationMinutes bounds duration_minutes to one week.
	MaxDurationMinutes = 7 * 24 * 60
)

// Options configures the calendar tools.
type Options struct {
	// Location interprets dates and times. Defaults to time.Local.
	Location *time.Location

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// handlers holds the shared dependencies of all calendar tools.
type handlers struct {
	svc  calendar.Service
	opts Options
}

// Register adds all calendar tools to the registry.
func Register(r *tools.Registry, svc calendar.Service, opts Options) error {
	for _, t := range Tools(svc, opts) {
		if err := r.Register(t); err != nil {
			return fmt.Errorf("failed to register %s: %w", t.Name(), err)
		}
	}
	return nil
}

// Tools returns the calendar tools in the order they are advertised.
func Tools(svc calendar.Service, opts Options) []tools.Tool {
	h := &handlers{svc: svc, opts: opts.withDefaults()}

	return []tools.Tool{
		{
			Definition: mcp.NewTool("get_current_datetime",
				mcp.WithDescription("Get the current date and time. Use this when the user mentions relative times like 'tomorrow' or 'now'."),
			),
			Handler:  h.currentDateTime,
			ReadOnly: true,
		},
		{
			Definition: mcp.NewTool("list_events",
				mcp.WithDescription("List events from the Google Calendar for a specific date. Use this to get the daily agenda or check availability."),
				mcp.WithString("date_str",
					mcp.Required(),
					mcp.Description("The date to check in YYYY-MM-DD format."),
				),
			),
			Handler:  h.listEvents,
			ReadOnly: true,
		},
		scheduleEventTool(h),
		updateEventTool(h),
		{
			Definition: mcp.NewTool("delete_event",
				mcp.WithDescription("Delete an event from the calendar. You MUST get the event ID from 'list_events' or 'search_events' first."),
				mcp.WithString("event_id",
					mcp.Required(),
					mcp.Description("The unique identifier of the event to delete."),
				),
			),
			Handler: h.deleteEvent,
		},
		{
			Definition: mcp.NewTool("list_events_range",
				mcp.WithDescription("List events over a range of days. Useful for looking at the week ahead or finding events on specific upcoming days."),
				mcp.WithString("start_date",
					mcp.Required(),
					mcp.Description("The start date in YYYY-MM-DD format."),
				),
				mcp.WithNumber("days",
					mcp.Description("The number of days to include in the range (default is 7)."),
				),
			),
			Handler:  h.listEventsRange,
			ReadOnly: true,
		},
		{
			Definition: mcp.NewTool("search_events",
				mcp.WithDescription("Search for events by title or keyword. Use this to find specific appointments when the exact date is unknown."),
				mcp.WithString("query",
					mcp.Required(),
					mcp.Description("The search term (e.g., 'Gym', 'Doctor')."),
				),
				mcp.WithNumber("days_range",
					mcp.Description("How many days into the future to search (default is 30)."),
				),
			),
			Handler:  h.searchEvents,
			ReadOnly: true,
		},
	}
}

func (h *handlers) currentDateTime(_ context.Context, _ map[string]any) (string, error) {
	return h.opts.Now().In(h.opts.Location).Format(dateTimeLayout), nil
}

// parseDate reads a YYYY-MM-DD date at midnight in the configured location.
func (h *handlers) parseDate(value string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), h.opts.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return d, nil
}

// parseDateTime combines a YYYY-MM-DD date and an HH:MM time.
func (h *handlers) parseDateTime(date, clock string) (time.Time, error) {
	d, err := h.parseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	c, err := time.Parse(timeLayout, strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expected HH:MM (24-hour)", clock)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, h.opts.Location), nil
}

// endOfDay returns 23:59:59 on the day of t.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// calendarError reports a backend failure. The model sees
// "An error occurred: ..." and the call is recorded as failed.
func calendarError(err error) error {
	return tools.Failure(fmt.Sprintf("An error occurred: %v", err), err)
}

// formatEvents renders one "- [id] start: summary" line per event.
func formatEvents(header string, events []calendar.EventSummary) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	for _, ev := range events {
		title := ev.Summary
		if title == "" {
			title = "No Title"
		}
		fmt.Fprintf(&b, "- [%s] %s: %s\n", ev.ID, ev.StartString(), title)
	}
	return b.String()
}
