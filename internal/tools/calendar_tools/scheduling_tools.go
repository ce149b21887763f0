package calendar_tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/mahakaal/internal/calendar"
	"github.com/teemow/mahakaal/internal/tools"
)

func scheduleEventTool(h *handlers) tools.Tool {
	return tools.Tool{
		Definition: mcp.NewTool("schedule_event",
			mcp.WithDescription("Schedule a new event on the Google Calendar. Default duration is 60 minutes if not specified."),
			mcp.WithString("title",
				mcp.Required(),
				mcp.Description("The title or subject of the event."),
			),
			mcp.WithString("date_str",
				mcp.Required(),
				mcp.Description("The date of the event in YYYY-MM-DD format."),
			),
			mcp.WithString("time_str",
				mcp.Required(),
				mcp.Description("The time of the event in HH:MM format (24-hour)."),
			),
			mcp.WithNumber("duration_minutes",
				mcp.Description("The duration of the event in minutes (default is 60)."),
			),
			mcp.WithArray("attendees",
				mcp.Description("A list of email addresses to invite as attendees."),
				mcp.Items(map[string]any{"type": "string"}),
			),
		),
		Handler: h.scheduleEvent,
	}
}

func updateEventTool(h *handlers) tools.Tool {
	return tools.Tool{
		Definition: mcp.NewTool("update_event",
			mcp.WithDescription("Update an existing event. Use this to change the title, time, duration, or add attendees/invitations."),
			mcp.WithString("event_id",
				mcp.Required(),
				mcp.Description("The unique identifier of the event to update."),
			),
			mcp.WithString("title",
				mcp.Description("New title for the event (optional)."),
			),
			mcp.WithString("date_str",
				mcp.Description("New date in YYYY-MM-DD format (optional)."),
			),
			mcp.WithString("time_str",
				mcp.Description("New time in HH:MM format (optional)."),
			),
			mcp.WithNumber("duration_minutes",
				mcp.Description("New duration in minutes (optional)."),
			),
			mcp.WithArray("attendees",
				mcp.Description("New list of email addresses to invite (replaces existing list)."),
				mcp.Items(map[string]any{"type": "string"}),
			),
		),
		Handler: h.updateEvent,
	}
}

func (h *handlers) scheduleEvent(ctx context.Context, args map[string]any) (string, error) {
	title, ok := tools.StringArg(args, "title")
	if !ok {
		return "", errors.New("title cannot be empty")
	}
	dateStr, _ := tools.StringArg(args, "date_str")
	timeStr, _ := tools.StringArg(args, "time_str")

	start, err := h.parseDateTime(dateStr, timeStr)
	if err != nil {
		return "", err
	}
	duration, err := durationArg(args, DefaultDurationMinutes)
	if err != nil {
		return "", err
	}
	attendees, _, err := tools.StringSliceArg(args, "attendees")
	if err != nil {
		return "", err
	}

	created, err := h.svc.CreateEvent(ctx, calendar.EventInput{
		Summary:   title,
		Start:     start,
		End:       start.Add(time.Duration(duration) * time.Minute),
		Attendees: attendees,
	})
	if err != nil {
		return "", calendarError(err)
	}

	return fmt.Sprintf("Confirmed. Event created: %q on %s at %s for %d minutes. %s",
		title, start.Format(dateLayout), start.Format(timeLayout), duration, created.HTMLLink), nil
}

func (h *handlers) updateEvent(ctx context.Context, args map[string]any) (string, error) {
	eventID, ok := tools.StringArg(args, "event_id")
	if !ok {
		return "", errors.New("event_id cannot be empty")
	}

	dateStr, hasDate := tools.StringArg(args, "date_str")
	timeStr, hasTime := tools.StringArg(args, "time_str")
	hasDuration := args["duration_minutes"] != nil

	attendees, _, err := tools.StringSliceArg(args, "attendees")
	if err != nil {
		return "", err
	}

	input := calendar.EventInput{Attendees: attendees}
	input.Summary, _ = tools.StringArg(args, "title")

	if hasDate || hasTime || hasDuration {
		existing, err := h.svc.GetEvent(ctx, eventID)
		if err != nil {
			return "", calendarError(err)
		}

		// Missing parts are taken from the current event.
		current := existing.Start.In(h.opts.Location)
		if !hasDate {
			dateStr = current.Format(dateLayout)
		}
		if !hasTime {
			timeStr = current.Format(timeLayout)
		}
		currentMinutes := int(existing.Duration() / time.Minute)

		start, err := h.parseDateTime(dateStr, timeStr)
		if err != nil {
			return "", err
		}
		duration, err := durationArg(args, currentMinutes)
		if err != nil {
			return "", err
		}
		input.Start = start
		input.End = start.Add(time.Duration(duration) * time.Minute)
	}

	updated, err := h.svc.UpdateEvent(ctx, eventID, input)
	if err != nil {
		return "", calendarError(err)
	}

	start := updated.Start.In(h.opts.Location)
	return fmt.Sprintf("Event updated successfully: %q on %s at %s for %d minutes. %s",
		updated.Summary, start.Format(dateLayout), start.Format(timeLayout),
		int(updated.Duration()/time.Minute), updated.HTMLLink), nil
}

func (h *handlers) deleteEvent(ctx context.Context, args map[string]any) (string, error) {
	eventID, ok := tools.StringArg(args, "event_id")
	if !ok {
		return "", errors.New("event_id cannot be empty")
	}
	if err := h.svc.DeleteEvent(ctx, eventID); err != nil {
		return "", calendarError(err)
	}
	return "Event deleted successfully.", nil
}

// durationArg reads duration_minutes within [1, MaxDurationMinutes].
func durationArg(args map[string]any, def int) (int, error) {
	return tools.IntArgInRange(args, "duration_minutes", def, 1, MaxDurationMinutes)
}
