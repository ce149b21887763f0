package calendar_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/teemow/mahakaal/internal/tools"
)

func (h *handlers) listEvents(ctx context.Context, args map[string]any) (string, error) {
	dateStr, _ := tools.StringArg(args, "date_str")
	day, err := h.parseDate(dateStr)
	if err != nil {
		return "", err
	}

	events, err := h.svc.ListEvents(ctx, day, endOfDay(day), "")
	if err != nil {
		return "", calendarError(err)
	}

	label := day.Format(dateLayout)
	if len(events) == 0 {
		return fmt.Sprintf("No events found for %s. You are free.", label), nil
	}
	return formatEvents(fmt.Sprintf("Events on %s:", label), events), nil
}

func (h *handlers) listEventsRange(ctx context.Context, args map[string]any) (string, error) {
	startStr, _ := tools.StringArg(args, "start_date")
	start, err := h.parseDate(startStr)
	if err != nil {
		return "", err
	}

	days, err := tools.IntArgInRange(args, "days", DefaultRangeDays, 1, MaxRangeDays)
	if err != nil {
		return "", err
	}

	// The window runs to the end of start+days, one day past the
	// range that is reported.
	events, err := h.svc.ListEvents(ctx, start, endOfDay(start.AddDate(0, 0, days)), "")
	if err != nil {
		return "", calendarError(err)
	}

	label := start.Format(dateLayout)
	if len(events) == 0 {
		last := start.AddDate(0, 0, days-1).Format(dateLayout)
		return fmt.Sprintf("No events found from %s to %s.", label, last), nil
	}
	return formatEvents(fmt.Sprintf("Events from %s for %d days:", label, days), events), nil
}

func (h *handlers) searchEvents(ctx context.Context, args map[string]any) (string, error) {
	query, ok := tools.StringArg(args, "query")
	if !ok {
		return "", errors.New("query cannot be empty")
	}

	days, err := tools.IntArgInRange(args, "days_range", DefaultSearchDays, 1, MaxRangeDays)
	if err != nil {
		return "", err
	}

	now := h.opts.Now().In(h.opts.Location)
	events, err := h.svc.ListEvents(ctx, now, now.AddDate(0, 0, days), query)
	if err != nil {
		return "", calendarError(err)
	}

	if len(events) == 0 {
		return fmt.Sprintf("No events found matching '%s' in the next %d days.", query, days), nil
	}
	return formatEvents(fmt.Sprintf("Search results for '%s' (next %d days):", query, days), events), nil
}
