package calendar

import (
	"strings"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

const dateLayout = "2006-01-02"

// EventInput represents the input for creating or updating a calendar event.
//
// For updates, empty fields keep the current value: an empty Summary, a zero
// Start or End, and a nil or empty Attendees list. Non-empty Attendees
// replace the existing list.
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

// EventSummary represents a simplified calendar event.
type EventSummary struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Status      string
	Organizer   string
	Attendees   []AttendeeInfo
	HTMLLink    string
	MeetLink    string
}

// Duration returns the event length.
func (e EventSummary) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// StartString formats the start the way the calendar API reports it: an
// RFC 3339 timestamp, or a bare date for all-day events.
func (e EventSummary) StartString() string {
	if e.AllDay {
		return e.Start.Format(dateLayout)
	}
	return e.Start.Format(time.RFC3339)
}

// AttendeeInfo represents information about an event attendee.
type AttendeeInfo struct {
	Email          string
	DisplayName    string
	ResponseStatus string // "needsAction", "declined", "tentative", "accepted"
	Optional       bool
	Organizer      bool
}

// parseEventTime reads either a dateTime or an all-day date.
func parseEventTime(dt *calendar.EventDateTime) (t time.Time, allDay bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		if parsed, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return parsed, false
		}
	}
	if dt.Date != "" {
		if parsed, err := time.Parse(dateLayout, dt.Date); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// toEventSummary converts a Google Calendar event to an EventSummary.
func toEventSummary(event *calendar.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}

	summary := EventSummary{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
	}

	summary.Start, summary.AllDay = parseEventTime(event.Start)
	summary.End, _ = parseEventTime(event.End)

	if event.Organizer != nil {
		summary.Organizer = event.Organizer.Email
	}

	for _, att := range event.Attendees {
		if att == nil {
			continue
		}
		summary.Attendees = append(summary.Attendees, AttendeeInfo{
			Email:          att.Email,
			DisplayName:    att.DisplayName,
			ResponseStatus: att.ResponseStatus,
			Optional:       att.Optional,
			Organizer:      att.Organizer,
		})
	}

	if event.ConferenceData != nil {
		for _, ep := range event.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				summary.MeetLink = ep.Uri
				break
			}
		}
	}

	return summary
}

func toEventAttendees(emails []string) []*calendar.EventAttendee {
	attendees := make([]*calendar.EventAttendee, 0, len(emails))
	for _, email := range emails {
		attendees = append(attendees, &calendar.EventAttendee{Email: email})
	}
	return attendees
}

func toEventDateTime(t time.Time) *calendar.EventDateTime {
	dt := &calendar.EventDateTime{DateTime: t.Format(time.RFC3339)}
	// Only IANA names are accepted; fixed offsets are already in DateTime.
	if name := t.Location().String(); strings.Contains(name, "/") {
		dt.TimeZone = name
	}
	return dt
}
