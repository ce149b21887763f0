package calendar

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

func TestToEventSummary(t *testing.T) {
	tests := []struct {
		name      string
		event     *calendar.Event
		wantStart string
		allDay    bool
	}{
		{
			name:  "nil event",
			event: nil,
		},
		{
			name: "timed event with meet link",
			event: &calendar.Event{
				Id:       "abc",
				Summary:  "Sync",
				HtmlLink: "https://calendar.google.com/event?eid=abc",
				Start:    &calendar.EventDateTime{DateTime: "2025-06-01T10:00:00+02:00"},
				End:      &calendar.EventDateTime{DateTime: "2025-06-01T11:00:00+02:00"},
				Attendees: []*calendar.EventAttendee{
					{Email: "bob@example.com", ResponseStatus: "accepted"},
				},
				ConferenceData: &calendar.ConferenceData{
					EntryPoints: []*calendar.EntryPoint{
						{EntryPointType: "phone", Uri: "tel:+1"},
						{EntryPointType: "video", Uri: "https://meet.google.com/xyz"},
					},
				},
			},
			wantStart: "2025-06-01T10:00:00+02:00",
		},
		{
			name: "all-day event",
			event: &calendar.Event{
				Id:    "day",
				Start: &calendar.EventDateTime{Date: "2025-06-02"},
				End:   &calendar.EventDateTime{Date: "2025-06-03"},
			},
			wantStart: "2025-06-02",
			allDay:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := toEventSummary(tt.event)
			if tt.event == nil {
				assert.Empty(t, summary.ID)
				return
			}
			assert.Equal(t, tt.event.Id, summary.ID)
			assert.Equal(t, tt.allDay, summary.AllDay)
			assert.Equal(t, tt.wantStart, summary.StartString())
			assert.Equal(t, tt.event.HtmlLink, summary.HTMLLink)
		})
	}

	s := toEventSummary(tests[1].event)
	assert.Equal(t, "https://meet.google.com/xyz", s.MeetLink)
	assert.Equal(t, time.Hour, s.Duration())
	require.Len(t, s.Attendees, 1)
	assert.Equal(t, "accepted", s.Attendees[0].ResponseStatus)
}

func TestToEventDateTime(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	dt := toEventDateTime(time.Date(2025, 6, 1, 10, 0, 0, 0, berlin))
	assert.Equal(t, "2025-06-01T10:00:00+02:00", dt.DateTime)
	assert.Equal(t, "Europe/Berlin", dt.TimeZone)

	fixed := toEventDateTime(time.Date(2025, 6, 1, 10, 0, 0, 0, time.FixedZone("IST", 5*3600+1800)))
	assert.Equal(t, "2025-06-01T10:00:00+05:30", fixed.DateTime)
	assert.Empty(t, fixed.TimeZone)
}

// fakeCalendarAPI serves the subset of the Calendar v3 REST API used by Client.
type fakeCalendarAPI struct {
	t        *testing.T
	requests []*http.Request
	inserted *calendar.Event
	updated  *calendar.Event
}

func (f *fakeCalendarAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests = append(f.requests, r)
	w.Header().Set("Content-Type", "application/json")

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodGet && path == "calendars/primary/events":
		_ = json.NewEncoder(w).Encode(calendar.Events{Items: []*calendar.Event{
			{
				Id:      "evt1",
				Summary: "Standup",
				Start:   &calendar.EventDateTime{DateTime: "2025-06-01T09:00:00Z"},
				End:     &calendar.EventDateTime{DateTime: "2025-06-01T09:15:00Z"},
			},
		}})
	case r.Method == http.MethodGet && path == "calendars/primary/events/missing":
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"Not Found"}}`)
	case r.Method == http.MethodGet && path == "calendars/primary/events/evt1":
		_ = json.NewEncoder(w).Encode(calendar.Event{
			Id:      "evt1",
			Summary: "Standup",
			Start:   &calendar.EventDateTime{DateTime: "2025-06-01T09:00:00Z"},
			End:     &calendar.EventDateTime{DateTime: "2025-06-01T09:15:00Z"},
			Attendees: []*calendar.EventAttendee{
				{Email: "old@example.com"},
			},
		})
	case r.Method == http.MethodPost && path == "calendars/primary/events":
		var ev calendar.Event
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&ev))
		f.inserted = &ev
		ev.Id = "new1"
		ev.HtmlLink = "https://calendar.google.com/event?eid=new1"
		_ = json.NewEncoder(w).Encode(ev)
	case r.Method == http.MethodPut && path == "calendars/primary/events/evt1":
		var ev calendar.Event
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&ev))
		f.updated = &ev
		_ = json.NewEncoder(w).Encode(ev)
	case r.Method == http.MethodDelete && path == "calendars/primary/events/evt1":
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"unexpected request"}}`)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeCalendarAPI) {
	t.Helper()

	api := &fakeCalendarAPI{t: t}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := calendar.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return NewClientWithService(svc), api
}

func TestClient_ListEvents(t *testing.T) {
	client, api := newTestClient(t)

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	events, err := client.ListEvents(context.Background(), day, day.Add(24*time.Hour), "standup")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt1", events[0].ID)

	q := api.requests[0].URL.Query()
	assert.Equal(t, "2025-06-01T00:00:00Z", q.Get("timeMin"))
	assert.Equal(t, "true", q.Get("singleEvents"))
	assert.Equal(t, "startTime", q.Get("orderBy"))
	assert.Equal(t, "standup", q.Get("q"))
}

func TestClient_GetEventNotFound(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.GetEvent(context.Background(), "missing")
	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestClient_CreateEvent(t *testing.T) {
	client, api := newTestClient(t)

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	created, err := client.CreateEvent(context.Background(), EventInput{
		Summary:   "Sync",
		Start:     start,
		End:       start.Add(time.Hour),
		Attendees: []string{"bob@example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, "new1", created.ID)
	assert.Equal(t, "https://calendar.google.com/event?eid=new1", created.HTMLLink)
	require.NotNil(t, api.inserted)
	assert.Equal(t, "2025-06-01T10:00:00Z", api.inserted.Start.DateTime)
	assert.Equal(t, "2025-06-01T11:00:00Z", api.inserted.End.DateTime)
	require.Len(t, api.inserted.Attendees, 1)
	assert.Equal(t, "bob@example.com", api.inserted.Attendees[0].Email)
}

func TestClient_UpdateEventKeepsUnsetFields(t *testing.T) {
	client, api := newTestClient(t)

	_, err := client.UpdateEvent(context.Background(), "evt1", EventInput{Summary: "Daily standup"})
	require.NoError(t, err)

	require.NotNil(t, api.updated)
	assert.Equal(t, "Daily standup", api.updated.Summary)
	assert.Equal(t, "2025-06-01T09:00:00Z", api.updated.Start.DateTime)
	require.Len(t, api.updated.Attendees, 1)
	assert.Equal(t, "old@example.com", api.updated.Attendees[0].Email)

	_, err = client.UpdateEvent(context.Background(), "missing", EventInput{Summary: "x"})
	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestClient_DeleteEvent(t *testing.T) {
	client, _ := newTestClient(t)

	require.NoError(t, client.DeleteEvent(context.Background(), "evt1"))
	require.ErrorIs(t, client.DeleteEvent(context.Background(), "missing"), ErrEventNotFound)
}
