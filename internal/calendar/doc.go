// Package calendar provides the calendar backends the assistant's tools run
// against.
//
// Service is implemented by Client, which talks to the Google Calendar v3 API
// for a single calendar (the primary one by default), and by Memory, an
// in-memory calendar for local runs and tests.
//
// Example usage:
//
//	ts := auth.TokenSource(ctx)
//	client, err := calendar.NewClient(ctx, ts, calendar.WithMetrics(metrics))
//	if err != nil {
//		return err
//	}
//
//	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)
//	events, err := client.ListEvents(ctx, day, day.AddDate(0, 0, 1), "")
package calendar
