// Package calendar_tools provides the calendar tools the assistant's model can
// call.
//
// Every tool is bound to a calendar.Service and returns a human-readable
// string that is handed back to the model verbatim. Calendar failures are
// reported as "An error occurred: ..." results; malformed dates and times are
// returned as handler errors, which the registry renders as "Error: ...".
//
// Dates use YYYY-MM-DD and times HH:MM (24-hour) in the configured time zone.
package calendar_tools
