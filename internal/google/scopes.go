package google

// CalendarScope grants read/write access to the user's calendars.
const CalendarScope = "https://www.googleapis.com/auth/calendar"

// DefaultOAuthScopes are the scopes requested during login. Calendar access is
// the only Google API the assistant uses.
var DefaultOAuthScopes = []string{
	CalendarScope,
}
