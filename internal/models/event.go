package models

// Event represents one remote calendar event as stored locally.
// Start and End keep whichever representation the remote record
// carries: a date-only string for all-day events, or an RFC 3339
// date-time with offset for timed events. No timezone conversion is
// performed on any timestamp.
type Event struct {
	ID          string // External event identifier, stable across syncs.
	CalendarID  string // Source calendar identifier.
	Summary     string // Event title.
	Description string
	Start       string
	End         string
	Created     string // Remote creation timestamp, as reported.
	Updated     string // Remote last-update timestamp, as reported.
	Location    string
	Raw         string // Complete original payload, serialized as JSON.
}
