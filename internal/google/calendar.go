// Package google talks to the Google Calendar API: it obtains and
// persists OAuth credentials and fetches events for a time window,
// following pagination transparently.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"calingest/internal/models"
)

// APIError reports a remote calendar API failure with its HTTP status
// code and message, surfaced verbatim to the operator.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calendar API error %d: %s", e.Code, e.Message)
}

// CalendarClient provides a client for interacting with the Google
// Calendar API.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
}

// NewClient creates a Google Calendar client authenticated with token.
func NewClient(ctx context.Context, logger *slog.Logger, config *oauth2.Config, token *oauth2.Token) (*CalendarClient, error) {
	if token == nil {
		return nil, errors.New("token cannot be nil")
	}

	client := config.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &CalendarClient{service: service, logger: logger}, nil
}

// EventsInWindow fetches every event on calendarID whose time range
// intersects [start, end), accumulating all pages into one result set.
// Results are requested sorted by start time for reproducible output.
func (c *CalendarClient) EventsInWindow(ctx context.Context, calendarID string, start, end time.Time) ([]models.Event, error) {
	c.logger.Debug("Fetching events", "calendarID", calendarID, "timeMin", start, "timeMax", end)

	items, err := collectPages(func(pageToken string) (*calendar.Events, error) {
		call := c.service.Events.List(calendarID).
			ShowDeleted(false).
			SingleEvents(true).
			TimeMin(start.Format(time.RFC3339)).
			TimeMax(end.Format(time.RFC3339)).
			OrderBy("startTime")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Fetched events from Google Calendar", "count", len(items), "calendarID", calendarID)

	records := make([]models.Event, 0, len(items))
	for _, item := range items {
		rec, err := toRecord(item, calendarID)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// collectPages drains a paged listing into one result set, requesting
// successive pages with the continuation token until none is returned.
// Callers never observe partial pages: any page failure discards the
// whole fetch.
func collectPages(fetch func(pageToken string) (*calendar.Events, error)) ([]*calendar.Event, error) {
	var all []*calendar.Event
	pageToken := ""
	for {
		page, err := fetch(pageToken)
		if err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) {
				return nil, &APIError{Code: apiErr.Code, Message: apiErr.Message}
			}
			return nil, fmt.Errorf("failed to retrieve events: %w", err)
		}
		all = append(all, page.Items...)
		pageToken = page.NextPageToken
		if pageToken == "" {
			return all, nil
		}
	}
}

// toRecord maps an API event to the stored representation, keeping the
// complete payload for forward-compatible field access.
func toRecord(item *calendar.Event, calendarID string) (models.Event, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to serialize event %s: %w", item.Id, err)
	}

	return models.Event{
		ID:          item.Id,
		CalendarID:  calendarID,
		Summary:     item.Summary,
		Description: item.Description,
		Start:       eventTime(item.Start),
		End:         eventTime(item.End),
		Created:     item.Created,
		Updated:     item.Updated,
		Location:    item.Location,
		Raw:         string(raw),
	}, nil
}

// eventTime returns the effective time representation: the date-time
// for timed events, the bare date for all-day events.
func eventTime(t *calendar.EventDateTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

// Window returns the forward-looking ingest window [now, now+days) in
// UTC.
func Window(now time.Time, days int) (time.Time, time.Time) {
	start := now.UTC()
	return start, start.Add(time.Duration(days) * 24 * time.Hour)
}
