package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// fakePages simulates a paged listing keyed by continuation token.
func fakePages(pages map[string]*calendar.Events, requested *[]string) func(string) (*calendar.Events, error) {
	return func(pageToken string) (*calendar.Events, error) {
		*requested = append(*requested, pageToken)
		page, ok := pages[pageToken]
		if !ok {
			return nil, fmt.Errorf("unexpected page token %q", pageToken)
		}
		return page, nil
	}
}

func evt(id string) *calendar.Event {
	return &calendar.Event{Id: id}
}

func TestCollectPagesAccumulatesAllPages(t *testing.T) {
	pages := map[string]*calendar.Events{
		"": {
			Items:         []*calendar.Event{evt("e1"), evt("e2")},
			NextPageToken: "p2",
		},
		"p2": {
			Items:         []*calendar.Event{evt("e3"), evt("e4")},
			NextPageToken: "p3",
		},
		"p3": {
			Items: []*calendar.Event{evt("e5")},
		},
	}

	var requested []string
	items, err := collectPages(fakePages(pages, &requested))
	require.NoError(t, err)

	assert.Equal(t, []string{"", "p2", "p3"}, requested, "pages should be requested in token order")

	seen := make(map[string]int)
	for _, item := range items {
		seen[item.Id]++
	}
	assert.Len(t, items, 5)
	for _, id := range []string{"e1", "e2", "e3", "e4", "e5"} {
		assert.Equal(t, 1, seen[id], "event %s should appear exactly once", id)
	}
}

func TestCollectPagesSinglePage(t *testing.T) {
	pages := map[string]*calendar.Events{
		"": {Items: []*calendar.Event{evt("only")}},
	}

	var requested []string
	items, err := collectPages(fakePages(pages, &requested))
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, []string{""}, requested)
}

func TestCollectPagesFailureDiscardsEverything(t *testing.T) {
	calls := 0
	fetch := func(pageToken string) (*calendar.Events, error) {
		calls++
		if calls == 1 {
			return &calendar.Events{
				Items:         []*calendar.Event{evt("e1"), evt("e2")},
				NextPageToken: "p2",
			}, nil
		}
		return nil, &googleapi.Error{Code: 403, Message: "rate limit exceeded"}
	}

	items, err := collectPages(fetch)
	require.Error(t, err)
	assert.Nil(t, items, "a failed page must not surface partial results")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 403, apiErr.Code)
	assert.Contains(t, apiErr.Message, "rate limit")
}

func TestWindowBounds(t *testing.T) {
	ref := time.Date(2026, 8, 30, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	start, end := Window(ref, 7)
	assert.Equal(t, ref.UTC(), start)
	assert.Equal(t, ref.UTC().Add(7*24*time.Hour), end)

	// An event starting one day past the window must fall outside it.
	late := ref.UTC().Add(8 * 24 * time.Hour)
	assert.False(t, late.Before(end), "now+8d must not be inside a 7-day window")
}

func TestToRecordTimedEvent(t *testing.T) {
	item := &calendar.Event{
		Id:          "evt-1",
		Summary:     "Team Standup",
		Description: "Daily status",
		Location:    "Room 2",
		Created:     "2026-08-01T08:00:00.000Z",
		Updated:     "2026-08-20T09:30:00.000Z",
		Start:       &calendar.EventDateTime{DateTime: "2026-09-01T10:00:00+02:00"},
		End:         &calendar.EventDateTime{DateTime: "2026-09-01T10:30:00+02:00"},
	}

	rec, err := toRecord(item, "primary")
	require.NoError(t, err)

	assert.Equal(t, "evt-1", rec.ID)
	assert.Equal(t, "primary", rec.CalendarID)
	assert.Equal(t, "Team Standup", rec.Summary)
	assert.Equal(t, "2026-09-01T10:00:00+02:00", rec.Start, "timed events keep the date-time with offset")
	assert.Equal(t, "2026-09-01T10:30:00+02:00", rec.End)

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(rec.Raw), &raw))
	assert.Equal(t, "evt-1", raw["id"], "raw payload must round-trip the original event")
}

func TestToRecordAllDayEvent(t *testing.T) {
	item := &calendar.Event{
		Id:    "evt-2",
		Start: &calendar.EventDateTime{Date: "2026-09-03"},
		End:   &calendar.EventDateTime{Date: "2026-09-04"},
	}

	rec, err := toRecord(item, "primary")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-03", rec.Start, "all-day events keep the bare date")
	assert.Equal(t, "2026-09-04", rec.End)
}

func TestEventTimeNil(t *testing.T) {
	assert.Equal(t, "", eventTime(nil))
}
