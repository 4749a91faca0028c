// Package syncer merges remote calendar events into the local store.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"calingest/internal/models"
	"calingest/internal/store"
)

// EventSource lists events on a calendar whose time range intersects a
// window. *google.CalendarClient is the production implementation;
// tests substitute fixtures.
type EventSource interface {
	EventsInWindow(ctx context.Context, calendarID string, start, end time.Time) ([]models.Event, error)
}

// Report summarizes one sync run.
type Report struct {
	Fetched   int // events returned by the remote listing
	TotalRows int // rows in the local table after the run
}

// Syncer orchestrates one synchronization run from an EventSource into
// the store.
type Syncer struct {
	logger *slog.Logger
	source EventSource
	store  *store.Store
}

// New creates a Syncer.
func New(logger *slog.Logger, source EventSource, st *store.Store) *Syncer {
	return &Syncer{logger: logger, source: source, store: st}
}

// Sync fetches every event on calendarID within [start, end) and
// upserts the whole batch in a single transaction. A fetch or store
// failure aborts the run with the table left in its prior state.
func (s *Syncer) Sync(ctx context.Context, calendarID string, start, end time.Time) (Report, error) {
	s.logger.Info("Starting sync.", "calendarID", calendarID, "windowStart", start, "windowEnd", end)

	events, err := s.source.EventsInWindow(ctx, calendarID, start, end)
	if err != nil {
		return Report{}, fmt.Errorf("failed to fetch events: %w", err)
	}

	if err := s.store.UpsertEvents(ctx, events); err != nil {
		return Report{}, fmt.Errorf("failed to store events: %w", err)
	}

	total, err := s.store.CountEvents(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to count events: %w", err)
	}

	s.logger.Info("Sync finished.", "fetched", len(events), "totalRows", total)
	return Report{Fetched: len(events), TotalRows: total}, nil
}
