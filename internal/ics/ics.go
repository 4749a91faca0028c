// Package ics renders stored events as iCalendar data.
package ics

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"calingest/internal/models"
)

const dateLayout = "2006-01-02"

// Calendar builds a VCALENDAR holding one VEVENT per stored event.
func Calendar(events []models.Event) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//calingest//EN")

	for _, e := range events {
		ve, err := Component(e)
		if err != nil {
			return nil, err
		}
		cal.Children = append(cal.Children, ve)
	}
	return cal, nil
}

// Component converts a stored event to a VEVENT. All-day rows become
// DATE properties, timed rows date-times, matching the stored
// representation.
func Component(e models.Event) (*ical.Component, error) {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, e.ID)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	if e.Summary != "" {
		ve.Props.SetText(ical.PropSummary, e.Summary)
	}
	if e.Description != "" {
		ve.Props.SetText(ical.PropDescription, e.Description)
	}
	if e.Location != "" {
		ve.Props.SetText(ical.PropLocation, e.Location)
	}

	if err := setTime(ve, ical.PropDateTimeStart, e.Start); err != nil {
		return nil, fmt.Errorf("event %s: %w", e.ID, err)
	}
	if err := setTime(ve, ical.PropDateTimeEnd, e.End); err != nil {
		return nil, fmt.Errorf("event %s: %w", e.ID, err)
	}
	return ve, nil
}

// Write encodes events as a single iCalendar stream.
func Write(w io.Writer, events []models.Event) error {
	cal, err := Calendar(events)
	if err != nil {
		return err
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func setTime(ve *ical.Component, name, value string) error {
	if value == "" {
		return nil
	}
	if d, err := time.Parse(dateLayout, value); err == nil {
		p := ical.NewProp(name)
		p.SetDate(d)
		ve.Props.Set(p)
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return fmt.Errorf("unparseable event time %q: %w", value, err)
	}
	ve.Props.SetDateTime(name, t)
	return nil
}
