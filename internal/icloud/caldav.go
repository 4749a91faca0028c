// Package icloud publishes stored events to an iCloud calendar over
// CalDAV.
package icloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"calingest/internal/ics"
	"calingest/internal/models"
)

const iCloudCalDAVEndpoint = "https://caldav.icloud.com/"

// customTransport handles adding Basic Auth and custom headers to
// requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "calingest/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVClient is a client for publishing events to a CalDAV server
// (iCloud).
type CalDAVClient struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	calendarURL  string
}

// NewClient creates a CalDAVClient and resolves the URL of the named
// iCloud calendar.
func NewClient(ctx context.Context, logger *slog.Logger, username, password, calendarName string) (*CalDAVClient, error) {
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, iCloudCalDAVEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	webdavClient, err := webdav.NewClient(httpClient, iCloudCalDAVEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
	}

	logger.Info("Finding iCloud calendar", "calendarName", calendarName)
	calendarURL, err := c.findCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarURL = calendarURL
	logger.Info("Found iCloud calendar", "url", calendarURL)

	return c, nil
}

// PushEvent writes one stored event as an .ics resource in the
// calendar. Re-pushing an event overwrites the resource with the same
// UID.
func (c *CalDAVClient) PushEvent(ctx context.Context, event models.Event) error {
	uid := event.ID
	if uid == "" {
		uid = uuid.New().String()
	}
	c.logger.Debug("Pushing event to iCloud", "summary", event.Summary, "uid", uid)

	ve, err := ics.Component(event)
	if err != nil {
		return err
	}
	ve.Props.SetText(ical.PropUID, uid)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//calingest//EN")
	cal.Children = append(cal.Children, ve)

	// The event path must be relative to the endpoint for the webdav
	// client.
	eventPath := path.Join(strings.TrimPrefix(c.calendarURL, iCloudCalDAVEndpoint), fmt.Sprintf("%s.ics", uid))

	writer, err := c.webdavClient.Create(ctx, eventPath)
	if err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	defer writer.Close()

	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}

	c.logger.Info("Pushed event to iCloud", "summary", event.Summary)
	return nil
}

// findCalendar discovers the user's calendars and returns the URL for
// the one with the matching name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return fmt.Sprintf("%s%s", strings.TrimSuffix(iCloudCalDAVEndpoint, "/"), cal.Path), nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
