package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"calingest/internal/google"
	"calingest/internal/icloud"
	"calingest/internal/ics"
	"calingest/internal/store"
	"calingest/internal/syncer"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "calingest",
		Usage: "Ingest Google Calendar events into a local SQLite database.",
		Commands: []*cli.Command{
			authCommand(),
			ingestCommand(),
			exportCommand(),
			pushCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "credentials", Value: "credentials.json", Usage: "OAuth client secret file."},
		&cli.StringFlag{Name: "token", Value: "token.json", Usage: "Stored OAuth token file."},
	}
}

func oauthConfig(c *cli.Context) (*oauth2.Config, error) {
	return google.OAuthConfig(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"), c.String("credentials"))
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account and store the API token.",
		Flags: credentialFlags(),
		Action: func(c *cli.Context) error {
			logger := setupLogger(logLevel())
			logger.Info("Starting Google authentication flow.")

			config, err := oauthConfig(c)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			if _, err := google.Obtain(c.Context, config, c.String("token"), os.Stdin); err != nil {
				return err
			}

			logger.Info("Successfully authenticated and saved token.", "file", c.String("token"))
			return nil
		},
	}
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Fetch upcoming events and upsert them into the database.",
		Flags: append([]cli.Flag{
			&cli.IntFlag{Name: "days", Value: 7, Usage: "Days ahead to fetch."},
			&cli.StringFlag{Name: "db", Value: "events.db", Usage: "SQLite database file."},
			&cli.StringFlag{Name: "calendar", Value: "primary", Usage: "Calendar ID to query."},
		}, credentialFlags()...),
		Action: func(c *cli.Context) error {
			logger := setupLogger(logLevel())

			config, err := oauthConfig(c)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			token, err := google.Obtain(c.Context, config, c.String("token"), os.Stdin)
			if err != nil {
				return err
			}

			client, err := google.NewClient(c.Context, logger, config, token)
			if err != nil {
				return fmt.Errorf("failed to create google client: %w", err)
			}

			st, err := store.Open(c.String("db"))
			if err != nil {
				return fmt.Errorf("failed to open event store: %w", err)
			}
			defer st.Close()

			start, end := google.Window(time.Now(), c.Int("days"))
			report, err := syncer.New(logger, client, st).Sync(c.Context, c.String("calendar"), start, end)
			if err != nil {
				return err
			}

			fmt.Printf("Fetched %d events – DB now has %d rows.\n", report.Fetched, report.TotalRows)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write all stored events to an iCalendar file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Value: "events.db", Usage: "SQLite database file."},
			&cli.StringFlag{Name: "output", Value: "events.ics", Usage: "Output .ics file."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(logLevel())

			st, err := store.Open(c.String("db"))
			if err != nil {
				return fmt.Errorf("failed to open event store: %w", err)
			}
			defer st.Close()

			events, err := st.ListEvents(c.Context)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				return fmt.Errorf("no events in %s, run ingest first", c.String("db"))
			}

			f, err := os.Create(c.String("output"))
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()

			if err := ics.Write(f, events); err != nil {
				return err
			}

			logger.Info("Exported events.", "count", len(events), "file", c.String("output"))
			return nil
		},
	}
}

func pushCommand() *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Publish all stored events to the configured iCloud calendar.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Value: "events.db", Usage: "SQLite database file."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(logLevel())

			iClient, err := icloud.NewClient(c.Context, logger,
				os.Getenv("ICLOUD_USERNAME"),
				os.Getenv("ICLOUD_APP_SPECIFIC_PASSWORD"),
				os.Getenv("ICLOUD_CALENDAR_NAME"))
			if err != nil {
				return fmt.Errorf("failed to create icloud client: %w", err)
			}

			st, err := store.Open(c.String("db"))
			if err != nil {
				return fmt.Errorf("failed to open event store: %w", err)
			}
			defer st.Close()

			events, err := st.ListEvents(c.Context)
			if err != nil {
				return err
			}

			pushed := 0
			for _, event := range events {
				if err := iClient.PushEvent(c.Context, event); err != nil {
					logger.Error("Failed to push event", "summary", event.Summary, "error", err)
					// Continue with the next event even if one fails.
					continue
				}
				pushed++
			}

			logger.Info("Push finished.", "pushed", pushed, "total", len(events))
			return nil
		},
	}
}

func logLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	return level
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
