// Package business provides tools that act on outside business
// systems, currently Google Calendar.
package business

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/ava-voice/ava-agent/src/logger"
)

// CalendarAPI is the calendar surface the tools depend on. Production
// code talks to Google Calendar; tests substitute a fake.
type CalendarAPI interface {
	ListEvents(ctx context.Context, timeMin, timeMax string) ([]*calendar.Event, error)
	GetEvent(ctx context.Context, eventID string) (*calendar.Event, error)
	CreateEvent(ctx context.Context, summary, description, start, end string) (*calendar.Event, error)
}

// GoogleCalendar talks to the Google Calendar API with service-account
// credentials
type GoogleCalendar struct {
	service    *calendar.Service
	calendarID string
	timezone   string
	log        *logger.Logger
}

// NewGoogleCalendar authenticates with a service-account key file. An
// empty calendar id falls back to the account's primary calendar.
func NewGoogleCalendar(ctx context.Context, credentialsPath, calendarID, timezone string) (*GoogleCalendar, error) {
	service, err := calendar.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(calendar.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar auth: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}

	log := logger.WithPrefix("[GCalendar]")
	log.Info("connected calendar=%s", calendarID)
	return &GoogleCalendar{
		service:    service,
		calendarID: calendarID,
		timezone:   timezone,
		log:        log,
	}, nil
}

// ListEvents returns all events in [timeMin, timeMax), following page
// tokens until the range is exhausted. Times are ISO 8601 strings.
func (g *GoogleCalendar) ListEvents(ctx context.Context, timeMin, timeMax string) ([]*calendar.Event, error) {
	var items []*calendar.Event
	pageToken := ""
	for {
		call := g.service.Events.List(g.calendarID).
			TimeMin(timeMin).
			TimeMax(timeMax).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(2500).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("calendar list: %w", err)
		}
		items = append(items, page.Items...)
		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	g.log.Info("fetched events calendar=%s count=%d", g.calendarID, len(items))
	return items, nil
}

// GetEvent returns one event by id
func (g *GoogleCalendar) GetEvent(ctx context.Context, eventID string) (*calendar.Event, error) {
	event, err := g.service.Events.Get(g.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar get %s: %w", eventID, err)
	}
	return event, nil
}

// CreateEvent inserts a new event. Start and end are ISO 8601 strings;
// the event zone comes from the configured timezone with env fallbacks.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, summary, description, start, end string) (*calendar.Event, error) {
	zone := resolveTimezone(g.timezone)
	event, err := g.service.Events.Insert(g.calendarID, &calendar.Event{
		Summary:     summary,
		Description: description,
		Start:       &calendar.EventDateTime{DateTime: start, TimeZone: zone},
		End:         &calendar.EventDateTime{DateTime: end, TimeZone: zone},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar insert: %w", err)
	}

	g.log.Info("event created calendar=%s event=%s", g.calendarID, event.Id)
	return event, nil
}

// resolveTimezone picks the zone for new events: configured value
// first, then GOOGLE_CALENDAR_TZ, then TZ, then UTC
func resolveTimezone(configured string) string {
	if configured != "" {
		return configured
	}
	if tz := os.Getenv("GOOGLE_CALENDAR_TZ"); tz != "" {
		return tz
	}
	if tz := os.Getenv("TZ"); tz != "" {
		return tz
	}
	return "UTC"
}
