package business

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/ava-voice/ava-agent/src/tools"
)

// ListEvents reads the calendar over a time range, for availability
// questions mid-call
type ListEvents struct {
	api CalendarAPI
}

// NewListEvents creates the list tool over a calendar client
func NewListEvents(api CalendarAPI) *ListEvents { return &ListEvents{api: api} }

func (t *ListEvents) Definition() tools.Definition {
	return tools.Definition{
		Name:             "list_calendar_events",
		Description:      "List calendar events between two points in time, for example to check availability before booking.",
		Category:         "business",
		MaxExecutionTime: 15 * time.Second,
		Parameters: []tools.Parameter{
			{Name: "time_min", Type: "string", Description: "Start of the range, ISO 8601", Required: true},
			{Name: "time_max", Type: "string", Description: "End of the range, ISO 8601", Required: true},
		},
	}
}

func (t *ListEvents) Execute(ctx context.Context, tc *tools.Context, params map[string]interface{}) tools.Result {
	timeMin := tools.StringParam(params, "time_min", "")
	timeMax := tools.StringParam(params, "time_max", "")
	if timeMin == "" || timeMax == "" {
		return tools.Fail("time_min and time_max are required")
	}

	events, err := t.api.ListEvents(ctx, timeMin, timeMax)
	if err != nil {
		return tools.Fail(fmt.Sprintf("listing events failed: %v", err))
	}

	summaries := make([]map[string]interface{}, 0, len(events))
	for _, e := range events {
		summaries = append(summaries, eventFields(e))
	}
	return tools.OK(fmt.Sprintf("found %d events", len(events))).
		With("events", summaries).
		With("count", len(events))
}

// GetEvent reads one event's details by id
type GetEvent struct {
	api CalendarAPI
}

// NewGetEvent creates the get tool over a calendar client
func NewGetEvent(api CalendarAPI) *GetEvent { return &GetEvent{api: api} }

func (t *GetEvent) Definition() tools.Definition {
	return tools.Definition{
		Name:             "get_calendar_event",
		Description:      "Fetch the details of one calendar event by its id.",
		Category:         "business",
		MaxExecutionTime: 15 * time.Second,
		Parameters: []tools.Parameter{
			{Name: "event_id", Type: "string", Description: "Calendar event id", Required: true},
		},
	}
}

func (t *GetEvent) Execute(ctx context.Context, tc *tools.Context, params map[string]interface{}) tools.Result {
	eventID := tools.StringParam(params, "event_id", "")
	if eventID == "" {
		return tools.Fail("event_id is required")
	}

	event, err := t.api.GetEvent(ctx, eventID)
	if err != nil {
		return tools.Fail(fmt.Sprintf("fetching event failed: %v", err))
	}
	return tools.OK("event found").With("event", eventFields(event))
}

// CreateEvent books a new calendar event
type CreateEvent struct {
	api CalendarAPI
}

// NewCreateEvent creates the booking tool over a calendar client
func NewCreateEvent(api CalendarAPI) *CreateEvent { return &CreateEvent{api: api} }

func (t *CreateEvent) Definition() tools.Definition {
	return tools.Definition{
		Name:             "create_calendar_event",
		Description:      "Book a new calendar event, for example an appointment the caller asked for.",
		Category:         "business",
		MaxExecutionTime: 15 * time.Second,
		Parameters: []tools.Parameter{
			{Name: "summary", Type: "string", Description: "Event title", Required: true},
			{Name: "description", Type: "string", Description: "Event details"},
			{Name: "start_datetime", Type: "string", Description: "Event start, ISO 8601", Required: true},
			{Name: "end_datetime", Type: "string", Description: "Event end, ISO 8601", Required: true},
		},
	}
}

func (t *CreateEvent) Execute(ctx context.Context, tc *tools.Context, params map[string]interface{}) tools.Result {
	summary := tools.StringParam(params, "summary", "")
	start := tools.StringParam(params, "start_datetime", "")
	end := tools.StringParam(params, "end_datetime", "")
	if summary == "" || start == "" || end == "" {
		return tools.Fail("summary, start_datetime and end_datetime are required")
	}

	event, err := t.api.CreateEvent(ctx, summary, tools.StringParam(params, "description", ""), start, end)
	if err != nil {
		return tools.Fail(fmt.Sprintf("creating event failed: %v", err))
	}
	return tools.OK("event created").
		With("event_id", event.Id).
		With("event", eventFields(event))
}

// eventFields flattens an event into the fields worth speaking back
func eventFields(e *calendar.Event) map[string]interface{} {
	fields := map[string]interface{}{
		"id":      e.Id,
		"summary": e.Summary,
	}
	if e.Description != "" {
		fields["description"] = e.Description
	}
	if e.Start != nil {
		fields["start"] = eventTime(e.Start)
	}
	if e.End != nil {
		fields["end"] = eventTime(e.End)
	}
	return fields
}

// eventTime prefers the timed form, falling back to the all-day date
func eventTime(dt *calendar.EventDateTime) string {
	if dt.DateTime != "" {
		return dt.DateTime
	}
	return dt.Date
}
