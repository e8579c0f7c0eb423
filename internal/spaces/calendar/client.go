// Package calendar reads today's agenda from Google Calendar.
package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/quantumlife/lifeos/internal/core"
)

// Client wraps the Google Calendar API
type Client struct {
	service    *calendar.Service
	calendarID string
	now        func() time.Time
}

// NewClient creates a Calendar client on top of an authorized HTTP client.
// Extra options are appended, which lets tests point it at a fake endpoint.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	return &Client{
		service:    service,
		calendarID: "primary",
		now:        time.Now,
	}, nil
}

// Event represents a calendar event
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
	Status      string    `json:"status"` // confirmed, tentative, cancelled
	Link        string    `json:"link,omitempty"`
}

// GetEvents retrieves events within a time range, ordered by start
func (c *Client) GetEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	events, err := c.service.Events.List(c.calendarID).
		Context(ctx).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: list events: %w", core.ErrUpstreamFailure, err)
	}

	return convertEvents(events.Items), nil
}

// TodayEvents retrieves today's events, skipping cancelled ones
func (c *Client) TodayEvents(ctx context.Context) ([]Event, error) {
	now := c.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	events, err := c.GetEvents(ctx, startOfDay, startOfDay.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	kept := events[:0]
	for _, e := range events {
		if e.Status != "cancelled" {
			kept = append(kept, e)
		}
	}
	return kept, nil
}

// UpcomingEvents retrieves events for the next days
func (c *Client) UpcomingEvents(ctx context.Context, days int) ([]Event, error) {
	now := c.now()
	return c.GetEvents(ctx, now, now.AddDate(0, 0, days))
}

// convertEvents converts Google Calendar events to our Event type
func convertEvents(items []*calendar.Event) []Event {
	events := make([]Event, 0, len(items))

	for _, item := range items {
		event := Event{
			ID:          item.Id,
			Summary:     item.Summary,
			Description: item.Description,
			Location:    item.Location,
			Status:      item.Status,
			Link:        item.HtmlLink,
		}

		// All-day events carry a date instead of a date-time
		if item.Start != nil {
			if item.Start.DateTime != "" {
				event.Start, _ = time.Parse(time.RFC3339, item.Start.DateTime)
			} else if item.Start.Date != "" {
				event.Start, _ = time.ParseInLocation("2006-01-02", item.Start.Date, time.Local)
				event.AllDay = true
			}
		}

		if item.End != nil {
			if item.End.DateTime != "" {
				event.End, _ = time.Parse(time.RFC3339, item.End.DateTime)
			} else if item.End.Date != "" {
				event.End, _ = time.ParseInLocation("2006-01-02", item.End.Date, time.Local)
			}
		}

		events = append(events, event)
	}

	return events
}
