package calendar

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"google.golang.org/api/option"

	"github.com/quantumlife/lifeos/internal/core"
	"github.com/quantumlife/lifeos/internal/testutil/mockservers"
)

func newTestClient(t *testing.T, mock *mockservers.CalendarMockServer) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), http.DefaultClient, option.WithEndpoint(mock.URL()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.now = func() time.Time { return time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC) }
	return c
}

func TestTodayEvents(t *testing.T) {
	mock := mockservers.NewCalendarMockServer(t)
	mock.SetEvents([]mockservers.CalendarEvent{
		{ID: "e1", Summary: "Планерка", Location: "Zoom", StartTime: "2024-01-15T10:00:00Z", EndTime: "2024-01-15T11:00:00Z"},
		{ID: "e2", Summary: "Отпуск", Date: "2024-01-15", EndDate: "2024-01-16"},
		{ID: "e3", Summary: "Отменено", Status: "cancelled", StartTime: "2024-01-15T12:00:00Z", EndTime: "2024-01-15T13:00:00Z"},
	})

	events, err := newTestClient(t, mock).TodayEvents(context.Background())
	if err != nil {
		t.Fatalf("TodayEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (cancelled skipped)", len(events))
	}

	first := events[0]
	if first.Summary != "Планерка" || first.Location != "Zoom" || first.AllDay {
		t.Errorf("unexpected first event %+v", first)
	}
	if !first.Start.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", first.Start)
	}
	if first.End.Sub(first.Start) != time.Hour {
		t.Errorf("duration = %v", first.End.Sub(first.Start))
	}
	if !events[1].AllDay {
		t.Error("date-only event should be all day")
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("got %d requests", len(reqs))
	}
	q := reqs[0].URL.Query()
	if q.Get("timeMin") != "2024-01-15T00:00:00Z" || q.Get("timeMax") != "2024-01-16T00:00:00Z" {
		t.Errorf("range = %s..%s", q.Get("timeMin"), q.Get("timeMax"))
	}
	if q.Get("singleEvents") != "true" || q.Get("orderBy") != "startTime" {
		t.Errorf("query = %v", q)
	}
}

func TestTodayEventsUpstreamFailure(t *testing.T) {
	mock := mockservers.NewCalendarMockServer(t)
	mock.SetErrorResponse("/calendars/primary/events", http.StatusUnauthorized, "Invalid Credentials")

	_, err := newTestClient(t, mock).TodayEvents(context.Background())
	if !errors.Is(err, core.ErrUpstreamFailure) {
		t.Errorf("got %v, want ErrUpstreamFailure", err)
	}
}

func TestUpcomingEventsRange(t *testing.T) {
	mock := mockservers.NewCalendarMockServer(t)
	if _, err := newTestClient(t, mock).UpcomingEvents(context.Background(), 3); err != nil {
		t.Fatalf("UpcomingEvents: %v", err)
	}
	q := mock.Requests()[0].URL.Query()
	if q.Get("timeMin") != "2024-01-15T14:30:00Z" || q.Get("timeMax") != "2024-01-18T14:30:00Z" {
		t.Errorf("range = %s..%s", q.Get("timeMin"), q.Get("timeMax"))
	}
}
