package mockservers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// CalendarEvent describes one event served by CalendarMockServer.
// Date is set for all-day events, StartTime/EndTime otherwise.
type CalendarEvent struct {
	ID        string
	Summary   string
	Location  string
	Status    string
	StartTime string
	EndTime   string
	Date      string
	EndDate   string
}

// CalendarMockServer provides a mock Google Calendar API server for testing.
type CalendarMockServer struct {
	Server   *httptest.Server
	Handlers map[string]http.HandlerFunc

	mu       sync.Mutex
	events   []CalendarEvent
	requests []*http.Request
}

// NewCalendarMockServer creates a mock Calendar server with no events.
func NewCalendarMockServer(t *testing.T) *CalendarMockServer {
	t.Helper()

	mock := &CalendarMockServer{Handlers: make(map[string]http.HandlerFunc)}
	mock.SetupDefaults()
	mock.Server = serve(t, &mock.mu, mock.Handlers)
	return mock
}

// SetupDefaults sets up default response handlers.
func (m *CalendarMockServer) SetupDefaults() {
	m.Handlers["/calendars/primary/events"] = func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.requests = append(m.requests, r)

		items := make([]map[string]interface{}, 0, len(m.events))
		for _, e := range m.events {
			status := e.Status
			if status == "" {
				status = "confirmed"
			}
			item := map[string]interface{}{
				"id":       e.ID,
				"summary":  e.Summary,
				"location": e.Location,
				"status":   status,
				"htmlLink": "https://calendar.google.com/event?eid=" + e.ID,
			}
			if e.Date != "" {
				item["start"] = map[string]string{"date": e.Date}
				item["end"] = map[string]string{"date": e.EndDate}
			} else {
				item["start"] = map[string]string{"dateTime": e.StartTime}
				item["end"] = map[string]string{"dateTime": e.EndTime}
			}
			items = append(items, item)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"kind":  "calendar#events",
			"items": items,
		})
	}
}

// URL returns the mock server URL with a trailing slash, suitable for
// option.WithEndpoint.
func (m *CalendarMockServer) URL() string {
	return m.Server.URL + "/"
}

// SetEvents replaces the served events.
func (m *CalendarMockServer) SetEvents(events []CalendarEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = events
}

// Requests returns the list requests received so far.
func (m *CalendarMockServer) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.requests...)
}

// SetErrorResponse sets an error response for a path pattern.
func (m *CalendarMockServer) SetErrorResponse(pattern string, code int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Handlers[pattern] = func(w http.ResponseWriter, r *http.Request) {
		writeError(w, code, message)
	}
}
