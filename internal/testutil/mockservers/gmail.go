// Package mockservers provides httptest mock servers for external APIs.
package mockservers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// serve starts a server that dispatches on the first handler whose
// pattern is contained in the request path. Unmatched paths get a
// Google-style JSON 404.
func serve(t *testing.T, mu *sync.Mutex, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		mu.Lock()
		var match http.HandlerFunc
		longest := -1
		for pattern, handler := range handlers {
			if strings.Contains(r.URL.Path, pattern) && len(pattern) > longest {
				match, longest = handler, len(pattern)
			}
		}
		mu.Unlock()

		if match != nil {
			match(w, r)
			return
		}

		writeError(w, http.StatusNotFound, "Not Found")
	}))

	t.Cleanup(srv.Close)
	return srv
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

// GmailMessage describes one message served by GmailMockServer.
type GmailMessage struct {
	ID      string
	From    string
	Subject string
	Date    string
	Snippet string
	Unread  bool
}

// GmailMockServer provides a mock Gmail API server for testing.
type GmailMockServer struct {
	Server   *httptest.Server
	Handlers map[string]http.HandlerFunc

	mu       sync.Mutex
	messages []GmailMessage
	queries  []string
}

// NewGmailMockServer creates a new mock Gmail API server holding two
// unread messages.
func NewGmailMockServer(t *testing.T) *GmailMockServer {
	t.Helper()

	mock := &GmailMockServer{Handlers: make(map[string]http.HandlerFunc)}
	mock.SetMessages([]GmailMessage{
		{
			ID:      "msg-001",
			From:    "sender@example.com",
			Subject: "Test Email Subject",
			Date:    "Mon, 15 Jan 2024 10:30:00 +0000",
			Snippet: "This is the message snippet...",
			Unread:  true,
		},
		{
			ID:      "msg-002",
			From:    "Анна <anna@example.com>",
			Subject: "Отчет",
			Date:    "Mon, 15 Jan 2024 09:00:00 +0000",
			Snippet: "Привет! Высылаю отчет",
			Unread:  true,
		},
	})
	mock.SetupDefaults()
	mock.Server = serve(t, &mock.mu, mock.Handlers)
	return mock
}

// SetupDefaults sets up default response handlers.
func (m *GmailMockServer) SetupDefaults() {
	m.Handlers["/users/me/messages"] = func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		rest := r.URL.Path[strings.Index(r.URL.Path, "/users/me/messages")+len("/users/me/messages"):]
		id := strings.TrimPrefix(rest, "/")

		// List messages
		if id == "" {
			m.queries = append(m.queries, r.URL.Query().Get("q"))
			list := make([]map[string]interface{}, 0, len(m.messages))
			for _, msg := range m.messages {
				list = append(list, map[string]interface{}{"id": msg.ID, "threadId": "thread-" + msg.ID})
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"messages":           list,
				"resultSizeEstimate": len(list),
			})
			return
		}

		// Get specific message
		for _, msg := range m.messages {
			if msg.ID == id {
				json.NewEncoder(w).Encode(gmailPayload(msg))
				return
			}
		}
		writeError(w, http.StatusNotFound, "Requested entity was not found.")
	}
}

func gmailPayload(msg GmailMessage) map[string]interface{} {
	labels := []string{"INBOX"}
	if msg.Unread {
		labels = append(labels, "UNREAD")
	}
	return map[string]interface{}{
		"id":       msg.ID,
		"threadId": "thread-" + msg.ID,
		"labelIds": labels,
		"snippet":  msg.Snippet,
		"payload": map[string]interface{}{
			"headers": []map[string]string{
				{"name": "From", "value": msg.From},
				{"name": "Subject", "value": msg.Subject},
				{"name": "Date", "value": msg.Date},
			},
		},
		"internalDate": "1705315800000",
	}
}

// URL returns the mock server URL with a trailing slash, suitable for
// option.WithEndpoint.
func (m *GmailMockServer) URL() string {
	return m.Server.URL + "/"
}

// SetMessages replaces the served messages.
func (m *GmailMockServer) SetMessages(messages []GmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = messages
}

// Queries returns the q parameters received by list calls.
func (m *GmailMockServer) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// SetErrorResponse sets an error response for a path pattern.
func (m *GmailMockServer) SetErrorResponse(pattern string, code int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Handlers[pattern] = func(w http.ResponseWriter, r *http.Request) {
		writeError(w, code, message)
	}
}
