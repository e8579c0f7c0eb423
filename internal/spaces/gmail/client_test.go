package gmail

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/quantumlife/lifeos/internal/core"
	"github.com/quantumlife/lifeos/internal/testutil/mockservers"
)

func newTestClient(t *testing.T, mock *mockservers.GmailMockServer) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), http.DefaultClient, option.WithEndpoint(mock.URL()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestUnread(t *testing.T) {
	mock := mockservers.NewGmailMockServer(t)

	msgs, err := newTestClient(t, mock).Unread(context.Background(), 10)
	if err != nil {
		t.Fatalf("Unread: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}

	m := msgs[0]
	if m.ID != "msg-001" || m.From != "sender@example.com" || m.Subject != "Test Email Subject" {
		t.Errorf("unexpected message %+v", m)
	}
	if !m.IsUnread {
		t.Error("message should be unread")
	}
	if !m.Date.Equal(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("date = %v", m.Date)
	}
	if msgs[1].From != "Анна <anna@example.com>" {
		t.Errorf("second from = %q", msgs[1].From)
	}

	if q := mock.Queries(); len(q) != 1 || q[0] != UnreadQuery {
		t.Errorf("queries = %v", q)
	}
}

func TestUnreadUpstreamFailure(t *testing.T) {
	mock := mockservers.NewGmailMockServer(t)
	mock.SetErrorResponse("/users/me/messages", http.StatusForbidden, "Insufficient Permission")

	_, err := newTestClient(t, mock).Unread(context.Background(), 10)
	if !errors.Is(err, core.ErrUpstreamFailure) {
		t.Errorf("got %v, want ErrUpstreamFailure", err)
	}
}

func TestToMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  *gmail.Message
		want Message
	}{
		{
			name: "headers",
			msg: &gmail.Message{
				Id:       "a",
				Snippet:  "Tom &amp; Jerry",
				LabelIds: []string{"INBOX", "UNREAD"},
				Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{
					{Name: "From", Value: "Анна <anna@example.com>"},
					{Name: "Subject", Value: "Отчет"},
					{Name: "Date", Value: "Mon, 2 Jan 2006 15:04:05 -0700"},
				}},
			},
			want: Message{
				ID: "a", From: "Анна <anna@example.com>", Subject: "Отчет", Snippet: "Tom & Jerry",
				Date: time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC), IsUnread: true,
			},
		},
		{
			name: "unparseable date falls back to internal date",
			msg: &gmail.Message{
				Id:           "b",
				InternalDate: 1705315800000,
				Payload: &gmail.MessagePart{Headers: []*gmail.MessagePartHeader{
					{Name: "Date", Value: "yesterday"},
				}},
			},
			want: Message{ID: "b", Date: time.UnixMilli(1705315800000)},
		},
		{
			name: "no payload",
			msg:  &gmail.Message{Id: "c"},
			want: Message{ID: "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toMessage(tt.msg)
			if got.ID != tt.want.ID || got.From != tt.want.From || got.Subject != tt.want.Subject ||
				got.Snippet != tt.want.Snippet || got.IsUnread != tt.want.IsUnread || !got.Date.Equal(tt.want.Date) {
				t.Errorf("toMessage() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
