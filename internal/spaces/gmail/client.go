// Package gmail lists unread inbox mail for the /inbox digest.
package gmail

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/mail"
	"slices"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/quantumlife/lifeos/internal/core"
)

// UnreadQuery selects unread messages still in the inbox
const UnreadQuery = "is:unread in:inbox"

// digestHeaders are the only headers the digest asks Gmail for
var digestHeaders = []string{"From", "Subject", "Date"}

// Client reads the authorized user's mailbox
type Client struct {
	service *gmail.Service
	user    string
}

// NewClient creates a Gmail client on top of an authorized HTTP client
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Client{service: service, user: "me"}, nil
}

// Message is one digest line. Bodies are never fetched.
type Message struct {
	ID       string    `json:"id"`
	From     string    `json:"from"`
	Subject  string    `json:"subject"`
	Snippet  string    `json:"snippet"`
	Date     time.Time `json:"date"`
	IsUnread bool      `json:"is_unread"`
}

// Unread returns up to limit unread inbox messages in Gmail's order
// (newest first).
func (c *Client) Unread(ctx context.Context, limit int64) ([]*Message, error) {
	list := c.service.Users.Messages.List(c.user).Q(UnreadQuery)
	if limit > 0 {
		list = list.MaxResults(limit)
	}
	resp, err := list.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %w", core.ErrUpstreamFailure, err)
	}

	messages := make([]*Message, 0, len(resp.Messages))
	for _, ref := range resp.Messages {
		msg, err := c.service.Users.Messages.Get(c.user, ref.Id).
			Format("metadata").
			MetadataHeaders(digestHeaders...).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("%w: get message %s: %w", core.ErrUpstreamFailure, ref.Id, err)
		}
		messages = append(messages, toMessage(msg))
	}
	return messages, nil
}

func toMessage(msg *gmail.Message) *Message {
	m := &Message{
		ID:       msg.Id,
		Snippet:  html.UnescapeString(msg.Snippet),
		IsUnread: slices.Contains(msg.LabelIds, "UNREAD"),
	}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "From":
				m.From = h.Value
			case "Subject":
				m.Subject = h.Value
			case "Date":
				if t, err := mail.ParseDate(h.Value); err == nil {
					m.Date = t
				}
			}
		}
	}
	if m.Date.IsZero() && msg.InternalDate > 0 {
		m.Date = time.UnixMilli(msg.InternalDate)
	}
	return m
}
