// Package todoist is a small client for the Todoist REST API v2, used to
// mirror captured tasks and to list and close today's tasks.
package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/quantumlife/lifeos/internal/core"
)

// DefaultBaseURL is the public REST endpoint
const DefaultBaseURL = "https://api.todoist.com/rest/v2"

// Client is a Todoist API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a client authenticating with a personal API token
func NewClient(baseURL, apiToken string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	// The token never expires, so a static source is enough for bearer auth
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiToken, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Due is a task's due date
type Due struct {
	Date        string `json:"date"`
	String      string `json:"string,omitempty"`
	IsRecurring bool   `json:"is_recurring"`
	Datetime    string `json:"datetime,omitempty"`
}

// Task is a Todoist task
type Task struct {
	ID          string   `json:"id"`
	Content     string   `json:"content"`
	Description string   `json:"description,omitempty"`
	ProjectID   string   `json:"project_id,omitempty"`
	Priority    int      `json:"priority"`
	Labels      []string `json:"labels,omitempty"`
	Due         *Due     `json:"due,omitempty"`
	URL         string   `json:"url,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// Project is a Todoist project
type Project struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// NewTask is the body of a create request
type NewTask struct {
	Content     string   `json:"content"`
	Description string   `json:"description,omitempty"`
	ProjectID   string   `json:"project_id,omitempty"`
	Priority    int      `json:"priority,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	DueString   string   `json:"due_string,omitempty"`
}

// CreateTask adds a task with default settings and returns its id
func (c *Client) CreateTask(ctx context.Context, content string) (string, error) {
	t, err := c.Create(ctx, NewTask{Content: content})
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

// Create adds a task
func (c *Client) Create(ctx context.Context, in NewTask) (*Task, error) {
	var out Task
	if err := c.do(ctx, http.MethodPost, "/tasks", in, &out); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &out, nil
}

// CloseTask marks a task complete
func (c *Client) CloseTask(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/close", nil, nil); err != nil {
		return fmt.Errorf("close task %s: %w", id, err)
	}
	return nil
}

// TodayTasks returns tasks due today
func (c *Client) TodayTasks(ctx context.Context) ([]Task, error) {
	return c.Filter(ctx, "due:"+c.now().Format("2006-01-02"))
}

// UpcomingTasks returns tasks due within the next days
func (c *Client) UpcomingTasks(ctx context.Context, days int) ([]Task, error) {
	return c.Filter(ctx, fmt.Sprintf("due before: +%d days", days))
}

// Filter lists active tasks matching a Todoist filter query
func (c *Client) Filter(ctx context.Context, filter string) ([]Task, error) {
	var tasks []Task
	if err := c.do(ctx, http.MethodGet, "/tasks?filter="+url.QueryEscape(filter), nil, &tasks); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Projects lists the user's projects
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// do performs a request. Transport failures and non-2xx statuses are
// reported as core.ErrUpstreamFailure.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: todoist status %d: %s", core.ErrUpstreamFailure, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", core.ErrUpstreamFailure, err)
	}
	return nil
}
