package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/quantumlife/lifeos/internal/core"
	"github.com/quantumlife/lifeos/internal/journal"
	"github.com/quantumlife/lifeos/internal/logging"
)

// TaskMirror copies captured tasks into an external task service
type TaskMirror interface {
	CreateTask(ctx context.Context, content string) (string, error)
}

// Result describes what was written
type Result struct {
	Kind       Kind      `json:"kind"`
	Content    string    `json:"content"`
	CapturedAt time.Time `json:"captured_at"`
	MirrorID   string    `json:"mirror_id,omitempty"`
}

// Router classifies text and records it in the journal
type Router struct {
	ledger     *journal.Ledger
	classifier Classifier
	mirror     TaskMirror
	timeout    time.Duration
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithClassifier replaces the keyword classifier
func WithClassifier(c Classifier) RouterOption {
	return func(r *Router) { r.classifier = c }
}

// WithMirror enables the external task copy
func WithMirror(m TaskMirror) RouterOption {
	return func(r *Router) { r.mirror = m }
}

// WithMirrorTimeout bounds each mirror call
func WithMirrorTimeout(d time.Duration) RouterOption {
	return func(r *Router) { r.timeout = d }
}

// NewRouter creates a capture router
func NewRouter(l *journal.Ledger, opts ...RouterOption) *Router {
	r := &Router{
		ledger:     l,
		classifier: NewKeywordClassifier(),
		timeout:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Capture classifies text and records it
func (r *Router) Capture(ctx context.Context, text string) (*Result, error) {
	return r.CaptureAs(ctx, r.classifier.Classify(text), text)
}

// CaptureAs records text under an explicit kind.
// A failed mirror write is logged and never undoes the journal write.
func (r *Router) CaptureAs(ctx context.Context, kind Kind, text string) (*Result, error) {
	switch kind {
	case KindTask:
		task, err := r.ledger.SaveTask(text)
		if err != nil {
			return nil, fmt.Errorf("save task: %w", err)
		}
		res := &Result{Kind: KindTask, Content: task.Content, CapturedAt: task.CapturedAt}
		res.MirrorID = r.mirrorTask(ctx, task.Content)
		return res, nil

	case KindIdea:
		idea, err := r.ledger.SaveIdea(text)
		if err != nil {
			return nil, fmt.Errorf("save idea: %w", err)
		}
		return &Result{Kind: KindIdea, Content: idea.Content, CapturedAt: idea.CapturedAt}, nil

	default:
		return nil, fmt.Errorf("%w: capture kind %q", core.ErrInvalidInput, kind)
	}
}

// HasMirror reports whether tasks are copied externally
func (r *Router) HasMirror() bool { return r.mirror != nil }

func (r *Router) mirrorTask(ctx context.Context, content string) string {
	if r.mirror == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	id, err := r.mirror.CreateTask(ctx, content)
	if err != nil {
		logging.WithField("content", content).Warn("Task mirror failed: %v", err)
		return ""
	}
	logging.Debug("Task mirrored as %s", id)
	return id
}
