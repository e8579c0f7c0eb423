package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/quantumlife/lifeos/internal/audit"
	"github.com/quantumlife/lifeos/internal/capture"
	"github.com/quantumlife/lifeos/internal/core"
	"github.com/quantumlife/lifeos/internal/journal"
	"github.com/quantumlife/lifeos/internal/logging"
	"github.com/quantumlife/lifeos/internal/session"
	"github.com/quantumlife/lifeos/internal/spaces/calendar"
	"github.com/quantumlife/lifeos/internal/spaces/gmail"
	"github.com/quantumlife/lifeos/internal/speech"
	"github.com/quantumlife/lifeos/internal/storage"
	"github.com/quantumlife/lifeos/internal/todoist"
)

// quickCaptureLimit is the longest text (in runes) offered for quick capture
const quickCaptureLimit = 100

// TaskService is the external task service as seen by the bot
type TaskService interface {
	TodayTasks(ctx context.Context) ([]todoist.Task, error)
	CloseTask(ctx context.Context, id string) error
}

// TaskLinks maps journal tasks to their external copies
type TaskLinks interface {
	Link(taskKey, remoteID, content string) error
	ByKey(taskKey string) (*storage.TaskLink, error)
	ByRemoteID(remoteID string) (*storage.TaskLink, error)
}

// Agenda lists today's calendar events
type Agenda interface {
	TodayEvents(ctx context.Context) ([]calendar.Event, error)
}

// Inbox lists unread mail
type Inbox interface {
	Unread(ctx context.Context, limit int64) ([]*gmail.Message, error)
}

// Deps are the collaborators of the dispatcher. Ledger is required; the
// optional services stay nil when not configured.
type Deps struct {
	Ledger   *journal.Ledger
	Scores   *journal.AssessmentStore
	Stats    *journal.Stats
	Sessions *session.Store
	Router   *capture.Router

	Transcriber speech.Transcriber
	Tasks       TaskService
	Links       TaskLinks
	Agenda      Agenda
	Inbox       Inbox
	Audit       *audit.Recorder

	QuickCapture bool
}

// chatState is the per-chat conversation context outside voice sessions
type chatState struct {
	selectedArea  string
	awaitingHabit bool
	quick         map[string]string // quick-capture key -> text
}

// Dispatcher routes events to handlers
type Dispatcher struct {
	deps Deps

	mu    sync.Mutex
	chats map[int64]*chatState
}

// NewDispatcher creates a dispatcher, filling in journal-derived defaults
func NewDispatcher(deps Deps) *Dispatcher {
	if deps.Scores == nil {
		deps.Scores = journal.NewAssessmentStore(deps.Ledger)
	}
	if deps.Stats == nil {
		deps.Stats = journal.NewStats(deps.Ledger)
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewStore()
	}
	if deps.Router == nil {
		deps.Router = capture.NewRouter(deps.Ledger)
	}
	return &Dispatcher{
		deps:  deps,
		chats: make(map[int64]*chatState),
	}
}

// Sessions exposes the voice session store
func (d *Dispatcher) Sessions() *session.Store { return d.deps.Sessions }

// Handle processes one event. It never fails: errors become a short
// message for the user and a log line with the details.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (replies []Reply) {
	log := logging.WithFields(map[string]interface{}{
		"chat_id": ev.ChatID,
		"kind":    string(ev.Kind),
	})

	defer func() {
		if r := recover(); r != nil {
			log.Error("Handler panic: %v\n%s", r, debug.Stack())
			replies = []Reply{d.failure(ev, fmt.Errorf("panic: %v", r))}
		}
	}()

	replies, err := d.route(ctx, ev)
	if err != nil {
		log.WithField("command", ev.Command).Error("Handler failed: %v", err)
		return []Reply{d.failure(ev, err)}
	}
	return replies
}

func (d *Dispatcher) failure(ev Event, err error) Reply {
	r := plain(failureMessage(err))
	if ev.Kind == EventButton {
		r.Edit = true
	}
	return r
}

func (d *Dispatcher) route(ctx context.Context, ev Event) ([]Reply, error) {
	switch ev.Kind {
	case EventCommand:
		return d.handleCommand(ctx, ev)
	case EventText:
		return d.handleText(ctx, ev)
	case EventVoice:
		return d.handleVoice(ctx, ev)
	case EventButton:
		a, err := DecodeAction(ev.Data)
		if err != nil {
			return nil, err
		}
		return d.handleAction(ctx, ev, a)
	default:
		return nil, nil
	}
}

func (st *chatState) empty() bool {
	return st.selectedArea == "" && !st.awaitingHabit && len(st.quick) == 0
}

// update applies fn to the chat's state. Chats left with no state are
// forgotten, so the map only holds chats mid-conversation.
func (d *Dispatcher) update(chatID int64, fn func(st *chatState)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.chats[chatID]
	if !ok {
		st = &chatState{quick: make(map[string]string)}
	}
	fn(st)
	if st.empty() {
		delete(d.chats, chatID)
	} else {
		d.chats[chatID] = st
	}
}

func (d *Dispatcher) setSelectedArea(chatID int64, area string) {
	d.update(chatID, func(st *chatState) { st.selectedArea = area })
}

// takeSelectedArea returns and clears the chosen area
func (d *Dispatcher) takeSelectedArea(chatID int64) (area string) {
	d.update(chatID, func(st *chatState) {
		area, st.selectedArea = st.selectedArea, ""
	})
	return area
}

func (d *Dispatcher) setAwaitingHabit(chatID int64, v bool) {
	d.update(chatID, func(st *chatState) { st.awaitingHabit = v })
}

func (d *Dispatcher) takeAwaitingHabit(chatID int64) (v bool) {
	d.update(chatID, func(st *chatState) {
		v, st.awaitingHabit = st.awaitingHabit, false
	})
	return v
}

// maxQuickPending bounds remembered quick-capture offers per chat
const maxQuickPending = 20

func (d *Dispatcher) rememberQuick(chatID int64, text string) string {
	key := journal.TaskKey(text)
	d.update(chatID, func(st *chatState) {
		if len(st.quick) >= maxQuickPending {
			st.quick = make(map[string]string)
		}
		st.quick[key] = text
	})
	return key
}

func (d *Dispatcher) takeQuick(chatID int64, key string) (text string, ok bool) {
	d.update(chatID, func(st *chatState) {
		text, ok = st.quick[key]
		delete(st.quick, key)
	})
	return text, ok
}

func (d *Dispatcher) trackedChats() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.chats)
}

// captured runs the bookkeeping after a capture: task link and audit entry
func (d *Dispatcher) captured(ev Event, res *capture.Result) {
	cat := core.CategoryIdeas
	if res.Kind == capture.KindTask {
		cat = core.CategoryTasks
		if res.MirrorID != "" && d.deps.Links != nil {
			if err := d.deps.Links.Link(journal.TaskKey(res.Content), res.MirrorID, res.Content); err != nil {
				logging.WithField("remote_id", res.MirrorID).Warn("Task link not stored: %v", err)
			}
		}
	}
	d.audit(d.deps.Audit.RecordCapture(ev.ChatID, cat, res.Content, res.MirrorID))
}

// audit logs a failed audit write; the journal stays the source of truth
func (d *Dispatcher) audit(err error) {
	if err != nil {
		logging.Warn("Audit append failed: %v", err)
	}
}
