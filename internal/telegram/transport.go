// Package telegram connects the bot dispatcher to the Telegram Bot API
// through long polling.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/quantumlife/lifeos/internal/bot"
	"github.com/quantumlife/lifeos/internal/logging"
)

// API is the part of *tgbotapi.BotAPI the transport uses
type API interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Handler answers one event
type Handler interface {
	Handle(ctx context.Context, ev bot.Event) []bot.Reply
}

// Config for the transport
type Config struct {
	AdminUserID int64
	NotifyStart bool
	PollTimeout int // seconds

	MinBackoff time.Duration
	MaxBackoff time.Duration

	// MaxVoiceBytes caps downloaded voice notes
	MaxVoiceBytes int64

	// DrainTimeout bounds how long shutdown waits for queued updates
	DrainTimeout time.Duration
}

func (c *Config) defaults() {
	if c.PollTimeout <= 0 {
		c.PollTimeout = 60
	}
	if c.MinBackoff <= 0 {
		c.MinBackoff = 5 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 300 * time.Second
	}
	if c.MaxVoiceBytes <= 0 {
		c.MaxVoiceBytes = 20 << 20
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 10 * time.Second
	}
}

// Transport polls updates and relays them to the handler. Updates of one
// chat are handled in order; different chats proceed concurrently.
// A chat has a worker only while it has queued updates.
type Transport struct {
	api     API
	handler Handler
	cfg     Config
	client  *http.Client

	mu     sync.Mutex
	queues map[int64][]tgbotapi.Update
	wg     sync.WaitGroup
}

// New creates a transport
func New(api API, handler Handler, cfg Config) *Transport {
	cfg.defaults()
	return &Transport{
		api:     api,
		handler: handler,
		cfg:     cfg,
		client:  &http.Client{Timeout: 60 * time.Second},
		queues:  make(map[int64][]tgbotapi.Update),
	}
}

// Connect logs in with a bot token
func Connect(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = debug
	logging.Info("Authorized as @%s", api.Self.UserName)
	return api, nil
}

// Run polls until ctx is cancelled. Polling errors never end the loop;
// they back off from MinBackoff up to MaxBackoff. Updates already
// acknowledged when ctx ends are still handled, for up to DrainTimeout.
func (t *Transport) Run(ctx context.Context) error {
	t.publishCommands()
	t.notifyAdmin()

	// handlers outlive ctx while the queues drain
	work, stop := context.WithCancel(context.WithoutCancel(ctx))
	defer stop()

	offset := 0
	backoff := t.cfg.MinBackoff

	for {
		updates, err := t.poll(ctx, offset)
		if ctx.Err() != nil {
			t.drain(stop)
			return nil
		}
		if err != nil {
			logging.Error("Polling failed, retrying in %v: %v", backoff, err)
			select {
			case <-ctx.Done():
				t.drain(stop)
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > t.cfg.MaxBackoff {
				backoff = t.cfg.MaxBackoff
			}
			continue
		}
		backoff = t.cfg.MinBackoff

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			t.enqueue(work, u)
		}
	}
}

// drain waits for the chat workers. Past DrainTimeout the remaining
// updates are dropped and running handlers see a cancelled context.
func (t *Transport) drain(stop context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(t.cfg.DrainTimeout):
		logging.Warn("Shutdown: dropping %d queued updates", t.pending())
		stop()
		<-done
	}
}

func (t *Transport) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, q := range t.queues {
		n += len(q)
	}
	return n
}

// poll runs one long poll. The library call ignores contexts, so a
// cancelled ctx abandons the request instead of waiting it out.
func (t *Transport) poll(ctx context.Context, offset int) ([]tgbotapi.Update, error) {
	type result struct {
		updates []tgbotapi.Update
		err     error
	}
	ch := make(chan result, 1)

	go func() {
		cfg := tgbotapi.NewUpdate(offset)
		cfg.Timeout = t.cfg.PollTimeout
		cfg.AllowedUpdates = []string{"message", "callback_query"}
		updates, err := t.api.GetUpdates(cfg)
		ch <- result{updates, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.updates, r.err
	}
}

// enqueue never blocks: a slow chat only delays its own updates
func (t *Transport) enqueue(ctx context.Context, u tgbotapi.Update) {
	chatID := chatOf(u)
	if chatID == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	q, running := t.queues[chatID]
	t.queues[chatID] = append(q, u)
	if !running {
		t.wg.Add(1)
		go t.worker(ctx, chatID)
	}
}

// worker handles one chat's queue in order and exits when it is empty
func (t *Transport) worker(ctx context.Context, chatID int64) {
	defer t.wg.Done()
	for {
		t.mu.Lock()
		q := t.queues[chatID]
		if len(q) == 0 || ctx.Err() != nil {
			delete(t.queues, chatID)
			t.mu.Unlock()
			return
		}
		u := q[0]
		q[0] = tgbotapi.Update{}
		t.queues[chatID] = q[1:]
		t.mu.Unlock()

		t.Process(ctx, u)
	}
}

// Process handles a single update synchronously
func (t *Transport) Process(ctx context.Context, u tgbotapi.Update) {
	ev, ok := t.toEvent(ctx, u)
	if !ok {
		return
	}

	replies := t.handler.Handle(ctx, ev)

	notice := ""
	for _, r := range replies {
		if r.Notice != "" && notice == "" {
			notice = r.Notice
		}
		if r.Text == "" {
			continue
		}
		if err := t.deliver(ev, r); err != nil {
			logging.WithField("chat_id", ev.ChatID).Error("Reply not delivered: %v", err)
		}
	}

	if u.CallbackQuery != nil {
		if _, err := t.api.Request(tgbotapi.NewCallback(u.CallbackQuery.ID, notice)); err != nil {
			logging.WithField("chat_id", ev.ChatID).Warn("Callback answer failed: %v", err)
		}
	}
}

func (t *Transport) deliver(ev bot.Event, r bot.Reply) error {
	parseMode := ""
	if r.Markdown {
		parseMode = tgbotapi.ModeMarkdown
	}

	err := t.send(ev, r, parseMode)
	if err != nil && parseMode != "" && strings.Contains(err.Error(), "can't parse entities") {
		// user text broke the markup; plain text still gets through
		err = t.send(ev, r, "")
	}
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

func (t *Transport) send(ev bot.Event, r bot.Reply, parseMode string) error {
	if r.Edit && ev.Kind == bot.EventButton && ev.MessageID != 0 {
		cfg := tgbotapi.NewEditMessageText(ev.ChatID, ev.MessageID, r.Text)
		cfg.ParseMode = parseMode
		if markup, ok := keyboard(r.Keyboard); ok {
			cfg.ReplyMarkup = &markup
		}
		_, err := t.api.Send(cfg)
		return err
	}

	msg := tgbotapi.NewMessage(ev.ChatID, r.Text)
	msg.ParseMode = parseMode
	if markup, ok := keyboard(r.Keyboard); ok {
		msg.ReplyMarkup = markup
	}
	_, err := t.api.Send(msg)
	return err
}

// Notify sends a plain message outside any conversation
func (t *Transport) Notify(chatID int64, text string) error {
	if chatID == 0 {
		return errors.New("no chat to notify")
	}
	_, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (t *Transport) publishCommands() {
	cmds := make([]tgbotapi.BotCommand, 0, len(bot.Commands))
	for _, c := range bot.Commands {
		cmds = append(cmds, tgbotapi.BotCommand{Command: c.Name, Description: c.Description})
	}
	if _, err := t.api.Request(tgbotapi.NewSetMyCommands(cmds...)); err != nil {
		logging.Warn("Command menu not published: %v", err)
		return
	}
	logging.Info("Published %d bot commands", len(cmds))
}

func (t *Transport) notifyAdmin() {
	if !t.cfg.NotifyStart || t.cfg.AdminUserID == 0 {
		return
	}
	msg := fmt.Sprintf("🚀 Life OS Bot запущен\n%s", time.Now().Format("2006-01-02 15:04:05"))
	if err := t.Notify(t.cfg.AdminUserID, msg); err != nil {
		logging.Warn("Admin notice failed: %v", err)
	}
}

func keyboard(kb bot.Keyboard) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(kb) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}
