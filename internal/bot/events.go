// Package bot is the transport-independent conversation layer.
//
// A transport turns platform updates into Events and hands them to the
// Dispatcher, which answers with Replies. The dispatcher never talks to the
// network itself; everything it needs arrives through Deps.
package bot

import (
	"strings"
)

// EventKind tells what the user sent
type EventKind string

const (
	EventCommand EventKind = "command"
	EventText    EventKind = "text"
	EventVoice   EventKind = "voice"
	EventButton  EventKind = "button"
)

// Event is one inbound user action
type Event struct {
	Kind      EventKind
	ChatID    int64
	UserID    int64
	UserName  string
	MessageID int // the user's message, or the message carrying the pressed button

	Command string   // without the leading slash
	Args    []string // command arguments split on whitespace
	Text    string   // message text; for commands the raw argument string

	Audio     []byte // voice payload, already downloaded
	AudioName string

	Data string // raw callback data of a button press
}

// ArgText rejoins command arguments
func (e Event) ArgText() string {
	return strings.Join(e.Args, " ")
}

// Button is an inline keyboard button
type Button struct {
	Label string
	Data  string
}

// NewButton encodes an action into a button
func NewButton(label string, a Action) Button {
	return Button{Label: label, Data: a.Encode()}
}

// Keyboard is a grid of buttons, one slice per row
type Keyboard [][]Button

// Reply is one outbound message
type Reply struct {
	Text     string
	Markdown bool
	Keyboard Keyboard

	// Edit replaces the message the pressed button belongs to instead of
	// sending a new one
	Edit bool

	// Notice is a short toast answering a button press
	Notice string
}

func plain(s string) Reply { return Reply{Text: s} }

func markdown(s string, kb Keyboard) Reply {
	return Reply{Text: s, Markdown: true, Keyboard: kb}
}

func edit(s string) Reply { return Reply{Text: s, Edit: true} }

// ParseCommand splits "/cmd@botname a b" into the command and its arguments.
// It reports false when text is not a command.
func ParseCommand(text string) (cmd string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") || len(text) == 1 {
		return "", nil, false
	}
	fields := strings.Fields(text[1:])
	cmd = strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd, fields[1:], cmd != ""
}
