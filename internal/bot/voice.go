package bot

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/quantumlife/lifeos/internal/audit"
	"github.com/quantumlife/lifeos/internal/capture"
	"github.com/quantumlife/lifeos/internal/core"
	"github.com/quantumlife/lifeos/internal/logging"
)

// handleVoice transcribes a voice message and opens a session for it.
// A failed transcription creates no session.
func (d *Dispatcher) handleVoice(ctx context.Context, ev Event) ([]Reply, error) {
	if d.deps.Transcriber == nil {
		return []Reply{plain(msgVoiceOff)}, nil
	}

	text, err := d.deps.Transcriber.Transcribe(ctx, ev.Audio, ev.AudioName)
	switch {
	case errors.Is(err, core.ErrNoSpeech):
		return []Reply{plain(msgNoSpeech)}, nil
	case errors.Is(err, core.ErrUpstreamFailure):
		logging.WithField("chat_id", ev.ChatID).Error("Transcription failed: %v", err)
		return []Reply{plain(msgSpeechDown)}, nil
	case err != nil:
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	sess := d.deps.Sessions.Arrive(ev.ChatID, text, ev.MessageID)
	d.audit(d.deps.Audit.RecordSession(audit.ActionSessionArrived, ev.ChatID, sess.ID))
	logging.WithField("chat_id", ev.ChatID).Info("Voice transcribed: %d runes", utf8.RuneCountInString(text))

	msg := fmt.Sprintf("🎤 *Распознанный текст:*\n\n_%s_\n\nПодтвердите или отредактируйте текст:", escape(text))
	return []Reply{markdown(msg, voiceKeyboard(true))}, nil
}

func (d *Dispatcher) voiceConfirm(ctx context.Context, ev Event) ([]Reply, error) {
	var res *capture.Result
	sess, err := d.deps.Sessions.Confirm(ctx, ev.ChatID, func(ctx context.Context, text string) error {
		var err error
		res, err = d.deps.Router.Capture(ctx, text)
		return err
	})
	if err != nil {
		if errors.Is(err, core.ErrAwaitingEdit) {
			return []Reply{{Notice: failureMessage(err)}}, nil
		}
		return nil, err
	}

	d.audit(d.deps.Audit.RecordSession(audit.ActionSessionDone, ev.ChatID, sess.ID))
	d.captured(ev, res)

	return []Reply{edit(msgVoiceDone), plain(capturedMessage(res))}, nil
}

func (d *Dispatcher) voiceCancel(ev Event) ([]Reply, error) {
	sess, err := d.deps.Sessions.Cancel(ev.ChatID)
	if err != nil {
		return nil, err
	}
	d.audit(d.deps.Audit.RecordSession(audit.ActionSessionDropped, ev.ChatID, sess.ID))
	return []Reply{edit(msgVoiceCancelled)}, nil
}

func (d *Dispatcher) voiceEdit(ev Event) ([]Reply, error) {
	sess, err := d.deps.Sessions.Edit(ev.ChatID)
	if err != nil {
		return nil, err
	}
	d.audit(d.deps.Audit.RecordSession(audit.ActionSessionEdited, ev.ChatID, sess.ID))

	msg := fmt.Sprintf("✏️ *Текущий текст:*\n\n_%s_\n\nОтправьте исправленный текст:", escape(sess.Text))
	return []Reply{{Text: msg, Markdown: true, Edit: true}}, nil
}

// handleText resolves plain text in priority order: a pending voice edit,
// an awaited custom habit name, then the quick-capture offer.
func (d *Dispatcher) handleText(ctx context.Context, ev Event) ([]Reply, error) {
	if sess, ok := d.deps.Sessions.ReceiveText(ev.ChatID, ev.Text); ok {
		msg := fmt.Sprintf("✏️ *Отредактированный текст:*\n\n_%s_\n\nПодтвердите текст:", escape(sess.Text))
		return []Reply{markdown(msg, voiceKeyboard(false))}, nil
	}

	if d.takeAwaitingHabit(ev.ChatID) {
		h, err := d.deps.Ledger.SaveHabit(ev.Text)
		if err != nil {
			return nil, err
		}
		d.audit(d.deps.Audit.RecordHabit(ev.ChatID, h.Name))
		msg := fmt.Sprintf("✅ Новая привычка *%s* добавлена и отмечена!\n\nИспользуйте /habits для просмотра всех привычек.", escape(h.Name))
		return []Reply{markdown(msg, nil)}, nil
	}

	if !d.deps.QuickCapture || utf8.RuneCountInString(ev.Text) >= quickCaptureLimit {
		return nil, nil
	}
	key := d.rememberQuick(ev.ChatID, ev.Text)
	return []Reply{{Text: msgQuickCapture, Keyboard: quickCaptureKeyboard(key)}}, nil
}

func (d *Dispatcher) quickCapture(ctx context.Context, ev Event, kind capture.Kind, key string) ([]Reply, error) {
	text, ok := d.takeQuick(ev.ChatID, key)
	if !ok {
		return []Reply{edit(msgQuickExpired)}, nil
	}
	res, err := d.deps.Router.CaptureAs(ctx, kind, text)
	if err != nil {
		return nil, err
	}
	d.captured(ev, res)

	if kind == capture.KindTask {
		return []Reply{edit("✅ Задача захвачена")}, nil
	}
	return []Reply{edit("💡 Идея захвачена")}, nil
}

func capturedMessage(res *capture.Result) string {
	if res.Kind == capture.KindTask {
		return "📝 Задача захвачена: " + res.Content
	}
	return "💡 Идея захвачена: " + res.Content
}
