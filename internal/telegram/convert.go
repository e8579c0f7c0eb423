package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/quantumlife/lifeos/internal/bot"
	"github.com/quantumlife/lifeos/internal/logging"
)

func chatOf(u tgbotapi.Update) int64 {
	switch {
	case u.Message != nil && u.Message.Chat != nil:
		return u.Message.Chat.ID
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil && u.CallbackQuery.Message.Chat != nil:
		return u.CallbackQuery.Message.Chat.ID
	}
	return 0
}

// toEvent converts an update. Updates the bot does not react to, and voice
// notes that cannot be downloaded, yield false.
func (t *Transport) toEvent(ctx context.Context, u tgbotapi.Update) (bot.Event, bool) {
	if cq := u.CallbackQuery; cq != nil {
		if cq.Message == nil || cq.Message.Chat == nil {
			return bot.Event{}, false
		}
		ev := bot.Event{
			Kind:      bot.EventButton,
			ChatID:    cq.Message.Chat.ID,
			MessageID: cq.Message.MessageID,
			Data:      cq.Data,
		}
		setUser(&ev, cq.From)
		return ev, true
	}

	msg := u.Message
	if msg == nil || msg.Chat == nil {
		return bot.Event{}, false
	}
	ev := bot.Event{ChatID: msg.Chat.ID, MessageID: msg.MessageID}
	setUser(&ev, msg.From)

	switch {
	case msg.Voice != nil:
		audio, err := t.download(ctx, msg.Chat.ID, msg.Voice.FileID)
		if err != nil {
			logging.WithField("chat_id", msg.Chat.ID).Error("Voice download failed: %v", err)
			t.Notify(msg.Chat.ID, "❌ Не удалось загрузить голосовое сообщение")
			return bot.Event{}, false
		}
		ev.Kind = bot.EventVoice
		ev.Audio = audio
		ev.AudioName = "voice.ogg"
	case msg.IsCommand():
		cmd, args, ok := bot.ParseCommand(msg.Text)
		if !ok {
			return bot.Event{}, false
		}
		ev.Kind = bot.EventCommand
		ev.Command = cmd
		ev.Args = args
		ev.Text = msg.CommandArguments()
	case msg.Text != "":
		ev.Kind = bot.EventText
		ev.Text = msg.Text
	default:
		return bot.Event{}, false
	}
	return ev, true
}

func setUser(ev *bot.Event, u *tgbotapi.User) {
	if u == nil {
		return
	}
	ev.UserID = u.ID
	ev.UserName = u.FirstName
	if ev.UserName == "" {
		ev.UserName = u.UserName
	}
}

// download fetches a voice note while showing the typing indicator
func (t *Transport) download(ctx context.Context, chatID int64, fileID string) ([]byte, error) {
	if _, err := t.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		logging.Debug("Chat action failed: %v", err)
	}

	url, err := t.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.cfg.MaxVoiceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > t.cfg.MaxVoiceBytes {
		return nil, fmt.Errorf("voice note exceeds %d bytes", t.cfg.MaxVoiceBytes)
	}
	return data, nil
}
