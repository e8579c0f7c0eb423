package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quantumlife/lifeos/internal/core"
)

const welcomeTemplate = `🤖 *Добро пожаловать в Life OS Bot, %s!*

Я ваш персональный помощник для управления жизнью и достижения целей.

*Основные возможности:*
• 📝 Быстрый захват задач и идей
• 🎤 Распознавание голосовых сообщений
• 📋 Управление задачами через Todoist
• 📊 Отслеживание жизненных областей
• 🔍 Ежедневные обзоры и оценки
• 😊 Логирование настроения
• ✅ Отслеживание привычек

*Команды:*
/help - Показать все команды
/capture - Быстрый захват
/tasks - Задачи на сегодня
/status - Статус жизненных областей

*🎤 Голосовые сообщения:*
Отправьте голосовое сообщение для распознавания речи!`

const helpMessage = `📚 *Life OS Bot - Справочник команд*

*Захват и управление:*
/capture <текст> - Захватить задачу
/idea <текст> - Захватить идею
/tasks - Задачи на сегодня
/done <номер> - Отметить задачу выполненной
/status - Статус жизненных областей

*Обзоры и оценки:*
/review - Ежедневный обзор
/assess - Оценка жизненных областей
/schedule - Расписание на сегодня
/inbox - Непрочитанная почта

*Отслеживание:*
/mood <1-10> [заметка] - Записать настроение
/moodlog [n] - Последние записи настроения
/habits [название] - Отметить привычку
/streak <привычка> [дней] - Текущая серия
/stats - Обзор журналов

*🎤 Голосовые сообщения:*
Бот распознает речь, покажет текст и запишет его только после подтверждения.

*Быстрый захват:*
Просто отправьте короткое сообщение, и бот предложит захватить его как задачу или идею.`

const reviewPrompt = `🔍 *Ежедневный обзор*

Давайте проведем быстрый обзор дня:

1. *Что было сделано сегодня?*
2. *Что не удалось сделать?*
3. *Как вы себя чувствуете?*
4. *Что планируете на завтра?*

Отправьте ответы одной командой, по строке на вопрос:
/review Сделано: ...
Не удалось: ...
Самочувствие: ...
Завтра: ...`

const moodPrompt = `😊 *Записать настроение*

Как вы себя чувствуете сегодня?

1-2: Очень плохо 😢
3-4: Плохо 😔
5-6: Нормально 😐
7-8: Хорошо 😊
9-10: Отлично 😍`

const customHabitPrompt = `✍️ *Добавление новой привычки*

Отправьте название вашей привычки в следующем сообщении.

Например:
• Пить воду
• Делать зарядку
• Читать книги`

const (
	msgUnknownCommand = "❌ Извините, я не понимаю эту команду. Используйте /help для получения списка доступных команд."
	msgNoTasks        = "📋 На сегодня задач нет. Отличная работа! 🎉"
	msgQuickCapture   = "💭 Хотите захватить это сообщение?"
	msgQuickExpired   = "❌ Сообщение для захвата не найдено, отправьте его еще раз"
	msgNothingPending = "❌ Нечего подтверждать"
	msgVoiceCancelled = "❌ Обработка отменена"
	msgVoiceDone      = "✅ Текст подтвержден и обработан"
	msgVoiceOff       = "⚙️ Распознавание речи не настроено"
	msgNoSpeech       = "❌ Не удалось распознать речь"
	msgSpeechDown     = "❌ Ошибка сервиса распознавания речи"
	msgSelectArea     = "❌ Сначала выберите область жизни!\n\nИспользуйте /assess для начала оценки."
	msgGeneric        = "❌ Произошла ошибка при обработке запроса"
)

// failureMessage maps an error to a short user-facing text. Diagnostics
// stay in the log.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrSessionNotFound):
		return msgNothingPending
	case errors.Is(err, core.ErrAwaitingEdit):
		return "✏️ Сначала отправьте исправленный текст"
	case errors.Is(err, core.ErrNoSpeech):
		return msgNoSpeech
	case errors.Is(err, core.ErrInvalidScore):
		return "❌ Оценка должна быть числом от 1 до 10"
	case errors.Is(err, core.ErrTaskNotFound):
		return "❌ Задача не найдена"
	case errors.Is(err, core.ErrNotConfigured):
		return "⚙️ Эта функция не настроена"
	case errors.Is(err, core.ErrMissingRequired), errors.Is(err, core.ErrInvalidInput):
		return "❌ Некорректный ввод. Используйте /help"
	case errors.Is(err, core.ErrIOFailure):
		return "❌ Не удалось сохранить запись, попробуйте позже"
	case errors.Is(err, core.ErrUpstreamFailure):
		return "❌ Внешний сервис недоступен, попробуйте позже"
	default:
		return msgGeneric
	}
}

// escape protects user text inside legacy Markdown
func escape(s string) string {
	return markdownEscaper.Replace(s)
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func moodEmoji(score int) string {
	switch {
	case score >= 9:
		return "😍"
	case score >= 7:
		return "😊"
	case score >= 5:
		return "😐"
	case score >= 3:
		return "😔"
	default:
		return "😢"
	}
}

func priorityEmoji(p int) string {
	if p >= 1 && p <= 4 {
		return []string{"🔵", "🟢", "🟡", "🔴"}[p-1]
	}
	return "⚪"
}

// habitTitle turns a preset id like "drinking_water" into "Drinking Water"
func habitTitle(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
	}
	return strings.Join(words, " ")
}

func stars(score int) string {
	return strings.Repeat("⭐", score)
}

// truncate cuts s to n runes, marking the cut
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func plural(n int, one, few, many string) string {
	n %= 100
	if n >= 11 && n <= 14 {
		return many
	}
	switch n % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	}
	return many
}

func countLabel(n int) string {
	return fmt.Sprintf("%d %s", n, plural(n, "раз", "раза", "раз"))
}
