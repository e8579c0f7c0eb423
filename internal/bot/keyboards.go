package bot

import (
	"strconv"

	"github.com/quantumlife/lifeos/internal/core"
)

// HabitGroup is a titled set of preset habits
type HabitGroup struct {
	Title  string
	Habits []string
}

// HabitPresets are offered by /habits without arguments
var HabitPresets = []HabitGroup{
	{"🏃‍♂️ Здоровье", []string{"exercise", "meditation", "drinking_water", "sleep_early", "healthy_eating", "walking", "stretching", "vitamins"}},
	{"📚 Развитие", []string{"reading", "journaling", "learning", "practice_skills", "planning", "goal_review"}},
	{"💼 Продуктивность", []string{"morning_routine", "evening_routine", "time_tracking", "task_prioritization", "break_taking"}},
	{"🧘‍♀️ Ментальное здоровье", []string{"gratitude", "mindfulness", "social_connection", "hobby_time"}},
}

func voiceKeyboard(withEdit bool) Keyboard {
	kb := Keyboard{{
		NewButton("✅ Подтвердить", Action{Kind: ActionVoiceConfirm}),
		NewButton("❌ Отменить", Action{Kind: ActionVoiceCancel}),
	}}
	if withEdit {
		kb = append(kb, []Button{NewButton("✏️ Редактировать", Action{Kind: ActionVoiceEdit})})
	}
	return kb
}

func quickCaptureKeyboard(key string) Keyboard {
	return Keyboard{{
		NewButton("📝 Как задачу", Action{Kind: ActionCaptureTask, Key: key}),
		NewButton("💡 Как идею", Action{Kind: ActionCaptureIdea, Key: key}),
	}}
}

func scoreRow(from, to int, kind ActionKind, label func(int) string) []Button {
	row := make([]Button, 0, to-from+1)
	for s := from; s <= to; s++ {
		row = append(row, NewButton(label(s), Action{Kind: kind, Score: s}))
	}
	return row
}

func moodKeyboard() Keyboard {
	label := func(s int) string { return moodEmoji(s) + " " + strconv.Itoa(s) }
	return Keyboard{
		scoreRow(1, 5, ActionMoodScore, label),
		scoreRow(6, 10, ActionMoodScore, label),
	}
}

func assessKeyboard(areas []string) Keyboard {
	var kb Keyboard
	for i := 0; i < len(areas); i += 3 {
		end := i + 3
		if end > len(areas) {
			end = len(areas)
		}
		var row []Button
		for _, area := range areas[i:end] {
			a := Action{Kind: ActionAreaInfo, Area: area}
			if len(a.Encode()) <= MaxCallbackData {
				row = append(row, NewButton(area, a))
			}
		}
		if len(row) > 0 {
			kb = append(kb, row)
		}
	}
	kb = append(kb,
		scoreRow(1, 5, ActionScoreSelect, strconv.Itoa),
		scoreRow(6, 10, ActionScoreSelect, strconv.Itoa),
		[]Button{NewButton("📊 Показать текущие оценки", Action{Kind: ActionShowScores})},
	)
	return kb
}

// statusKeyboard offers quick 1-5 ratings for the first three areas
func statusKeyboard(areas []string) Keyboard {
	var kb Keyboard
	for i, area := range areas {
		if i == 3 {
			break
		}
		row := make([]Button, 0, 5)
		for s := 1; s <= 5; s++ {
			a := Action{Kind: ActionAreaScore, Area: area, Score: s}
			if len(a.Encode()) > MaxCallbackData {
				break
			}
			row = append(row, NewButton(strconv.Itoa(s), a))
		}
		if len(row) > 0 {
			kb = append(kb, row)
		}
	}
	return kb
}

func habitsKeyboard() Keyboard {
	var kb Keyboard
	for _, g := range HabitPresets {
		kb = append(kb, []Button{NewButton(g.Title, Action{Kind: ActionHabitHeader})})
		for _, h := range g.Habits {
			kb = append(kb, []Button{NewButton("✅ "+habitTitle(h), Action{Kind: ActionHabitComplete, Habit: h})})
		}
	}
	return append(kb, []Button{
		NewButton("➕ Добавить свою", Action{Kind: ActionHabitCustom}),
		NewButton("📊 Статистика", Action{Kind: ActionHabitStats}),
	})
}

// areaNames lists the default areas followed by any custom ones already scored
func areaNames(scores []core.AreaScore) []string {
	names := append([]string(nil), core.DefaultAreas...)
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, s := range scores {
		if !seen[s.AreaName] {
			seen[s.AreaName] = true
			names = append(names, s.AreaName)
		}
	}
	return names
}
