package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskstreak/internal/model"
	"taskstreak/internal/service"
)

const (
	btnSkip   = "Skip"
	btnCancel = "Cancel"
)

// parseNewArgs reads "title ; recurrence ; category". Only the title is
// required.
func parseNewArgs(args string) (service.TaskInput, error) {
	parts := strings.Split(args, ";")
	var input service.TaskInput
	input.Title = normalizeTitle(parts[0])
	if input.Title == "" {
		return input, model.Validationf("title is required")
	}
	if len(parts) > 1 {
		if raw := strings.TrimSpace(parts[1]); raw != "" {
			recurrence, err := model.ParseRecurrence(raw)
			if err != nil {
				return input, err
			}
			input.Recurrence = &recurrence
		}
	}
	if len(parts) > 2 {
		input.Category = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 {
		return input, model.Validationf("too many fields, expected title ; recurrence ; category")
	}
	return input, nil
}

// parseDoneArgs reads "id [minutes] [difficulty] [notes...]". A bare id is a
// quick completion and yields nil details.
func parseDoneArgs(args string) (uint, *model.Details, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, nil, model.Validationf("usage: /done id [minutes] [difficulty] [notes]")
	}
	id, err := parseTaskID(fields[0], "")
	if err != nil {
		return 0, nil, model.Validationf("task id %q is not valid", fields[0])
	}
	if len(fields) == 1 {
		return id, nil, nil
	}

	minutes, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, nil, model.Validationf("minutes %q is not a number", fields[1])
	}
	details := &model.Details{
		TimeSpent:  time.Duration(minutes) * time.Minute,
		Difficulty: model.DefaultDifficulty,
	}
	if len(fields) > 2 {
		difficulty, err := strconv.Atoi(fields[2])
		if err != nil {
			return 0, nil, model.Validationf("difficulty %q is not a number", fields[2])
		}
		details.Difficulty = difficulty
	}
	if len(fields) > 3 {
		details.Notes = strings.Join(fields[3:], " ")
	}
	return id, details, details.Validate()
}

func parseTaskID(data, prefix string) (uint, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(data, prefix))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("task id must be positive")
	}
	return uint(id), nil
}

// formatTask renders one list line. Dates are shown in loc.
func formatTask(task model.Task, loc *time.Location) string {
	mark := "⬜️"
	if task.Completed {
		mark = "✅"
	}
	line := fmt.Sprintf("%s #%d <b>%s</b>", mark, task.ID, escape(task.Title))
	if task.Category != "" {
		line += fmt.Sprintf(" <i>(%s)</i>", escape(task.Category))
	}
	if task.Priority >= model.PriorityHigh {
		line += " ❗️"
	}
	if !task.Recurrence.IsNone() {
		line += " · 🔁 " + escape(task.Recurrence.String())
	}
	if task.Recurrence.Kind == model.RecurFrequency {
		line += fmt.Sprintf(" (%d/%d)", task.CompletionsThisPeriod, task.Recurrence.Amount)
	}
	if task.DueDate != nil {
		line += " · due " + task.DueDate.In(loc).Format(time.DateOnly)
	}
	if task.OverdueSince != nil {
		line += " ⏰"
	}
	if task.CurrentStreak > 0 {
		line += fmt.Sprintf(" · 🔥%d", task.CurrentStreak)
	}
	return line
}

func shortTitle(title string, maxLen int) string {
	clean := normalizeTitle(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}

func isSkipInput(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == strings.ToLower(btnSkip) || t == "-"
}

func isCancelInput(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), btnCancel)
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}
