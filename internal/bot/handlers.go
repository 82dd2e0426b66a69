package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskstreak/internal/model"
	"taskstreak/internal/service"
	"taskstreak/internal/tracker"
)

const (
	cbDonePrefix   = "done:"
	cbDeletePrefix = "del:"
	cbCancel       = "cancel"
)

const helpText = `<b>Commands</b>
/tasks [active|done|all] - list tasks
/new title ; recurrence ; category - add a task (no arguments starts a dialog)
/done id [minutes] [difficulty] [notes] - record a completion
/undo id - reopen a task
/delete id - delete a task
/stats - completion statistics
/report - today's digest
/categories - tasks per category
/cancel - abort the current dialog

Recurrence examples: <code>every 2 days</code>, <code>3 times per week</code>, <code>none</code>.`

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if !b.isOwner(msg.From) {
		return b.sendText(msg.Chat.ID, "This bot is private.")
	}

	if !msg.IsCommand() && isCancelInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		return b.sendWithReplyMarkup(msg.Chat.ID, "Cancelled.", tgbotapi.NewRemoveKeyboard(true))
	}

	if msg.IsCommand() {
		b.log.Debug("command", "name", msg.Command(), "args", msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if b.getConversation(msg.From.ID) != nil {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I did not understand that. Use /new to add a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.sendText(chatID, "👋 Hi! I track your tasks and streaks.\n\n"+helpText)
	case "help":
		return b.sendText(chatID, helpText)
	case "tasks":
		return b.handleListTasks(ctx, chatID, args)
	case "new", "newtask":
		if args == "" {
			b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
			return b.sendWithReplyMarkup(chatID, "📝 What is the task title?", cancelKeyboard())
		}
		input, err := parseNewArgs(args)
		if err != nil {
			return b.sendError(chatID, err)
		}
		return b.finishTaskCreation(ctx, chatID, input)
	case "done", "complete":
		return b.handleDone(ctx, chatID, args)
	case "undo":
		return b.handleUndo(ctx, chatID, args)
	case "delete":
		return b.handleDelete(ctx, chatID, args)
	case "stats":
		stats, err := b.tasks.Stats(ctx)
		if err != nil {
			return b.sendError(chatID, err)
		}
		return b.sendText(chatID, "📊 "+service.FormatStats(stats))
	case "report":
		text, err := b.digests.Summary(ctx)
		if err != nil {
			return b.sendError(chatID, err)
		}
		return b.sendText(chatID, text)
	case "categories":
		return b.handleCategories(ctx, chatID)
	case "cancel":
		b.clearConversation(msg.From.ID)
		return b.sendWithReplyMarkup(chatID, "Cancelled.", tgbotapi.NewRemoveKeyboard(true))
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The title cannot be empty.", cancelKeyboard())
		}
		state.input.Title = normalizeTitle(text)
		state.stage = stageCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 Category? (or Skip)", skipKeyboard())
	case stageCategory:
		if !isSkipInput(text) {
			state.input.Category = text
		}
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ Due date as <code>2026-11-30</code>? (or Skip)", skipKeyboard())
	case stageDueDate:
		if !isSkipInput(text) {
			due, err := time.ParseInLocation(time.DateOnly, text, b.loc)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Cannot read that date. Use <code>2026-11-30</code> or Skip.", skipKeyboard())
			}
			state.input.DueDate = &due
		}
		state.stage = stageRecurrence
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔁 Recurrence? e.g. <code>every 2 days</code> or <code>3 times per week</code> (or Skip)", skipKeyboard())
	case stageRecurrence:
		if !isSkipInput(text) {
			recurrence, err := model.ParseRecurrence(text)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "⚠️ "+escape(err.Error()), skipKeyboard())
			}
			state.input.Recurrence = &recurrence
		}
		b.clearConversation(msg.From.ID)
		return b.finishTaskCreation(ctx, msg.Chat.ID, state.input)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Dialog reset. Start again with /new.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, chatID int64, input service.TaskInput) error {
	task, err := b.tasks.Create(ctx, input)
	if err != nil {
		return b.sendError(chatID, err)
	}
	b.log.Info("task created", "id", task.ID)
	text := fmt.Sprintf("✅ Created #%d <b>%s</b>", task.ID, escape(task.Title))
	if !task.Recurrence.IsNone() {
		text += fmt.Sprintf("\n🔁 %s", escape(task.Recurrence.String()))
	}
	return b.sendWithReplyMarkup(chatID, text, tgbotapi.NewRemoveKeyboard(true))
}

func (b *Bot) handleListTasks(ctx context.Context, chatID int64, args string) error {
	status := model.StatusActive
	if args != "" {
		status = model.Status(strings.ToLower(args))
	}
	tasks, err := b.tasks.List(ctx, model.TaskFilter{Status: status})
	if err != nil {
		return b.sendError(chatID, err)
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "No tasks here. Add one with /new.")
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Tasks</b>\n\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		builder.WriteString(formatTask(task, b.loc))
		builder.WriteByte('\n')
		if !task.Completed {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d · %s", task.ID, shortTitle(task.Title, 24)), fmt.Sprintf("%s%d", cbDonePrefix, task.ID)),
			))
		}
	}

	var markup interface{}
	if len(buttons) > 0 {
		markup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	return b.sendWithReplyMarkup(chatID, strings.TrimSpace(builder.String()), markup)
}

func (b *Bot) handleDone(ctx context.Context, chatID int64, args string) error {
	id, details, err := parseDoneArgs(args)
	if err != nil {
		return b.sendError(chatID, err)
	}
	return b.complete(ctx, chatID, id, details)
}

func (b *Bot) complete(ctx context.Context, chatID int64, id uint, details *model.Details) error {
	result, err := b.tasks.Complete(ctx, id, details)
	if err != nil {
		return b.sendError(chatID, err)
	}
	b.log.Info("task completed", "id", id, "state", result.State)
	return b.sendText(chatID, formatCompletion(result, b.loc))
}

func (b *Bot) handleUndo(ctx context.Context, chatID int64, args string) error {
	id, err := parseTaskID(args, "")
	if err != nil {
		return b.sendText(chatID, "Usage: /undo id")
	}
	task, err := b.tasks.Uncomplete(ctx, id)
	if err != nil {
		return b.sendError(chatID, err)
	}
	return b.sendText(chatID, fmt.Sprintf("↩️ #%d <b>%s</b> is open again.", task.ID, escape(task.Title)))
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, args string) error {
	id, err := parseTaskID(args, "")
	if err != nil {
		return b.sendText(chatID, "Usage: /delete id")
	}
	task, err := b.tasks.Get(ctx, id)
	if err != nil {
		return b.sendError(chatID, err)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("%s%d", cbDeletePrefix, task.ID)),
		tgbotapi.NewInlineKeyboardButtonData("Keep", cbCancel),
	))
	return b.sendWithReplyMarkup(chatID, fmt.Sprintf("Delete #%d <b>%s</b> and its history?", task.ID, escape(task.Title)), markup)
}

func (b *Bot) handleCategories(ctx context.Context, chatID int64) error {
	categories, err := b.tasks.Categories(ctx)
	if err != nil {
		return b.sendError(chatID, err)
	}
	if len(categories) == 0 {
		return b.sendText(chatID, "No categories yet.")
	}
	var builder strings.Builder
	builder.WriteString("🏷 <b>Categories</b>\n")
	for _, c := range categories {
		builder.WriteString(fmt.Sprintf("• %s: %d/%d done\n", escape(c.Name), c.Completed, c.Tasks))
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if !b.isOwner(cb.From) {
		b.ackCallback(cb, "This bot is private.")
		return nil
	}
	b.ackCallback(cb, "")

	chatID := cb.Message.Chat.ID
	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbDonePrefix):
		id, err := parseTaskID(data, cbDonePrefix)
		if err != nil {
			return nil
		}
		return b.complete(ctx, chatID, id, nil)
	case strings.HasPrefix(data, cbDeletePrefix):
		id, err := parseTaskID(data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		if err := b.tasks.Delete(ctx, id); err != nil {
			return b.sendError(chatID, err)
		}
		b.log.Info("task deleted", "id", id)
		return b.sendText(chatID, fmt.Sprintf("🗑 Task #%d deleted.", id))
	case data == cbCancel:
		return b.sendText(chatID, "Nothing changed.")
	default:
		return nil
	}
}

func formatCompletion(result tracker.Result, loc *time.Location) string {
	task := result.Task
	text := fmt.Sprintf("✅ #%d <b>%s</b>", task.ID, escape(task.Title))
	switch result.State {
	case tracker.StateWaiting:
		if task.DueDate != nil {
			text += fmt.Sprintf("\nNext due %s", task.DueDate.In(loc).Format("2006-01-02 15:04"))
		}
	case tracker.StateInProgress:
		text += fmt.Sprintf("\n%d/%d this %s", task.CompletionsThisPeriod, task.Recurrence.Amount, task.Recurrence.Unit)
	case tracker.StateGoalMet:
		text += fmt.Sprintf("\n🎯 Goal met: %d/%d this %s", task.CompletionsThisPeriod, task.Recurrence.Amount, task.Recurrence.Unit)
	}
	if task.CurrentStreak > 0 {
		text += fmt.Sprintf("\n🔥 Streak %d (best %d)", task.CurrentStreak, task.LongestStreak)
	}
	return text
}
