// Package bot is the Telegram front-end. It answers only the configured owner.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskstreak/internal/model"
	"taskstreak/internal/service"
	"taskstreak/internal/tracker"
)

// TaskService is the task surface the bot needs.
type TaskService interface {
	Create(ctx context.Context, input service.TaskInput) (*model.Task, error)
	Get(ctx context.Context, id uint) (*model.Task, error)
	List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	Complete(ctx context.Context, id uint, details *model.Details) (tracker.Result, error)
	Uncomplete(ctx context.Context, id uint) (*model.Task, error)
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context) (tracker.Stats, error)
	Categories(ctx context.Context) ([]model.CategorySummary, error)
}

type DigestService interface {
	Summary(ctx context.Context) (string, error)
}

// sender is the part of the Telegram API used to reply.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageCategory
	stageDueDate
	stageRecurrence
)

type conversationState struct {
	stage conversationStage
	input service.TaskInput
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           sender
	poller        *tgbotapi.BotAPI
	tasks         TaskService
	digests       DigestService
	ownerID       int64
	loc           *time.Location
	log           *log.Logger
	conversations map[int64]*conversationState
	mu            sync.Mutex
}

func New(token string, ownerID int64, tasks TaskService, digests DigestService, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	b := newBot(api, ownerID, tasks, digests, logger)
	b.poller = api
	b.log.Info("bot authorized", "account", api.Self.UserName)
	return b, nil
}

func newBot(api sender, ownerID int64, tasks TaskService, digests DigestService, logger *log.Logger) *Bot {
	if logger == nil {
		logger = log.Default()
	}
	return &Bot{
		api:           api,
		tasks:         tasks,
		digests:       digests,
		ownerID:       ownerID,
		loc:           time.Local,
		log:           logger.WithPrefix("bot"),
		conversations: make(map[int64]*conversationState),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.poller == nil {
		return errors.New("bot has no telegram connection")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.poller.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.poller.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}
	return ctx.Err()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.log.Error("handle callback", "err", err)
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error("handle message", "err", err)
		}
	}
}

// SendDigest sends the daily digest to the owner.
func (b *Bot) SendDigest(ctx context.Context) error {
	text, err := b.digests.Summary(ctx)
	if err != nil {
		return fmt.Errorf("build digest: %w", err)
	}
	if err := b.sendText(b.ownerID, text); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}
	b.log.Info("digest sent")
	return nil
}

func (b *Bot) isOwner(u *tgbotapi.User) bool {
	return u != nil && u.ID == b.ownerID
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendWithReplyMarkup(chatID, text, nil)
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) ackCallback(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		b.log.Warn("callback ack", "err", err)
	}
}

// sendError replies with a message for the error kind. Unexpected failures
// are logged and reported generically.
func (b *Bot) sendError(chatID int64, err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return b.sendText(chatID, "Task not found.")
	case errors.Is(err, model.ErrValidation):
		return b.sendText(chatID, "⚠️ "+escape(err.Error()))
	default:
		b.log.Error("request failed", "err", err)
		return b.sendText(chatID, "Something went wrong, please try again later.")
	}
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
