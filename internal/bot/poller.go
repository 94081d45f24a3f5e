package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ejsmile/systech-aidd/internal/conversation"
	"github.com/ejsmile/systech-aidd/internal/llm"
	"github.com/ejsmile/systech-aidd/internal/metrics"
	"github.com/ejsmile/systech-aidd/internal/models"
	"github.com/ejsmile/systech-aidd/internal/users"
)

const (
	startReply = "Hi! I'm an LLM assistant.\n" +
		"Just send me a message and I'll reply.\n" +
		"Use /help for the list of commands."

	helpReply = "Available commands:\n" +
		"/start - start the bot\n" +
		"/help - show this help\n" +
		"/clear - clear the conversation history"

	clearReply = "Conversation history cleared"

	errorReply = "An error occurred while processing your request. Please try again later."
)

// Poller runs the Telegram long-poll loop and dispatches updates to the
// conversation core. It is one of two front ends sharing the store; it holds
// no conversation state of its own.
type Poller struct {
	client       *Client
	manager      *conversation.Manager
	users        *users.Repository
	llm          *llm.Client
	systemPrompt string
	pollTimeout  int
	logger       zerolog.Logger
}

// NewPoller creates a poller.
func NewPoller(client *Client, manager *conversation.Manager, userRepo *users.Repository, llmClient *llm.Client, systemPrompt string, pollTimeout int, logger zerolog.Logger) *Poller {
	return &Poller{
		client:       client,
		manager:      manager,
		users:        userRepo,
		llm:          llmClient,
		systemPrompt: systemPrompt,
		pollTimeout:  pollTimeout,
		logger:       logger.With().Str("component", "bot").Logger(),
	}
}

// Run polls for updates until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64

	p.logger.Info().Int("poll_timeout", p.pollTimeout).Msg("bot polling started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("bot polling stopped")
			return ctx.Err()
		default:
		}

		updates, err := p.client.GetUpdates(ctx, offset, p.pollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			p.logger.Error().Err(err).Msg("getUpdates failed")
			time.Sleep(time.Second)
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			p.handleUpdate(ctx, update)
		}
	}
}

func (p *Poller) handleUpdate(ctx context.Context, update Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if msg.Text == "" {
		// Unsupported message types are ignored silently.
		metrics.BotUpdates.WithLabelValues("unsupported").Inc()
		p.logger.Warn().Int64("user_id", msg.From.ID).Msg("unsupported message type")
		return
	}

	switch {
	case msg.Text == "/start" || strings.HasPrefix(msg.Text, "/start "):
		metrics.BotUpdates.WithLabelValues("command").Inc()
		p.logger.Info().Int64("user_id", msg.From.ID).Msg("user started the bot")
		p.reply(ctx, msg.Chat.ID, startReply)
	case msg.Text == "/help":
		metrics.BotUpdates.WithLabelValues("command").Inc()
		p.logger.Info().Int64("user_id", msg.From.ID).Msg("user requested help")
		p.reply(ctx, msg.Chat.ID, helpReply)
	case msg.Text == "/clear":
		metrics.BotUpdates.WithLabelValues("command").Inc()
		p.handleClear(ctx, msg)
	default:
		metrics.BotUpdates.WithLabelValues("text").Inc()
		p.handleText(ctx, msg)
	}
}

func (p *Poller) handleClear(ctx context.Context, msg *Message) {
	key := p.manager.GetConversationKey(msg.Chat.ID, msg.From.ID)

	deleted, err := p.manager.ClearHistory(ctx, key)
	if err != nil {
		p.logger.Error().Err(err).Stringer("key", key).Msg("clear history failed")
		p.reply(ctx, msg.Chat.ID, errorReply)
		return
	}

	metrics.ConversationsCleared.Inc()
	p.logger.Info().Int64("user_id", msg.From.ID).Int64("deleted", deleted).Msg("user cleared conversation")
	p.reply(ctx, msg.Chat.ID, clearReply)
}

// handleText runs the chat pipeline: record the sender, persist the user
// message, assemble the windowed history, call the model, persist and send
// the reply. Any failure ends with a generic user-facing error; the cause is
// logged here and nowhere swallowed.
func (p *Poller) handleText(ctx context.Context, msg *Message) {
	key := p.manager.GetConversationKey(msg.Chat.ID, msg.From.ID)

	if _, err := p.users.Upsert(ctx, msg.From.ID, msg.From.Username, msg.From.FirstName, msg.From.LastName); err != nil {
		p.reply(ctx, msg.Chat.ID, errorReply)
		return
	}

	if _, err := p.manager.AddMessage(ctx, key, models.ChatMessage{Role: models.RoleUser, Content: msg.Text}); err != nil {
		p.reply(ctx, msg.Chat.ID, errorReply)
		return
	}
	metrics.MessagesStored.WithLabelValues(string(models.RoleUser)).Inc()

	history, err := p.manager.GetHistory(ctx, key, p.systemPrompt)
	if err != nil {
		p.reply(ctx, msg.Chat.ID, errorReply)
		return
	}

	answer, err := p.llm.Complete(ctx, history)
	if err != nil {
		p.reply(ctx, msg.Chat.ID, errorReply)
		return
	}

	if _, err := p.manager.AddMessage(ctx, key, models.ChatMessage{Role: models.RoleAssistant, Content: answer}); err != nil {
		p.reply(ctx, msg.Chat.ID, errorReply)
		return
	}
	metrics.MessagesStored.WithLabelValues(string(models.RoleAssistant)).Inc()

	p.reply(ctx, msg.Chat.ID, answer)
}

func (p *Poller) reply(ctx context.Context, chatID int64, text string) {
	if err := p.client.SendMessage(ctx, chatID, text); err != nil {
		p.logger.Error().Err(err).Int64("chat_id", chatID).Msg("sendMessage failed")
	}
}
