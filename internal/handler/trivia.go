// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-trivia-bot/internal/trivia"
)

// TriviaHandler routes chat traffic into the trivia engine.
type TriviaHandler struct {
	engine *trivia.Engine
}

// NewTriviaHandler creates a new TriviaHandler.
func NewTriviaHandler(engine *trivia.Engine) *TriviaHandler {
	return &TriviaHandler{engine: engine}
}

// HandleTrivia handles the /trivia command. The first argument is the
// wager amount; everything past it is ignored.
func (h *TriviaHandler) HandleTrivia(c tele.Context) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	wagerArg := ""
	if args := c.Args(); len(args) > 0 {
		wagerArg = args[0]
	}

	event := &trivia.WagerEvent{
		UserID:      sender.ID,
		Username:    displayName(sender),
		WagerArg:    wagerArg,
		SenderRoles: senderRoles(c),
		Chat:        trivia.Destination{ChatID: chat.ID},
	}

	h.engine.HandleWagerTrigger(context.Background(), event)
	return nil
}

// HandleText feeds ordinary chat messages to the engine as candidate
// answers. Messages from users without an open question are ignored.
func (h *TriviaHandler) HandleText(c tele.Context) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	msg := &trivia.ChatMessage{
		UserID:   sender.ID,
		Username: displayName(sender),
		Text:     c.Text(),
		Chat:     trivia.Destination{ChatID: chat.ID},
	}

	h.engine.HandleChatMessage(context.Background(), msg)
	return nil
}

// HandleReset handles the admin-only /trivia_reset command. It flushes
// all cooldowns and force-clears any open question.
func (h *TriviaHandler) HandleReset(c tele.Context) error {
	h.engine.Purge()
	return c.Reply("Trivia state has been reset.")
}

// senderRoles asks Telegram for the sender's membership status in the
// chat. Lookup failures degrade to no role claims.
func senderRoles(c tele.Context) []string {
	chat := c.Chat()
	sender := c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	member, err := c.Bot().ChatMemberOf(chat, sender)
	if err != nil {
		log.Debug().Err(err).
			Int64("user_id", sender.ID).
			Int64("chat_id", chat.ID).
			Msg("Failed to look up chat member status")
		return nil
	}
	return []string{string(member.Role)}
}

// displayName picks a usable name for chat announcements.
func displayName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}
