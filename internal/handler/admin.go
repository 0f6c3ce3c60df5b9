package handler

import (
	"context"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v3"

	"telegram-trivia-bot/internal/model"
	"telegram-trivia-bot/internal/service"
)

// AdminHandler handles admin-only balance adjustment commands.
// Callers must gate these behind the admin middleware.
type AdminHandler struct {
	currencyService *service.CurrencyService
	currencyID      string
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(currencyService *service.CurrencyService, currencyID string) *AdminHandler {
	return &AdminHandler{
		currencyService: currencyService,
		currencyID:      currencyID,
	}
}

// HandleAdminAdd handles /admin_add <user_id> <amount>.
// A negative amount subtracts.
func (h *AdminHandler) HandleAdminAdd(c tele.Context) error {
	userID, amount, err := parseAdminArgs(c)
	if err != nil {
		return c.Reply("Usage: /admin_add <user_id> <amount>")
	}

	desc := fmt.Sprintf("Admin adjustment by %d", c.Sender().ID)
	if err := h.currencyService.Adjust(context.Background(), userID, h.currencyID, amount, model.TxTypeAdminAdjust, desc); err != nil {
		return c.Reply("Adjustment failed: " + err.Error())
	}

	balance, err := h.currencyService.GetBalance(context.Background(), userID, h.currencyID)
	if err != nil {
		return c.Reply("Adjustment applied.")
	}
	return c.Reply(fmt.Sprintf("Adjusted user %d by %d, new balance: %d", userID, amount, balance))
}

// HandleAdminSet handles /admin_set <user_id> <amount>.
func (h *AdminHandler) HandleAdminSet(c tele.Context) error {
	userID, amount, err := parseAdminArgs(c)
	if err != nil || amount < 0 {
		return c.Reply("Usage: /admin_set <user_id> <amount>")
	}

	if err := h.currencyService.SetBalance(context.Background(), userID, h.currencyID, amount); err != nil {
		return c.Reply("Failed to set balance: " + err.Error())
	}
	return c.Reply(fmt.Sprintf("Set user %d balance to %d", userID, amount))
}

// parseAdminArgs extracts the target user and amount. Replying to a
// message targets its sender and shifts the arguments by one.
func parseAdminArgs(c tele.Context) (userID, amount int64, err error) {
	args := c.Args()

	if msg := c.Message(); msg != nil && msg.ReplyTo != nil && msg.ReplyTo.Sender != nil {
		if len(args) < 1 {
			return 0, 0, fmt.Errorf("missing amount")
		}
		amount, err = strconv.ParseInt(args[0], 10, 64)
		return msg.ReplyTo.Sender.ID, amount, err
	}

	if len(args) < 2 {
		return 0, 0, fmt.Errorf("missing arguments")
	}
	userID, err = strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	amount, err = strconv.ParseInt(args[1], 10, 64)
	return userID, amount, err
}
