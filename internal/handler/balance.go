package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"telegram-trivia-bot/internal/service"
)

// BalanceHandler handles balance inspection commands.
type BalanceHandler struct {
	currencyService *service.CurrencyService
	currencyID      string
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(currencyService *service.CurrencyService, currencyID string) *BalanceHandler {
	return &BalanceHandler{
		currencyService: currencyService,
		currencyID:      currencyID,
	}
}

// HandleBalance handles the /balance command.
func (h *BalanceHandler) HandleBalance(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	balance, err := h.currencyService.GetBalance(ctx, sender.ID, h.currencyID)
	if err != nil {
		return c.Reply("Failed to look up your balance, please try again later.")
	}

	name, err := h.currencyService.CurrencyName(ctx, h.currencyID)
	if err != nil || name == "" {
		name = h.currencyID
	}

	return c.Reply(fmt.Sprintf("Your balance: %d %s", balance, name))
}

// HandleTop handles the /top command, listing the richest users.
func (h *BalanceHandler) HandleTop(c tele.Context) error {
	ctx := context.Background()

	top, err := h.currencyService.GetTopBalances(ctx, h.currencyID, 10)
	if err != nil {
		return c.Reply("Failed to load the leaderboard, please try again later.")
	}
	if len(top) == 0 {
		return c.Reply("Nobody holds a balance yet.")
	}

	var sb strings.Builder
	sb.WriteString("Top balances:\n")
	for i, b := range top {
		fmt.Fprintf(&sb, "%d. %d — %d\n", i+1, b.UserID, b.Amount)
	}
	return c.Reply(sb.String())
}
