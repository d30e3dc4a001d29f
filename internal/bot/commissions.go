package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/telebot.v3"

	"tambolaadmin/internal/api"
	"tambolaadmin/internal/console"
	"tambolaadmin/internal/logger"
)

func (b *Bot) fetchCommissions(ctx context.Context, _ console.Params) (console.Page[api.Commission], error) {
	commissions, err := b.client.ListCommissions(ctx)
	if err != nil {
		return console.Page[api.Commission]{}, err
	}
	return console.Page[api.Commission]{Items: commissions, Total: len(commissions), TotalPages: 1}, nil
}

func (b *Bot) handleCommissions(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_commissions", "")
	if !b.requireLogin(c) {
		return nil
	}

	b.commissions.Refresh()
	st := console.Await(b.commissions, b.timeout)
	if st.Status == console.StatusError && len(st.Items) == 0 {
		return c.Send("❌ " + st.ErrorMessage)
	}
	if len(st.Items) == 0 {
		return c.Send("💸 *Commissions*\n\nNo commission rules configured.", &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	}

	text := "💸 *Commissions*\n\n"
	for _, cm := range st.Items {
		active := "🟢 active"
		if !cm.IsActive {
			active = "⚪ inactive"
		}
		text += fmt.Sprintf("*%s* %s (%s)\n   Rate: %s%% | %s\n\n",
			escapeMarkdown(cm.ProviderCode),
			escapeMarkdown(cm.ProviderName),
			cm.ProviderType,
			cm.CommissionRate,
			active)
	}
	if st.Status == console.StatusError {
		text += "⚠️ " + st.ErrorMessage + " (showing last known data)"
	}
	return c.Send(text, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

// handleSetCommission creates or updates a rule. Whether this is a create or
// an update is decided here, from the loaded list, before anything is sent;
// the server route differs between the two.
func (b *Bot) handleSetCommission(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_setcommission", strings.Join(c.Args(), " "))
	if !b.requireLogin(c) {
		return nil
	}

	args := c.Args()
	if len(args) < 4 {
		return c.Send("Usage: /setcommission <code> <rate> <type> <name>")
	}
	body := api.CommissionUpsert{
		ProviderCode:   args[0],
		CommissionRate: args[1],
		ProviderType:   args[2],
		ProviderName:   strings.Join(args[3:], " "),
		IsActive:       true,
	}

	ctx, cancel := b.opCtx()
	defer cancel()

	if b.commissions.State().Status == console.StatusIdle {
		if err := b.commissions.Reload(ctx); err != nil {
			return c.Send("❌ " + api.Message(err, "Error fetching commissions"))
		}
	}
	update := false
	for _, cm := range b.commissions.State().Items {
		if cm.ProviderCode == body.ProviderCode {
			update = true
			break
		}
	}

	_, err := b.commMut.Submit(ctx, console.Op{
		Name:     "commission_save",
		Validate: func() error { return console.ValidateCommission(body) },
		Do: func(ctx context.Context) (string, error) {
			return b.client.SaveCommission(ctx, body, update)
		},
		Failure: "Error saving commission",
	})
	if errors.Is(err, console.ErrInFlight) {
		return c.Send("⏳ Another operation is still running. Try again in a moment.")
	}
	return nil
}

func (b *Bot) handleDelCommission(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_delcommission", strings.Join(c.Args(), " "))
	if !b.requireLogin(c) {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Send("Usage: /delcommission <code>")
	}
	code := args[0]

	ctx, cancel := b.opCtx()
	defer cancel()
	_, err := b.commMut.Submit(ctx, console.Op{
		Name: "commission_delete",
		Do: func(ctx context.Context) (string, error) {
			return b.client.DeleteCommission(ctx, code)
		},
		Success: fmt.Sprintf("Commission %s deleted", code),
		Failure: "Error deleting commission",
	})
	if errors.Is(err, console.ErrInFlight) {
		return c.Send("⏳ Another operation is still running. Try again in a moment.")
	}
	return nil
}
