package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/telebot.v3"

	"tambolaadmin/internal/api"
	"tambolaadmin/internal/console"
	"tambolaadmin/internal/logger"
)

func (b *Bot) fetchUsers(ctx context.Context, p console.Params) (console.Page[api.User], error) {
	res, err := b.client.ListUsers(ctx, p.Page, p.Limit, p.Search)
	if err != nil {
		return console.Page[api.User]{}, err
	}
	return console.Page[api.User]{Items: res.Users, Total: res.TotalUsers, TotalPages: res.TotalPages}, nil
}

func (b *Bot) handleUsers(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_users", strings.Join(c.Args(), " "))
	if !b.requireLogin(c) {
		return nil
	}

	page := 1
	if args := c.Args(); len(args) > 0 {
		p, err := strconv.Atoi(args[0])
		if err != nil || p < 1 {
			return c.Send("Usage: /users [page]")
		}
		page = p
	}

	if b.users.State().Page == page {
		b.users.Refresh()
	} else {
		b.users.SetPage(page)
	}
	st := console.Await(b.users, b.timeout)
	return c.Send(b.renderUsers(st), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

func (b *Bot) handleFindUser(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_finduser", strings.Join(c.Args(), " "))
	if !b.requireLogin(c) {
		return nil
	}

	term := strings.Join(c.Args(), " ")
	if term == "" {
		return c.Send("Usage: /finduser <term>")
	}

	if b.users.State().Search == term {
		b.users.Refresh()
	} else {
		b.users.SetSearch(term)
	}
	st := console.Await(b.users, b.timeout)
	return c.Send(b.renderUsers(st), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

func (b *Bot) renderUsers(st console.State[api.User]) string {
	if st.Status == console.StatusError && len(st.Items) == 0 {
		return "❌ " + st.ErrorMessage
	}
	if len(st.Items) == 0 {
		if st.Search != "" {
			return fmt.Sprintf("👥 *Users*\n\nNo users match %q.", st.Search)
		}
		return "👥 *Users*\n\nNo users found."
	}

	header := "👥 *Users*"
	if st.Search != "" {
		header += fmt.Sprintf(" matching %q", st.Search)
	}
	text := header + "\n\n"
	for _, u := range st.Items {
		flag := ""
		if u.IsBlocked {
			flag = " 🚫 BLOCKED"
		}
		text += fmt.Sprintf("*%d.* %s%s\n   📧 %s | 📱 %s\n   💰 %s\n\n",
			u.ID,
			escapeMarkdown(u.Name),
			flag,
			escapeMarkdown(u.Email),
			u.Phone,
			b.printer.Sprintf("₹%.2f", u.WalletBalance))
	}
	text += fmt.Sprintf("Page %d/%d | %s users", st.Page, st.TotalPages, b.printer.Sprint(st.Total))
	if st.Status == console.StatusError {
		text += "\n⚠️ " + st.ErrorMessage + " (showing last known data)"
	}
	return text
}

func (b *Bot) handleWallet(credit bool) telebot.HandlerFunc {
	name := "debit"
	verb := "debited from"
	call := func(ctx context.Context, id int64, amount float64, desc string) (string, error) {
		return b.client.WalletDebit(ctx, id, amount, desc)
	}
	if credit {
		name = "credit"
		verb = "credited to"
		call = func(ctx context.Context, id int64, amount float64, desc string) (string, error) {
			return b.client.WalletCredit(ctx, id, amount, desc)
		}
	}

	return func(c telebot.Context) error {
		senderID := c.Sender().ID
		logger.Debug(senderID, "command_"+name, strings.Join(c.Args(), " "))
		if !b.requireLogin(c) {
			return nil
		}

		args := c.Args()
		if len(args) < 3 {
			return c.Send(fmt.Sprintf("Usage: /%s <user_id> <amount> <description>", name))
		}
		targetID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("User ID must be a number.")
		}
		amount, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return c.Send("Amount must be a number.")
		}
		desc := strings.Join(args[2:], " ")

		ctx, cancel := b.opCtx()
		defer cancel()
		_, err = b.userMut.Submit(ctx, console.Op{
			Name:     "wallet_" + name,
			Validate: func() error { return console.ValidateWalletTxn(amount, desc) },
			Do: func(ctx context.Context) (string, error) {
				return call(ctx, targetID, amount, desc)
			},
			Success: fmt.Sprintf("%s %s user %d", b.printer.Sprintf("₹%.2f", amount), verb, targetID),
			Failure: "Error updating wallet",
		})
		if errors.Is(err, console.ErrInFlight) {
			return c.Send("⏳ Another operation is still running. Try again in a moment.")
		}
		return nil
	}
}

func (b *Bot) handleBlock(block bool) telebot.HandlerFunc {
	name := "unblock"
	call := b.client.UnblockUser
	if block {
		name = "block"
		call = b.client.BlockUser
	}

	return func(c telebot.Context) error {
		senderID := c.Sender().ID
		logger.Debug(senderID, "command_"+name, strings.Join(c.Args(), " "))
		if !b.requireLogin(c) {
			return nil
		}

		args := c.Args()
		if len(args) < 1 {
			return c.Send(fmt.Sprintf("Usage: /%s <user_id>", name))
		}
		targetID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("User ID must be a number.")
		}

		ctx, cancel := b.opCtx()
		defer cancel()
		_, err = b.userMut.Submit(ctx, console.Op{
			Name: "user_" + name,
			Do: func(ctx context.Context) (string, error) {
				return call(ctx, targetID)
			},
			Success: fmt.Sprintf("User %d %sed", targetID, name),
			Failure: "Error updating user",
		})
		if errors.Is(err, console.ErrInFlight) {
			return c.Send("⏳ Another operation is still running. Try again in a moment.")
		}
		return nil
	}
}
