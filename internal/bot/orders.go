package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/telebot.v3"

	"tambolaadmin/internal/api"
	"tambolaadmin/internal/console"
	"tambolaadmin/internal/logger"
)

func (b *Bot) fetchOrders(ctx context.Context, p console.Params) (console.Page[api.Order], error) {
	res, err := b.client.ListOrders(ctx, p.Page, p.Limit, p.Search)
	if err != nil {
		return console.Page[api.Order]{}, err
	}
	return console.Page[api.Order]{Items: res.Orders, Total: res.Total, TotalPages: res.TotalPages}, nil
}

func (b *Bot) handleOrders(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_orders", strings.Join(c.Args(), " "))
	if !b.requireLogin(c) {
		return nil
	}

	page := 1
	if args := c.Args(); len(args) > 0 {
		p, err := strconv.Atoi(args[0])
		if err != nil || p < 1 {
			return c.Send("Usage: /orders [page]")
		}
		page = p
	}

	if b.orders.State().Page == page {
		b.orders.Refresh()
	} else {
		b.orders.SetPage(page)
	}
	st := console.Await(b.orders, b.timeout)
	return c.Send(b.renderOrders(st), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

func (b *Bot) handleFindOrder(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_findorder", strings.Join(c.Args(), " "))
	if !b.requireLogin(c) {
		return nil
	}

	term := strings.Join(c.Args(), " ")
	if term == "" {
		return c.Send("Usage: /findorder <term>")
	}

	if b.orders.State().Search == term {
		b.orders.Refresh()
	} else {
		b.orders.SetSearch(term)
	}
	st := console.Await(b.orders, b.timeout)
	return c.Send(b.renderOrders(st), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

func statusEmoji(status string) string {
	switch strings.ToLower(status) {
	case "success", "completed":
		return "✅"
	case "pending":
		return "⏳"
	case "failed":
		return "❌"
	default:
		return "❔"
	}
}

func (b *Bot) renderOrders(st console.State[api.Order]) string {
	if st.Status == console.StatusError && len(st.Items) == 0 {
		return "❌ " + st.ErrorMessage
	}
	if len(st.Items) == 0 {
		if st.Search != "" {
			return fmt.Sprintf("🧾 *Orders*\n\nNo orders match %q.", st.Search)
		}
		return "🧾 *Orders*\n\nNo orders found."
	}

	header := "🧾 *Orders*"
	if st.Search != "" {
		header += fmt.Sprintf(" matching %q", st.Search)
	}
	text := header + "\n\n"
	for _, o := range st.Items {
		text += fmt.Sprintf("*#%d* %s %s\n   👤 %s | 📱 %s\n   %s %s via %s\n   🕐 %s\n\n",
			o.ID,
			escapeMarkdown(truncate(o.ServiceType+" "+o.Operator, 40)),
			statusEmoji(o.Status),
			escapeMarkdown(o.User.Name),
			o.Number,
			b.printer.Sprintf("₹%.2f", o.TotalAmount),
			strings.ToUpper(o.Status),
			o.PaymentType,
			o.CreatedAt.Format("Jan 2, 2006 15:04"))
	}
	text += fmt.Sprintf("Page %d/%d | %s orders", st.Page, st.TotalPages, b.printer.Sprint(st.Total))
	if st.Status == console.StatusError {
		text += "\n⚠️ " + st.ErrorMessage + " (showing last known data)"
	}
	return text
}
