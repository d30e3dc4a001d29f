package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/telebot.v3"

	"tambolaadmin/internal/analytics"
	"tambolaadmin/internal/api"
	"tambolaadmin/internal/logger"
)

func (b *Bot) handleAnalytics(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_analytics", strings.Join(c.Args(), " "))
	if !b.requireLogin(c) {
		return nil
	}

	now := time.Now()
	year, month := now.Year(), int(now.Month())
	providerCode := ""
	args := c.Args()
	if len(args) >= 2 {
		y, errY := strconv.Atoi(args[0])
		m, errM := strconv.Atoi(args[1])
		if errY != nil || errM != nil || m < 1 || m > 12 {
			return c.Send("Usage: /analytics <year> <month> [provider]")
		}
		year, month = y, m
		if len(args) >= 3 {
			providerCode = args[2]
		}
	} else if len(args) == 1 {
		providerCode = args[0]
	}

	ctx, cancel := b.opCtx()
	defer cancel()
	reports, err := b.client.ProviderAnalytics(ctx, year, month, providerCode)
	if err != nil {
		return c.Send("❌ " + api.Message(err, "Error fetching analytics"))
	}
	if len(reports) == 0 {
		return c.Send(fmt.Sprintf("📈 *Analytics %d-%02d*\n\nNo activity for this period.", year, month),
			&telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	}

	text := fmt.Sprintf("📈 *Analytics %d-%02d*\n\n", year, month)
	for _, r := range reports {
		s := analytics.Summarize(r)
		text += fmt.Sprintf("*%s*\n   🧾 %s orders | 💰 %s\n   💸 Commission: %s\n",
			escapeMarkdown(r.ProviderCode),
			b.printer.Sprint(s.Orders),
			b.printer.Sprintf("₹%.2f", s.Amount),
			b.printer.Sprintf("₹%.2f", s.Commission))
		for _, slice := range analytics.CommissionSplit(s) {
			text += fmt.Sprintf("      %s: %s (%.0f%%)\n",
				slice.Name, b.printer.Sprintf("₹%.2f", slice.Value), slice.Share*100)
		}
		if s.BestDay != "" {
			text += fmt.Sprintf("   🏅 Best day: %s (%s)\n",
				s.BestDay, b.printer.Sprintf("₹%.2f", s.BestDayAmount))
		}
		text += "\n"
	}
	return c.Send(text, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

func (b *Bot) handleDashboard(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_dashboard", "")
	if !b.requireLogin(c) {
		return nil
	}

	ctx, cancel := b.opCtx()
	defer cancel()
	summary, err := b.client.Dashboard(ctx)
	if err != nil {
		return c.Send("❌ " + api.Message(err, "Error fetching dashboard"))
	}

	text := fmt.Sprintf("📊 *Dashboard*\n\n"+
		"👥 Users: %s (%s new this month)\n"+
		"🧾 Orders: %s (%s this month)\n"+
		"💰 Revenue: %s (%s this month)\n"+
		"💳 UPI payments: %s\n\n"+
		"👛 Wallet activity (%s transactions):\n",
		b.printer.Sprint(summary.TotalUsers),
		b.printer.Sprint(summary.NewUsersThisMonth),
		b.printer.Sprint(summary.TotalOrders),
		b.printer.Sprint(summary.OrdersThisMonth),
		b.printer.Sprintf("₹%.2f", summary.TotalRevenue),
		b.printer.Sprintf("₹%.2f", summary.RevenueThisMonth),
		b.printer.Sprint(summary.TotalUpiPayments),
		b.printer.Sprint(summary.TotalWalletTransactions))
	for _, slice := range analytics.WalletActivitySplit(*summary) {
		text += fmt.Sprintf("   %s: %s (%.0f%%)\n",
			slice.Name, b.printer.Sprint(int(slice.Value)), slice.Share*100)
	}
	return c.Send(text, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

func (b *Bot) handleReport(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_report", strings.Join(c.Args(), " "))
	if !b.requireLogin(c) {
		return nil
	}

	reportType := "orders"
	if args := c.Args(); len(args) > 0 {
		reportType = args[0]
	}

	ctx, cancel := b.opCtx()
	defer cancel()
	fileURL, err := b.client.ReportURL(ctx, reportType)
	if err != nil {
		return c.Send("❌ " + api.Message(err, "Error generating report"))
	}
	return c.Send(fmt.Sprintf("📄 %s report ready:\n%s", reportType, fileURL))
}
