package bot

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/telebot.v3"

	"tambolaadmin/internal/console"
	"tambolaadmin/internal/logger"
)

func (b *Bot) handleGames(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_games", "")
	if !b.requireLogin(c) {
		return nil
	}

	ctx, cancel := b.opCtx()
	defer cancel()
	if err := b.engine.LoadGames(ctx); err != nil {
		return nil
	}

	games := b.engine.Games()
	if len(games) == 0 {
		return c.Send("🎪 *Games*\n\nNo games available.", &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	}
	text := "🎪 *Games*\n\n"
	for _, g := range games {
		marker := ""
		if g.GameID == b.engine.SelectedGame() {
			marker = " 👈 selected"
		}
		text += fmt.Sprintf("`%s` %s%s\n", g.GameID, escapeMarkdown(g.GameName), marker)
	}
	text += "\nUse /winners <game_id> to pick a game."
	return c.Send(text, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

func (b *Bot) handleWinners(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_winners", strings.Join(c.Args(), " "))
	if !b.requireLogin(c) {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Send("Usage: /winners <game_id>")
	}

	ctx, cancel := b.opCtx()
	defer cancel()
	if err := b.engine.SelectGame(ctx, args[0]); err != nil {
		return nil
	}

	st := b.engine.Winners()
	if len(st.Items) == 0 {
		return c.Send("🏆 *Winners*\n\nNo winners for this game yet.", &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	}
	text := fmt.Sprintf("🏆 *Winners of %s*\n\n", args[0])
	for _, w := range st.Items {
		text += fmt.Sprintf("*%d.* %s (ticket %s, #%d)\n   🎯 %s\n\n",
			w.ID,
			escapeMarkdown(w.PlayerName),
			w.TicketID,
			w.WinningTicketNumber,
			strings.Join(w.Patterns, ", "))
	}
	text += "Use /addprize <winner_id> <amount> <pattern> to stage a prize."
	return c.Send(text, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

func (b *Bot) handleAddPrize(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_addprize", strings.Join(c.Args(), " "))
	if !b.requireLogin(c) {
		return nil
	}

	args := c.Args()
	if len(args) < 3 {
		return c.Send("Usage: /addprize <winner_id> <amount> <pattern>")
	}
	if err := b.engine.AddPrize(args[0], args[1], strings.Join(args[2:], " ")); err != nil {
		return nil
	}
	return c.Send(fmt.Sprintf("➕ Prize staged. %d pending; /distribute when ready.", len(b.engine.Staged())))
}

func (b *Bot) handleDelPrize(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_delprize", strings.Join(c.Args(), " "))
	if !b.requireLogin(c) {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Send("Usage: /delprize <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return c.Send("Prize number must be a positive number; see /prizes.")
	}
	if err := b.engine.RemovePrize(n - 1); err != nil {
		return c.Send("No staged prize with that number; see /prizes.")
	}
	return c.Send(fmt.Sprintf("➖ Prize removed. %d pending.", len(b.engine.Staged())))
}

func (b *Bot) handlePrizes(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_prizes", "")
	if !b.requireLogin(c) {
		return nil
	}

	staged := b.engine.Staged()
	if len(staged) == 0 {
		return c.Send("🎁 *Staged Prizes*\n\nNothing staged. Use /addprize to build a batch.", &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	}
	var total int64
	text := fmt.Sprintf("🎁 *Staged Prizes for %s*\n\n", b.engine.SelectedGame())
	for i, d := range staged {
		total += d.Amount
		text += fmt.Sprintf("*%d.* winner %d | %s | %s\n",
			i+1, d.WinnerID, b.printer.Sprintf("₹%d", d.Amount), escapeMarkdown(d.Pattern))
	}
	text += fmt.Sprintf("\nTotal: %s across %d prizes.\n/distribute sends them all at once.",
		b.printer.Sprintf("₹%d", total), len(staged))
	return c.Send(text, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

func (b *Bot) handleDistribute(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_distribute", "")
	if !b.requireLogin(c) {
		return nil
	}

	if b.engine.Committing() {
		return c.Send("⏳ A distribution is already running.")
	}

	ctx, cancel := b.opCtx()
	defer cancel()
	if err := b.engine.Commit(ctx); err != nil {
		return nil
	}

	st := b.engine.Winners()
	if st.Status == console.StatusSuccess {
		return c.Send(fmt.Sprintf("🏁 Distribution complete. %d winners on record for %s.",
			len(st.Items), b.engine.SelectedGame()))
	}
	return nil
}
