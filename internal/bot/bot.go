// Package bot is the Telegram front end of the admin console. Each command
// maps to one console screen or action; list commands read through the shared
// query controllers so paging, search and stale-response handling behave the
// same everywhere.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/telebot.v3"

	"tambolaadmin/internal/api"
	"tambolaadmin/internal/config"
	"tambolaadmin/internal/console"
	"tambolaadmin/internal/logger"
	"tambolaadmin/internal/notify"
	"tambolaadmin/internal/prize"
	"tambolaadmin/internal/session"
)

// Deps are the collaborators the bot is wired with.
type Deps struct {
	Client   *api.Client
	Sessions *session.Store
	Notifier *notify.Notifier
}

// Bot drives the Telegram admin console.
type Bot struct {
	tb       *telebot.Bot
	client   *api.Client
	sessions *session.Store
	notifier *notify.Notifier
	adminID  int64
	timeout  time.Duration
	printer  *message.Printer

	users       *console.Query[api.User]
	orders      *console.Query[api.Order]
	commissions *console.Query[api.Commission]
	userMut     *console.Mutator
	commMut     *console.Mutator
	engine      *prize.Engine
}

// New creates the bot and registers every command handler. It does not start
// polling; call Start for that.
func New(cfg config.Config, d Deps) (*Bot, error) {
	tb, err := telebot.NewBot(telebot.Settings{
		Token: cfg.BotToken,
		Poller: &telebot.LongPoller{
			Timeout: 10 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	b := &Bot{
		tb:       tb,
		client:   d.Client,
		sessions: d.Sessions,
		notifier: d.Notifier,
		adminID:  cfg.AdminChatID,
		timeout:  cfg.RequestTimeout,
		printer:  message.NewPrinter(language.English),
		engine:   prize.NewEngine(d.Client, d.Notifier),
	}

	b.users = console.NewQuery(b.fetchUsers,
		console.WithName("users"),
		console.WithErrorFallback("Error fetching users"),
		console.WithLimit(cfg.PageLimit))
	b.orders = console.NewQuery(b.fetchOrders,
		console.WithName("orders"),
		console.WithErrorFallback("Error fetching orders"),
		console.WithLimit(cfg.PageLimit))
	b.commissions = console.NewQuery(b.fetchCommissions,
		console.WithName("commissions"),
		console.WithErrorFallback("Error fetching commissions"))
	b.userMut = console.NewMutator(d.Notifier, b.users)
	b.commMut = console.NewMutator(d.Notifier, b.commissions)

	tb.Use(b.adminOnly)

	tb.Handle("/start", b.handleStart)
	tb.Handle("/help", b.handleHelp)
	tb.Handle("/login", b.handleLogin)
	tb.Handle("/logout", b.handleLogout)
	tb.Handle("/whoami", b.handleWhoami)

	tb.Handle("/users", b.handleUsers)
	tb.Handle("/finduser", b.handleFindUser)
	tb.Handle("/credit", b.handleWallet(true))
	tb.Handle("/debit", b.handleWallet(false))
	tb.Handle("/block", b.handleBlock(true))
	tb.Handle("/unblock", b.handleBlock(false))

	tb.Handle("/orders", b.handleOrders)
	tb.Handle("/findorder", b.handleFindOrder)

	tb.Handle("/commissions", b.handleCommissions)
	tb.Handle("/setcommission", b.handleSetCommission)
	tb.Handle("/delcommission", b.handleDelCommission)

	tb.Handle("/games", b.handleGames)
	tb.Handle("/winners", b.handleWinners)
	tb.Handle("/addprize", b.handleAddPrize)
	tb.Handle("/delprize", b.handleDelPrize)
	tb.Handle("/prizes", b.handlePrizes)
	tb.Handle("/distribute", b.handleDistribute)

	tb.Handle("/analytics", b.handleAnalytics)
	tb.Handle("/dashboard", b.handleDashboard)
	tb.Handle("/report", b.handleReport)

	return b, nil
}

// Start begins long polling and forwards notifications to the admin chat.
// It blocks until Stop is called.
func (b *Bot) Start() {
	go b.watchNotifications()
	logger.Debug(b.adminID, "bot_started", "")
	b.tb.Start()
}

// Stop halts polling.
func (b *Bot) Stop() {
	b.tb.Stop()
}

// adminOnly rejects everyone except the configured admin chat. The console
// manages real money; an unknown sender gets no detail beyond the refusal.
func (b *Bot) adminOnly(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if c.Sender() == nil || c.Sender().ID != b.adminID {
			id := int64(0)
			if c.Sender() != nil {
				id = c.Sender().ID
			}
			logger.Debug(id, "access_denied", "")
			return c.Send("This bot is private.")
		}
		return next(c)
	}
}

// watchNotifications pushes each new notification to the admin chat as soon
// as it is shown. The channel coalesces bursts; the loop re-reads the current
// slot every wakeup, so only the latest notification is ever sent.
func (b *Bot) watchNotifications() {
	for range b.notifier.Watch() {
		n := b.notifier.Current()
		if !n.Visible {
			continue
		}
		text := severityEmoji(n.Severity) + " " + n.Message
		if _, err := b.tb.Send(&telebot.User{ID: b.adminID}, text); err != nil {
			logger.Error(b.adminID, "notify_send_failed", fmt.Sprintf("error=%v", err))
		}
	}
}

func severityEmoji(s notify.Severity) string {
	switch s {
	case notify.Success:
		return "✅"
	case notify.Error:
		return "❌"
	case notify.Warning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

func (b *Bot) handleStart(c telebot.Context) error {
	logger.Debug(c.Sender().ID, "command_start", fmt.Sprintf("username=%s", c.Sender().Username))
	text := "Welcome to the Tambola admin console! 🎪\n\n" +
		"Log in first with /login <email> <password>, then use /help to see every command."
	return c.Send(text)
}

func (b *Bot) handleHelp(c telebot.Context) error {
	logger.Debug(c.Sender().ID, "command_help", "")
	helpText := "📚 *Available Commands*\n\n" +
		"/login <email> <password> - Sign in to the platform\n" +
		"/logout - Clear the stored session\n" +
		"/whoami - Show the current session\n\n" +
		"/users [page] - List users\n" +
		"/finduser <term> - Search users\n" +
		"/credit <user_id> <amount> <description> - Credit a wallet\n" +
		"/debit <user_id> <amount> <description> - Debit a wallet\n" +
		"/block <user_id> - Block a user\n" +
		"/unblock <user_id> - Unblock a user\n\n" +
		"/orders [page] - List orders\n" +
		"/findorder <term> - Search orders\n\n" +
		"/commissions - List commission rules\n" +
		"/setcommission <code> <rate> <type> <name> - Create or update a rule\n" +
		"/delcommission <code> - Delete a rule\n\n" +
		"/games - List games\n" +
		"/winners <game_id> - Select a game and list its winners\n" +
		"/addprize <winner_id> <amount> <pattern> - Stage a prize\n" +
		"/delprize <n> - Remove staged prize n\n" +
		"/prizes - Show staged prizes\n" +
		"/distribute - Distribute all staged prizes\n\n" +
		"/analytics <year> <month> [provider] - Provider report\n" +
		"/dashboard - Platform totals\n" +
		"/report [type] - Download link for a CSV report"
	return c.Send(helpText, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}

func (b *Bot) handleLogin(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_login", "")

	args := c.Args()
	if len(args) < 2 {
		return c.Send("Usage: /login <email> <password>")
	}

	// A stored unexpired session makes a fresh login unnecessary.
	if _, err := b.sessions.Token(); err == nil {
		if sess, err := b.sessions.Get(); err == nil && sess != nil {
			return c.Send(fmt.Sprintf("Already logged in as %s. Use /logout first to switch accounts.", sess.Email))
		}
	}

	ctx, cancel := b.opCtx()
	defer cancel()
	res, err := b.client.Login(ctx, args[0], args[1])
	if err != nil {
		logger.Debug(userID, "login_failed", fmt.Sprintf("error=%v", err))
		return c.Send("❌ " + api.Message(err, "Login failed. Please try again."))
	}

	sess := session.Session{
		Token:    res.Token,
		UserName: res.Username,
		Email:    res.Email,
		Role:     "admin",
	}
	if err := b.sessions.Set(sess); err != nil {
		logger.Error(userID, "session_save_failed", fmt.Sprintf("error=%v", err))
		return c.Send("Error saving session. Please try again.")
	}

	logger.Debug(userID, "login_ok", "email="+res.Email)
	return c.Send(fmt.Sprintf("✅ Logged in as %s (%s).", res.Username, res.Email))
}

func (b *Bot) handleLogout(c telebot.Context) error {
	logger.Debug(c.Sender().ID, "command_logout", "")
	if err := b.sessions.Clear(); err != nil {
		return c.Send("Error clearing session. Please try again.")
	}
	return c.Send("👋 Logged out.")
}

func (b *Bot) handleWhoami(c telebot.Context) error {
	logger.Debug(c.Sender().ID, "command_whoami", "")
	sess, err := b.sessions.Get()
	if err != nil {
		return c.Send("Error reading session. Please try again.")
	}
	if sess == nil {
		return c.Send("Not logged in. Use /login <email> <password>.")
	}
	status := "valid"
	if !sess.ExpiresAt.IsZero() && time.Now().After(sess.ExpiresAt) {
		status = "expired"
	}
	return c.Send(fmt.Sprintf("👤 %s (%s)\nSession: %s", sess.UserName, sess.Email, status))
}

// requireLogin short-circuits commands that need a token before any
// controller work starts, so the reply is immediate rather than a fetch
// error.
func (b *Bot) requireLogin(c telebot.Context) bool {
	if _, err := b.sessions.Token(); err != nil {
		_ = c.Send("🔒 " + err.Error() + ". Use /login <email> <password>.")
		return false
	}
	return true
}

func (b *Bot) opCtx() (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.timeout)
}

// truncate shortens s for list rendering.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// escapeMarkdown escapes the characters Telegram Markdown treats specially.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		"*", `\*`,
		"_", `\_`,
		"`", "\\`",
		"[", `\[`,
		"]", `\]`,
	)
	return r.Replace(s)
}
