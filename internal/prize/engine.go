// Package prize implements the prize-distribution workflow: select a game,
// load its winners, stage a batch of prize assignments locally, then commit
// the whole batch to the platform in one request. Staging exists because
// distribution is all-or-nothing on the server; assembling the batch locally
// lets an operator build it across several interactions and keeps staged work
// intact through transient failures.
package prize

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"tambolaadmin/internal/api"
	"tambolaadmin/internal/console"
	"tambolaadmin/internal/logger"
	"tambolaadmin/internal/notify"
)

// GameAPI is the slice of the platform client the engine needs.
type GameAPI interface {
	ListGames(ctx context.Context) ([]api.Game, error)
	ListWinners(ctx context.Context, gameID string) ([]api.Winner, error)
	DistributePrizes(ctx context.Context, gameID string, prizes []api.PrizeAward) (string, error)
}

// Draft is one staged prize assignment. Drafts are identified by position in
// the staging list, not by content; duplicates are permitted.
type Draft struct {
	WinnerID int64
	Amount   int64
	Pattern  string
}

// Engine owns the staging list for the currently selected game.
type Engine struct {
	mu         sync.Mutex
	client     GameAPI
	notifier   *notify.Notifier
	games      []api.Game
	selected   string
	staging    []Draft
	committing bool

	winners *console.Query[api.Winner]
}

// NewEngine creates an engine with no game selected.
func NewEngine(client GameAPI, notifier *notify.Notifier) *Engine {
	e := &Engine{client: client, notifier: notifier}
	e.winners = console.NewQuery(e.fetchWinners,
		console.WithName("winners"),
		console.WithErrorFallback("Error fetching winners"))
	return e
}

// fetchWinners is the one-shot, unpaginated fetch backing the winners query.
func (e *Engine) fetchWinners(ctx context.Context, _ console.Params) (console.Page[api.Winner], error) {
	gid := e.SelectedGame()
	if gid == "" {
		return console.Page[api.Winner]{}, fmt.Errorf("no game selected")
	}
	winners, err := e.client.ListWinners(ctx, gid)
	if err != nil {
		return console.Page[api.Winner]{}, err
	}
	return console.Page[api.Winner]{Items: winners, Total: len(winners), TotalPages: 1}, nil
}

// LoadGames fetches the selectable games.
func (e *Engine) LoadGames(ctx context.Context) error {
	games, err := e.client.ListGames(ctx)
	if err != nil {
		e.notifier.Show(api.Message(err, "Error fetching games"), notify.Error)
		return err
	}
	e.mu.Lock()
	e.games = games
	e.mu.Unlock()
	logger.Debug(0, "games_loaded", fmt.Sprintf("count=%d", len(games)))
	return nil
}

// Games returns the loaded games.
func (e *Engine) Games() []api.Game {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]api.Game(nil), e.games...)
}

// SelectedGame returns the currently selected game ID, or "".
func (e *Engine) SelectedGame() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Winners returns the state of the winners list for the selected game.
func (e *Engine) Winners() console.State[api.Winner] {
	return e.winners.State()
}

// SelectGame switches to a game and loads its winners. Any staged prizes
// from a previous game are discarded; staged work never carries over between
// games.
func (e *Engine) SelectGame(ctx context.Context, gameID string) error {
	if gameID == "" {
		return fmt.Errorf("game ID must not be empty")
	}
	e.mu.Lock()
	e.selected = gameID
	e.staging = nil
	e.mu.Unlock()
	logger.Debug(0, "game_selected", "game_id="+gameID)

	if err := e.winners.Reload(ctx); err != nil {
		e.notifier.Show(api.Message(err, "Error fetching winners"), notify.Error)
		return err
	}
	return nil
}

// AddPrize validates and appends one draft to the end of the staging list.
// The three fields arrive as raw form input; winner ID and amount must parse
// as positive integers and the pattern must be non-empty, otherwise nothing
// is staged.
func (e *Engine) AddPrize(winnerID, amount, pattern string) error {
	wid, widErr := strconv.ParseInt(strings.TrimSpace(winnerID), 10, 64)
	amt, amtErr := strconv.ParseInt(strings.TrimSpace(amount), 10, 64)
	pat := strings.TrimSpace(pattern)
	if widErr != nil || amtErr != nil || wid <= 0 || amt <= 0 || pat == "" {
		e.notifier.Show("Please fill all prize fields", notify.Error)
		return fmt.Errorf("invalid prize fields")
	}

	e.mu.Lock()
	e.staging = append(e.staging, Draft{WinnerID: wid, Amount: amt, Pattern: pat})
	count := len(e.staging)
	e.mu.Unlock()
	logger.Debug(0, "prize_staged", fmt.Sprintf("winner_id=%d amount=%d pattern=%s staged=%d", wid, amt, pat, count))
	return nil
}

// RemovePrize removes the draft at the given position; the drafts after it
// shift down one place.
func (e *Engine) RemovePrize(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.staging) {
		return fmt.Errorf("no staged prize at position %d", index)
	}
	e.staging = append(e.staging[:index], e.staging[index+1:]...)
	return nil
}

// Staged returns a copy of the staging list in insertion order.
func (e *Engine) Staged() []Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Draft(nil), e.staging...)
}

// Committing reports whether a commit is currently running.
func (e *Engine) Committing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.committing
}

// Commit submits the staging list as one atomic batch. The preconditions, a
// non-empty staging list and a selected game, fail locally without any
// network call. On success the committed drafts are removed (drafts staged
// while the request was in flight stay pending) and the winners are
// re-fetched so the screen reflects server-side attribution; on failure the
// staging list is preserved unchanged. A Commit while one is already running
// is a no-op.
func (e *Engine) Commit(ctx context.Context) error {
	e.mu.Lock()
	if e.committing {
		e.mu.Unlock()
		return nil
	}
	if len(e.staging) == 0 {
		e.mu.Unlock()
		e.notifier.Show("Please add at least one prize to distribute", notify.Error)
		return fmt.Errorf("staging list is empty")
	}
	if e.selected == "" {
		e.mu.Unlock()
		e.notifier.Show("Please select a game first", notify.Error)
		return fmt.Errorf("no game selected")
	}
	e.committing = true
	gid := e.selected
	batch := make([]api.PrizeAward, len(e.staging))
	for i, d := range e.staging {
		batch[i] = api.PrizeAward{WinnerID: d.WinnerID, Amount: d.Amount, Pattern: d.Pattern}
	}
	e.mu.Unlock()

	msg, err := e.client.DistributePrizes(ctx, gid, batch)

	e.mu.Lock()
	e.committing = false
	if err != nil {
		e.mu.Unlock()
		e.notifier.Show(api.Message(err, "Error distributing prizes"), notify.Error)
		logger.Error(0, "distribute_failed", fmt.Sprintf("game_id=%s prizes=%d error=%v", gid, len(batch), err))
		return err
	}
	// Only the committed prefix goes; AddPrize may have appended more while
	// the request was out.
	e.staging = append([]Draft(nil), e.staging[len(batch):]...)
	if len(e.staging) == 0 {
		e.staging = nil
	}
	e.mu.Unlock()

	if msg == "" {
		msg = "Prizes distributed successfully"
	}
	e.notifier.Show(msg, notify.Success)
	logger.Debug(0, "prizes_distributed", fmt.Sprintf("game_id=%s prizes=%d", gid, len(batch)))

	if err := e.winners.Reload(ctx); err != nil {
		logger.Error(0, "winners_resync_failed", fmt.Sprintf("game_id=%s error=%v", gid, err))
	}
	return nil
}
