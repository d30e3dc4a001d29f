package prize

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tambolaadmin/internal/api"
	"tambolaadmin/internal/console"
	"tambolaadmin/internal/notify"
)

// fakeGameAPI is an in-memory platform for engine tests.
type fakeGameAPI struct {
	mu            sync.Mutex
	games         []api.Game
	winners       map[string][]api.Winner
	distributeErr error
	distributions []struct {
		gameID string
		prizes []api.PrizeAward
	}
	// When set, DistributePrizes announces itself on started and then waits
	// for release, so a test can act while the request is in flight.
	started chan struct{}
	release chan struct{}
}

func (f *fakeGameAPI) ListGames(ctx context.Context) ([]api.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.games, nil
}

func (f *fakeGameAPI) ListWinners(ctx context.Context, gameID string) ([]api.Winner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.winners[gameID], nil
}

func (f *fakeGameAPI) DistributePrizes(ctx context.Context, gameID string, prizes []api.PrizeAward) (string, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.distributeErr != nil {
		return "", f.distributeErr
	}
	f.distributions = append(f.distributions, struct {
		gameID string
		prizes []api.PrizeAward
	}{gameID, prizes})
	return "Prizes distributed successfully", nil
}

func newFake() *fakeGameAPI {
	return &fakeGameAPI{
		games: []api.Game{
			{GameID: "G-1", GameName: "Friday Night Tambola"},
			{GameID: "G-2", GameName: "Weekend Special"},
		},
		winners: map[string][]api.Winner{
			"G-1": {
				{ID: 11, TicketID: "T-11", Patterns: []string{"Full House"}, PlayerName: "Asha"},
				{ID: 12, TicketID: "T-12", Patterns: []string{"Top Line"}, PlayerName: "Bala"},
			},
		},
	}
}

func TestSelectGameLoadsWinnersAndClearsStaging(t *testing.T) {
	fake := newFake()
	e := NewEngine(fake, notify.New(time.Minute))
	ctx := context.Background()

	require.NoError(t, e.LoadGames(ctx))
	require.Len(t, e.Games(), 2)

	require.NoError(t, e.SelectGame(ctx, "G-1"))
	require.Equal(t, "G-1", e.SelectedGame())
	st := e.Winners()
	require.Equal(t, console.StatusSuccess, st.Status)
	require.Len(t, st.Items, 2)

	require.NoError(t, e.AddPrize("11", "500", "Full House"))
	require.Len(t, e.Staged(), 1)

	// Switching games discards staged work; prizes never leak across games.
	require.NoError(t, e.SelectGame(ctx, "G-2"))
	require.Empty(t, e.Staged())
	require.Empty(t, e.Winners().Items)
}

func TestAddPrizeValidation(t *testing.T) {
	notifier := notify.New(time.Minute)
	e := NewEngine(newFake(), notifier)

	tests := []struct {
		name                      string
		winnerID, amount, pattern string
	}{
		{"non-numeric winner", "abc", "100", "Top Line"},
		{"empty winner", "", "100", "Top Line"},
		{"non-numeric amount", "11", "lots", "Top Line"},
		{"zero amount", "11", "0", "Top Line"},
		{"negative amount", "11", "-50", "Top Line"},
		{"blank pattern", "11", "100", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, e.AddPrize(tt.winnerID, tt.amount, tt.pattern))
			require.Empty(t, e.Staged())
			require.Equal(t, "Please fill all prize fields", notifier.Current().Message)
		})
	}

	require.NoError(t, e.AddPrize(" 11 ", " 500 ", " Full House "))
	staged := e.Staged()
	require.Len(t, staged, 1)
	require.Equal(t, Draft{WinnerID: 11, Amount: 500, Pattern: "Full House"}, staged[0])
}

func TestRemovePrize(t *testing.T) {
	e := NewEngine(newFake(), notify.New(time.Minute))

	require.NoError(t, e.AddPrize("11", "500", "Full House"))
	require.NoError(t, e.AddPrize("12", "250", "Top Line"))
	require.NoError(t, e.AddPrize("12", "100", "Bottom Line"))

	require.Error(t, e.RemovePrize(-1))
	require.Error(t, e.RemovePrize(3))

	require.NoError(t, e.RemovePrize(1))
	staged := e.Staged()
	require.Len(t, staged, 2)
	require.Equal(t, "Full House", staged[0].Pattern)
	require.Equal(t, "Bottom Line", staged[1].Pattern)
}

func TestCommitPreconditions(t *testing.T) {
	fake := newFake()
	notifier := notify.New(time.Minute)
	e := NewEngine(fake, notifier)
	ctx := context.Background()

	// Empty staging is checked before game selection.
	require.Error(t, e.Commit(ctx))
	require.Equal(t, "Please add at least one prize to distribute", notifier.Current().Message)

	require.NoError(t, e.AddPrize("11", "500", "Full House"))
	require.Error(t, e.Commit(ctx))
	require.Equal(t, "Please select a game first", notifier.Current().Message)
	require.Empty(t, fake.distributions)
}

func TestCommitSendsOneAtomicBatch(t *testing.T) {
	fake := newFake()
	notifier := notify.New(time.Minute)
	e := NewEngine(fake, notifier)
	ctx := context.Background()

	require.NoError(t, e.SelectGame(ctx, "G-1"))
	require.NoError(t, e.AddPrize("11", "500", "Full House"))
	require.NoError(t, e.AddPrize("12", "250", "Top Line"))

	require.NoError(t, e.Commit(ctx))

	require.Len(t, fake.distributions, 1, "the whole batch goes in one request")
	d := fake.distributions[0]
	require.Equal(t, "G-1", d.gameID)
	require.Equal(t, []api.PrizeAward{
		{WinnerID: 11, Amount: 500, Pattern: "Full House"},
		{WinnerID: 12, Amount: 250, Pattern: "Top Line"},
	}, d.prizes)

	require.Empty(t, e.Staged(), "success clears the staging list")
	require.Equal(t, notify.Success, notifier.Current().Severity)
	require.False(t, e.Committing())

	// A second commit with nothing staged is a precondition failure, so the
	// batch cannot be sent twice.
	require.Error(t, e.Commit(ctx))
	require.Len(t, fake.distributions, 1)
}

func TestCommitKeepsDraftsStagedMidFlight(t *testing.T) {
	fake := newFake()
	fake.started = make(chan struct{})
	fake.release = make(chan struct{})
	notifier := notify.New(time.Minute)
	e := NewEngine(fake, notifier)
	ctx := context.Background()

	require.NoError(t, e.SelectGame(ctx, "G-1"))
	require.NoError(t, e.AddPrize("11", "500", "Full House"))

	done := make(chan error, 1)
	go func() { done <- e.Commit(ctx) }()

	// Stage another draft while the distribute request is still out.
	<-fake.started
	require.NoError(t, e.AddPrize("12", "250", "Top Line"))
	close(fake.release)

	require.NoError(t, <-done)

	require.Len(t, fake.distributions, 1)
	require.Equal(t, []api.PrizeAward{
		{WinnerID: 11, Amount: 500, Pattern: "Full House"},
	}, fake.distributions[0].prizes)

	// The draft added mid-flight survives the commit.
	require.Equal(t, []Draft{
		{WinnerID: 12, Amount: 250, Pattern: "Top Line"},
	}, e.Staged())
}

func TestCommitFailurePreservesStaging(t *testing.T) {
	fake := newFake()
	fake.distributeErr = errors.New("connection refused")
	notifier := notify.New(time.Minute)
	e := NewEngine(fake, notifier)
	ctx := context.Background()

	require.NoError(t, e.SelectGame(ctx, "G-1"))
	require.NoError(t, e.AddPrize("11", "500", "Full House"))

	require.Error(t, e.Commit(ctx))
	require.Len(t, e.Staged(), 1, "failed distribution must keep staged prizes for retry")
	require.Equal(t, notify.Error, notifier.Current().Severity)
	require.False(t, e.Committing())

	// Retry succeeds once the platform recovers.
	fake.mu.Lock()
	fake.distributeErr = nil
	fake.mu.Unlock()
	require.NoError(t, e.Commit(ctx))
	require.Empty(t, e.Staged())
	require.Len(t, fake.distributions, 1)
}

func TestCommitServerMessageWins(t *testing.T) {
	fake := newFake()
	fake.distributeErr = &api.Error{Status: 400, Message: "Game already settled"}
	notifier := notify.New(time.Minute)
	e := NewEngine(fake, notifier)
	ctx := context.Background()

	require.NoError(t, e.SelectGame(ctx, "G-1"))
	require.NoError(t, e.AddPrize("11", "500", "Full House"))
	require.Error(t, e.Commit(ctx))
	require.Equal(t, "Game already settled", notifier.Current().Message)
}
