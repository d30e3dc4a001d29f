package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tambolaadmin/internal/api"
	"tambolaadmin/internal/apitest"
	"tambolaadmin/internal/session"
)

// loggedIn returns a session store already holding the fake server's token.
func loggedIn(t *testing.T, srv *apitest.Server) *session.Store {
	t.Helper()
	store, err := session.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Set(session.Session{Token: srv.Token}))
	return store
}

func emptyStore(t *testing.T) *session.Store {
	t.Helper()
	store, err := session.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLogin(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	client := api.New(srv.URL(), emptyStore(t))

	res, err := client.Login(context.Background(), srv.Email, srv.Password)
	require.NoError(t, err)
	require.Equal(t, srv.Token, res.Token)
	require.Equal(t, srv.Email, res.Email)

	_, err = client.Login(context.Background(), srv.Email, "wrong")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "Invalid credentials", apiErr.Message)
}

func TestListUsersPagination(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Users = []api.User{
		{ID: 1, Name: "Asha", Email: "asha@example.com", Phone: "9000000001"},
		{ID: 2, Name: "Bala", Email: "bala@example.com", Phone: "9000000002"},
		{ID: 3, Name: "Chitra", Email: "chitra@example.com", Phone: "9000000003"},
	}
	client := api.New(srv.URL(), loggedIn(t, srv))

	page, err := client.ListUsers(context.Background(), 1, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Users, 3)
	require.Equal(t, 3, page.TotalUsers)
	require.Equal(t, 1, page.TotalPages)

	page, err = client.ListUsers(context.Background(), 2, 2, "")
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	require.Equal(t, "Chitra", page.Users[0].Name)
	require.Equal(t, 2, page.TotalPages)

	page, err = client.ListUsers(context.Background(), 1, 10, "bala")
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	require.Equal(t, int64(2), page.Users[0].ID)
}

func TestEmptySearchIsOmitted(t *testing.T) {
	var gotQuery string
	raw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"users":[],"totalUsers":0,"totalPages":0,"currentPage":1}`))
	}))
	defer raw.Close()

	store := emptyStore(t)
	require.NoError(t, store.Set(session.Session{Token: "tok"}))
	client := api.New(raw.URL, store)

	_, err := client.ListUsers(context.Background(), 1, 10, "")
	require.NoError(t, err)
	require.NotContains(t, gotQuery, "search=", "a blank search means unfiltered, not an empty filter")

	_, err = client.ListUsers(context.Background(), 1, 10, "chit")
	require.NoError(t, err)
	require.Contains(t, gotQuery, "search=chit")
}

func TestRejectionBecomesTypedError(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Fail = "Something broke"
	client := api.New(srv.URL(), loggedIn(t, srv))

	_, err := client.ListUsers(context.Background(), 1, 10, "")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Something broke", apiErr.Message)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestMissingTokenFailsFast(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	client := api.New(srv.URL(), emptyStore(t))

	_, err := client.ListUsers(context.Background(), 1, 10, "")
	require.ErrorIs(t, err, session.ErrNoToken)
	require.Zero(t, srv.RequestCount("GET /api/admin/users"), "no request may be sent without a token")
}

func TestMalformedResponseIsTransportError(t *testing.T) {
	raw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway timeout</html>"))
	}))
	defer raw.Close()

	store := emptyStore(t)
	require.NoError(t, store.Set(session.Session{Token: "tok"}))
	client := api.New(raw.URL, store)

	_, err := client.ListGames(context.Background())
	require.Error(t, err)
	var apiErr *api.Error
	require.False(t, strings.Contains(err.Error(), "success"), "raw payload must not leak")
	require.NotErrorAs(t, err, &apiErr, "an unparseable payload is a transport failure, not a rejection")
}

func TestWalletOps(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Users = []api.User{{ID: 7, Name: "Asha", WalletBalance: 100}}
	client := api.New(srv.URL(), loggedIn(t, srv))

	msg, err := client.WalletCredit(context.Background(), 7, 50, "festival bonus")
	require.NoError(t, err)
	require.Equal(t, "Wallet updated successfully", msg)

	_, err = client.WalletDebit(context.Background(), 7, 500, "correction")
	require.Equal(t, "Insufficient wallet balance", api.Message(err, "fallback"))

	_, err = client.WalletCredit(context.Background(), 99, 10, "missing user")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestBlockUnblock(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Users = []api.User{{ID: 1, Name: "Asha"}}
	client := api.New(srv.URL(), loggedIn(t, srv))

	_, err := client.BlockUser(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, srv.Users[0].IsBlocked)

	_, err = client.UnblockUser(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, srv.Users[0].IsBlocked)
}

func TestCommissionLifecycle(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	client := api.New(srv.URL(), loggedIn(t, srv))

	body := api.CommissionUpsert{
		ProviderCode:   "JIO",
		ProviderName:   "Jio Recharge",
		ProviderType:   "recharge",
		CommissionRate: "2.5",
		IsActive:       true,
	}
	msg, err := client.SaveCommission(context.Background(), body, false)
	require.NoError(t, err)
	require.Equal(t, "Commission created successfully", msg)

	// Creating the same code again is a conflict; updating is not.
	_, err = client.SaveCommission(context.Background(), body, false)
	require.Error(t, err)
	body.CommissionRate = "3.0"
	_, err = client.SaveCommission(context.Background(), body, true)
	require.NoError(t, err)

	rules, err := client.ListCommissions(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.Equal(t, "3.0", rules[0].CommissionRate)

	_, err = client.DeleteCommission(context.Background(), "JIO")
	require.NoError(t, err)
	rules, err = client.ListCommissions(context.Background())
	require.NoError(t, err)
	require.Empty(t, rules)
}

func TestDistributePrizesBody(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	client := api.New(srv.URL(), loggedIn(t, srv))

	prizes := []api.PrizeAward{
		{WinnerID: 11, Amount: 500, Pattern: "Full House"},
		{WinnerID: 12, Amount: 250, Pattern: "Top Line"},
	}
	msg, err := client.DistributePrizes(context.Background(), "G-42", prizes)
	require.NoError(t, err)
	require.Equal(t, "Prizes distributed successfully", msg)

	require.Len(t, srv.Distributions, 1)
	require.Equal(t, "G-42", srv.Distributions[0].GameID)
	require.Equal(t, prizes, srv.Distributions[0].Prizes)
}

func TestReportURLIsAbsolute(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	client := api.New(srv.URL(), loggedIn(t, srv))

	fileURL, err := client.ReportURL(context.Background(), "wallet")
	require.NoError(t, err)
	require.Equal(t, srv.URL()+"/reports/wallet.csv", fileURL)
}

func TestMessage(t *testing.T) {
	require.Equal(t, "server said no",
		api.Message(&api.Error{Status: 400, Message: "server said no"}, "fallback"))
	require.Equal(t, "fallback",
		api.Message(context.DeadlineExceeded, "fallback"))
	require.Equal(t, session.ErrNoToken.Error(),
		api.Message(session.ErrNoToken, "fallback"))
	require.Equal(t, "", api.Message(nil, ""))
}

func TestTimeoutSurfacesAsError(t *testing.T) {
	raw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer raw.Close()

	store := emptyStore(t)
	require.NoError(t, store.Set(session.Session{Token: "tok"}))
	client := api.New(raw.URL, store, api.WithTimeout(20*time.Millisecond))

	_, err := client.Dashboard(context.Background())
	require.Error(t, err)
}
