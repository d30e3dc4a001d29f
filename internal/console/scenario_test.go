package console_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tambolaadmin/internal/api"
	"tambolaadmin/internal/apitest"
	"tambolaadmin/internal/console"
	"tambolaadmin/internal/session"
)

// TestUsersListEndToEnd drives a users query through the HTTP client against
// the fake platform, the way the bot's /users command does.
func TestUsersListEndToEnd(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.Users = []api.User{
		{ID: 1, Name: "Asha", Email: "asha@example.com"},
		{ID: 2, Name: "Bala", Email: "bala@example.com"},
		{ID: 3, Name: "Chitra", Email: "chitra@example.com"},
	}

	store, err := session.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Set(session.Session{Token: srv.Token}))

	client := api.New(srv.URL(), store)
	users := console.NewQuery(func(ctx context.Context, p console.Params) (console.Page[api.User], error) {
		res, err := client.ListUsers(ctx, p.Page, p.Limit, p.Search)
		if err != nil {
			return console.Page[api.User]{}, err
		}
		return console.Page[api.User]{Items: res.Users, Total: res.TotalUsers, TotalPages: res.TotalPages}, nil
	}, console.WithLimit(10))

	users.Refresh()
	st := console.Await(users, 5*time.Second)

	require.Equal(t, console.StatusSuccess, st.Status)
	require.Len(t, st.Items, 3)
	require.Equal(t, 3, st.Total)
	require.Equal(t, 1, st.TotalPages)
	require.Empty(t, st.ErrorMessage)

	// The store is cleared mid-session; the very next trigger fails fast
	// without reaching the server.
	require.NoError(t, store.Clear())
	before := srv.RequestCount("GET /api/admin/users")

	require.Error(t, users.Reload(context.Background()))
	st = users.State()
	require.Equal(t, console.StatusError, st.Status)
	require.Len(t, st.Items, 3, "items stay stale-but-valid")
	require.Equal(t, before, srv.RequestCount("GET /api/admin/users"))
}
