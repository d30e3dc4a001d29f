// Package apitest runs an in-memory stand-in for the Tambola platform API.
// It speaks the same routes and envelope as the real service so client and
// controller tests exercise the full HTTP path instead of stubbed transports.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"tambolaadmin/internal/api"
)

// Distribution records one prize batch as the server received it.
type Distribution struct {
	GameID string
	Prizes []api.PrizeAward
}

// Server is a fake platform backed by in-memory fixtures. All fields behind
// the mutex may be inspected or replaced between requests.
type Server struct {
	mu sync.Mutex

	Users       []api.User
	Orders      []api.Order
	Commissions []api.Commission
	Games       []api.Game
	Winners     map[string][]api.Winner
	Analytics   []api.ProviderAnalytics
	Summary     api.DashboardSummary

	// Token is the only bearer token the server accepts.
	Token string
	// Email and Password gate the login route.
	Email    string
	Password string

	// Fail, when non-empty, makes every subsequent request come back as a
	// success=false rejection with this message.
	Fail string

	// Requests counts handled requests per "METHOD path" route pattern.
	Requests map[string]int
	// Distributions holds every prize batch received, oldest first.
	Distributions []Distribution

	httpSrv *httptest.Server
}

// NewServer starts a fake platform with a default admin login and no data.
// Callers must Close it.
func NewServer() *Server {
	s := &Server{
		Token:    "test-token",
		Email:    "admin@example.com",
		Password: "secret",
		Winners:  map[string][]api.Winner{},
		Requests: map[string]int{},
	}

	r := chi.NewRouter()
	r.Use(s.count)
	r.Post("/api/admin/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/api/admin/users", s.handleUsers)
		r.Put("/api/admin/users/{id}/block", s.handleBlock(true))
		r.Put("/api/admin/users/{id}/unblock", s.handleBlock(false))
		r.Get("/api/admin/orders", s.handleOrders)
		r.Get("/api/admin/dashboard", s.handleDashboard)
		r.Get("/api/admin/report", s.handleReport)
		r.Get("/api/commissions", s.handleCommissions)
		r.Post("/api/commissions", s.handleSaveCommission(false))
		r.Put("/api/commissions", s.handleSaveCommission(true))
		r.Delete("/api/commissions/{code}", s.handleDeleteCommission)
		r.Post("/api/wallet/{id}/credit", s.handleWallet(1))
		r.Post("/api/wallet/{id}/debit", s.handleWallet(-1))
		r.Get("/api/game/games", s.handleGames)
		r.Get("/api/game/winners/{gameID}", s.handleWinners)
		r.Post("/api/game/winners/{gameID}/distribute", s.handleDistribute)
		r.Get("/api/analytics/providers", s.handleAnalytics)
	})

	s.httpSrv = httptest.NewServer(r)
	return s
}

// URL is the server's base URL.
func (s *Server) URL() string { return s.httpSrv.URL }

// Close shuts the server down.
func (s *Server) Close() { s.httpSrv.Close() }

// RequestCount returns how many requests hit the given "METHOD path" route.
func (s *Server) RequestCount(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Requests[route]
}

// count tallies requests by route pattern after routing resolves.
func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		s.mu.Lock()
		s.Requests[r.Method+" "+route]++
		s.mu.Unlock()
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		want := "Bearer " + s.Token
		s.mu.Unlock()
		if r.Header.Get("Authorization") != want {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"success": false, "message": "Invalid or expired token",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// failing reports and serves the forced-failure response when one is set.
func (s *Server) failing(w http.ResponseWriter) bool {
	s.mu.Lock()
	msg := s.Fail
	s.mu.Unlock()
	if msg == "" {
		return false
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": msg})
	return true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid request"})
		return
	}
	s.mu.Lock()
	ok := creds.Email == s.Email && creds.Password == s.Password
	token := s.Token
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Login successful",
		"token":    token,
		"username": "Admin",
		"email":    creds.Email,
	})
}

// page slices a fixture list the way the real service paginates.
func page[T any](items []T, pageNum, limit int) ([]T, int) {
	totalPages := (len(items) + limit - 1) / limit
	start := (pageNum - 1) * limit
	if start >= len(items) {
		return []T{}, totalPages
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], totalPages
}

func intParam(r *http.Request, name string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil && v > 0 {
		return v
	}
	return def
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	pageNum := intParam(r, "page", 1)
	limit := intParam(r, "limit", 10)
	search := strings.ToLower(r.URL.Query().Get("search"))

	s.mu.Lock()
	matched := make([]api.User, 0, len(s.Users))
	for _, u := range s.Users {
		if search == "" ||
			strings.Contains(strings.ToLower(u.Name), search) ||
			strings.Contains(strings.ToLower(u.Email), search) ||
			strings.Contains(u.Phone, search) {
			matched = append(matched, u)
		}
	}
	s.mu.Unlock()

	items, totalPages := page(matched, pageNum, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"users":       items,
		"totalUsers":  len(matched),
		"totalPages":  totalPages,
		"currentPage": pageNum,
	})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	pageNum := intParam(r, "page", 1)
	limit := intParam(r, "limit", 10)
	search := strings.ToLower(r.URL.Query().Get("search"))

	s.mu.Lock()
	matched := make([]api.Order, 0, len(s.Orders))
	for _, o := range s.Orders {
		if search == "" ||
			strings.Contains(o.Number, search) ||
			strings.Contains(strings.ToLower(o.User.Name), search) {
			matched = append(matched, o)
		}
	}
	s.mu.Unlock()

	items, totalPages := page(matched, pageNum, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"orders":      items,
		"total":       len(matched),
		"totalPages":  totalPages,
		"currentPage": pageNum,
	})
}

func (s *Server) handleBlock(block bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.failing(w) {
			return
		}
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.Users {
			if s.Users[i].ID == id {
				s.Users[i].IsBlocked = block
				msg := "User unblocked successfully"
				if block {
					msg = "User blocked successfully"
				}
				writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "User not found"})
	}
}

func (s *Server) handleWallet(sign float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.failing(w) {
			return
		}
		var body struct {
			Amount      float64 `json:"amount"`
			Description string  `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Amount <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid amount"})
			return
		}
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.Users {
			if s.Users[i].ID == id {
				if sign < 0 && s.Users[i].WalletBalance < body.Amount {
					writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Insufficient wallet balance"})
					return
				}
				s.Users[i].WalletBalance += sign * body.Amount
				writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Wallet updated successfully"})
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "User not found"})
	}
}

func (s *Server) handleCommissions(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	s.mu.Lock()
	commissions := append([]api.Commission(nil), s.Commissions...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "commissions": commissions})
}

func (s *Server) handleSaveCommission(update bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.failing(w) {
			return
		}
		var body api.CommissionUpsert
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProviderCode == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid commission"})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.Commissions {
			if s.Commissions[i].ProviderCode == body.ProviderCode {
				if !update {
					writeJSON(w, http.StatusConflict, map[string]any{"success": false, "message": "Commission already exists"})
					return
				}
				s.Commissions[i].ProviderName = body.ProviderName
				s.Commissions[i].ProviderType = body.ProviderType
				s.Commissions[i].CommissionRate = body.CommissionRate
				s.Commissions[i].IsActive = body.IsActive
				writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Commission updated successfully"})
				return
			}
		}
		if update {
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Commission not found"})
			return
		}
		s.Commissions = append(s.Commissions, api.Commission{
			ID:             int64(len(s.Commissions) + 1),
			ProviderCode:   body.ProviderCode,
			ProviderName:   body.ProviderName,
			ProviderType:   body.ProviderType,
			CommissionRate: body.CommissionRate,
			IsActive:       body.IsActive,
		})
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Commission created successfully"})
	}
}

func (s *Server) handleDeleteCommission(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	code := chi.URLParam(r, "code")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Commissions {
		if s.Commissions[i].ProviderCode == code {
			s.Commissions = append(s.Commissions[:i], s.Commissions[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Commission deleted successfully"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Commission not found"})
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	s.mu.Lock()
	games := append([]api.Game(nil), s.Games...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": games})
}

func (s *Server) handleWinners(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	gameID := chi.URLParam(r, "gameID")
	s.mu.Lock()
	winners := append([]api.Winner(nil), s.Winners[gameID]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "winners": winners})
}

func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	var body struct {
		Prizes []api.PrizeAward `json:"prizes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Prizes) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "No prizes to distribute"})
		return
	}
	gameID := chi.URLParam(r, "gameID")
	s.mu.Lock()
	s.Distributions = append(s.Distributions, Distribution{GameID: gameID, Prizes: body.Prizes})
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Prizes distributed successfully"})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	code := r.URL.Query().Get("providerCode")
	s.mu.Lock()
	matched := make([]api.ProviderAnalytics, 0, len(s.Analytics))
	for _, a := range s.Analytics {
		if code == "" || a.ProviderCode == code {
			matched = append(matched, a)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "analytics": matched})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	s.mu.Lock()
	summary := s.Summary
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": summary})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.failing(w) {
		return
	}
	reportType := r.URL.Query().Get("type")
	if reportType == "" {
		reportType = "orders"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"fileUrl": "/reports/" + reportType + ".csv",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
