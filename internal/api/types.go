package api

import "time"

// User is one row of the admin users screen.
type User struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone"`
	WalletBalance float64 `json:"walletBalance"`
	IsBlocked     bool    `json:"isBlocked"`
}

// OrderUser is the user summary embedded in an order row.
type OrderUser struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Order is one row of the orders screen.
type Order struct {
	ID          int64     `json:"id"`
	User        OrderUser `json:"User"`
	Number      string    `json:"number"`
	ServiceType string    `json:"service_type"`
	Operator    string    `json:"opId"`
	Type        string    `json:"type"`
	TotalAmount float64   `json:"totalAmount"`
	Status      string    `json:"status"`
	PaymentType string    `json:"paymentType"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Commission is a provider commission rule. The platform serves the rate as a
// string.
type Commission struct {
	ID             int64     `json:"id"`
	ProviderCode   string    `json:"providerCode"`
	ProviderName   string    `json:"providerName"`
	ProviderType   string    `json:"providerType"`
	CommissionRate string    `json:"commissionRate"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

// CommissionUpsert is the request body for creating or updating a commission.
type CommissionUpsert struct {
	ProviderCode   string `json:"providerCode"`
	ProviderName   string `json:"providerName"`
	ProviderType   string `json:"providerType"`
	CommissionRate string `json:"commissionRate"`
	IsActive       bool   `json:"isActive"`
}

// Game identifies one Tambola game.
type Game struct {
	GameID   string `json:"game_id"`
	GameName string `json:"game_name"`
}

// Winner is one winning ticket of a game.
type Winner struct {
	ID                  int64    `json:"id"`
	TicketID            string   `json:"ticket_id"`
	Patterns            []string `json:"patterns"`
	WinningTicketNumber int      `json:"winning_ticket_number"`
	PlayerName          string   `json:"player_name"`
}

// PrizeAward is one prize assignment inside a distribution batch.
type PrizeAward struct {
	WinnerID int64  `json:"winnerId"`
	Amount   int64  `json:"amount"`
	Pattern  string `json:"pattern"`
}

// DailyStat is one day of provider activity. Commission fields arrive as
// quoted decimals and are parsed at the boundary.
type DailyStat struct {
	Date                    string  `json:"date"`
	TotalOrders             int     `json:"totalOrders"`
	TotalAmount             float64 `json:"totalAmount"`
	TotalCommission         float64 `json:"totalCommission,string"`
	TotalPlatformCommission float64 `json:"totalPlatformCommission,string"`
}

// ProviderAnalytics is one provider's monthly report.
type ProviderAnalytics struct {
	ProviderCode            string      `json:"providerCode"`
	TotalOrders             int         `json:"totalOrders"`
	TotalAmount             float64     `json:"totalAmount"`
	TotalCommission         float64     `json:"totalCommission,string"`
	TotalPlatformCommission float64     `json:"totalPlatformCommission,string"`
	DailyStats              []DailyStat `json:"dailyStats"`
}

// DashboardSummary is the platform-wide totals shown on the dashboard screen.
type DashboardSummary struct {
	TotalUsers              int     `json:"totalUsers"`
	NewUsersThisMonth       int     `json:"newUsersThisMonth"`
	TotalOrders             int     `json:"totalOrders"`
	OrdersThisMonth         int     `json:"ordersThisMonth"`
	TotalRevenue            float64 `json:"totalRevenue"`
	RevenueThisMonth        float64 `json:"revenueThisMonth"`
	TotalWalletTransactions int     `json:"totalWalletTransactions"`
	WalletCredits           int     `json:"walletCredits"`
	WalletDebits            int     `json:"walletDebits"`
	TotalUpiPayments        int     `json:"totalUpiPayments"`
}

// LoginResult is the successful login payload.
type LoginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Message  string `json:"message"`
}

// UserPage is one server page of users.
type UserPage struct {
	Users       []User `json:"users"`
	TotalUsers  int    `json:"totalUsers"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
}

// OrderPage is one server page of orders.
type OrderPage struct {
	Orders      []Order `json:"orders"`
	Total       int     `json:"total"`
	TotalPages  int     `json:"totalPages"`
	CurrentPage int     `json:"currentPage"`
}
