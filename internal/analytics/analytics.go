// Package analytics turns raw report rows into the aggregate figures shown on
// the analytics and dashboard screens.
package analytics

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"tambolaadmin/internal/api"
)

// Summary condenses one provider's monthly report.
type Summary struct {
	Orders             int
	Amount             float64
	Commission         float64
	PlatformCommission float64
	// Daily means over the days that had activity.
	MeanDailyOrders int
	MeanDailyAmount float64
	// BestDay is the date with the highest order amount, "" when the month
	// had no activity.
	BestDay       string
	BestDayAmount float64
}

// Summarize aggregates a provider's daily stats. The provider-level totals
// are recomputed from the daily rows rather than trusted from the header, so
// a report whose header disagrees with its own rows still renders
// consistently.
func Summarize(p api.ProviderAnalytics) Summary {
	s := Summary{Orders: p.TotalOrders}
	if len(p.DailyStats) == 0 {
		return s
	}

	amounts := make([]float64, len(p.DailyStats))
	commissions := make([]float64, len(p.DailyStats))
	platform := make([]float64, len(p.DailyStats))
	orders := make([]float64, len(p.DailyStats))
	for i, d := range p.DailyStats {
		amounts[i] = d.TotalAmount
		commissions[i] = d.TotalCommission
		platform[i] = d.TotalPlatformCommission
		orders[i] = float64(d.TotalOrders)
		if d.TotalAmount > s.BestDayAmount {
			s.BestDay = d.Date
			s.BestDayAmount = d.TotalAmount
		}
	}

	s.Amount = floats.Sum(amounts)
	s.Commission = floats.Sum(commissions)
	s.PlatformCommission = floats.Sum(platform)
	s.Orders = int(floats.Sum(orders))
	s.MeanDailyOrders = int(stat.Mean(orders, nil) + 0.5)
	s.MeanDailyAmount = stat.Mean(amounts, nil)
	return s
}

// Slice is one wedge of a breakdown: an absolute value and its share of the
// whole in [0, 1].
type Slice struct {
	Name  string
	Value float64
	Share float64
}

// CommissionSplit breaks a provider's commission into the platform's cut and
// the remainder.
func CommissionSplit(s Summary) []Slice {
	provider := s.Commission - s.PlatformCommission
	if provider < 0 {
		provider = 0
	}
	return shares([]Slice{
		{Name: "Provider", Value: provider},
		{Name: "Platform", Value: s.PlatformCommission},
	})
}

// PaymentMethodSplit counts orders per payment type. Slices come out sorted
// by value descending, then name, so rendering is deterministic.
func PaymentMethodSplit(orders []api.Order) []Slice {
	counts := make(map[string]float64)
	for _, o := range orders {
		name := o.PaymentType
		if name == "" {
			name = "unknown"
		}
		counts[name]++
	}
	slices := make([]Slice, 0, len(counts))
	for name, n := range counts {
		slices = append(slices, Slice{Name: name, Value: n})
	}
	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Value != slices[j].Value {
			return slices[i].Value > slices[j].Value
		}
		return slices[i].Name < slices[j].Name
	})
	return shares(slices)
}

// WalletActivitySplit breaks wallet transactions into credits and debits.
func WalletActivitySplit(d api.DashboardSummary) []Slice {
	return shares([]Slice{
		{Name: "Credits", Value: float64(d.WalletCredits)},
		{Name: "Debits", Value: float64(d.WalletDebits)},
	})
}

// shares fills in each slice's share of the total. All shares stay zero when
// the total is zero.
func shares(slices []Slice) []Slice {
	var total float64
	for _, s := range slices {
		total += s.Value
	}
	if total == 0 {
		return slices
	}
	for i := range slices {
		slices[i].Share = slices[i].Value / total
	}
	return slices
}
