package console

import (
	"fmt"
	"strconv"
	"strings"

	"tambolaadmin/internal/api"
)

// ValidateWalletTxn enforces the client-side preconditions for a wallet
// credit or debit before anything is sent to the platform.
func ValidateWalletTxn(amount float64, description string) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be greater than zero")
	}
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("description must not be empty")
	}
	return nil
}

// ValidateCommission checks a commission form before submission.
func ValidateCommission(c api.CommissionUpsert) error {
	if strings.TrimSpace(c.ProviderCode) == "" {
		return fmt.Errorf("provider code must not be empty")
	}
	if strings.TrimSpace(c.ProviderName) == "" {
		return fmt.Errorf("provider name must not be empty")
	}
	rate, err := strconv.ParseFloat(c.CommissionRate, 64)
	if err != nil {
		return fmt.Errorf("commission rate must be a number")
	}
	if rate < 0 {
		return fmt.Errorf("commission rate must not be negative")
	}
	return nil
}
