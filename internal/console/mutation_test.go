package console

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tambolaadmin/internal/api"
	"tambolaadmin/internal/notify"
)

type countingRefresher struct {
	n atomic.Int32
}

func (r *countingRefresher) Refresh() { r.n.Add(1) }

func TestSubmitValidationFailureStaysLocal(t *testing.T) {
	notifier := notify.New(time.Minute)
	owner := &countingRefresher{}
	m := NewMutator(notifier, owner)

	var calls atomic.Int32
	ok, err := m.Submit(context.Background(), Op{
		Name:     "wallet_credit",
		Validate: func() error { return ValidateWalletTxn(-5, "refund") },
		Do: func(ctx context.Context) (string, error) {
			calls.Add(1)
			return "", nil
		},
	})

	require.False(t, ok)
	require.Error(t, err)
	require.Zero(t, calls.Load(), "a validation failure must not reach the network")
	require.Zero(t, owner.n.Load())

	cur := notifier.Current()
	require.True(t, cur.Visible)
	require.Equal(t, notify.Error, cur.Severity)
	require.Equal(t, "amount must be greater than zero", cur.Message)
}

func TestSubmitSuccess(t *testing.T) {
	notifier := notify.New(time.Minute)
	owner := &countingRefresher{}
	m := NewMutator(notifier, owner)

	ok, err := m.Submit(context.Background(), Op{
		Name: "commission_save",
		Do: func(ctx context.Context) (string, error) {
			return "Commission updated successfully", nil
		},
		Success: "fallback success",
	})

	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, int32(1), owner.n.Load(), "success must refresh the owning list")

	cur := notifier.Current()
	require.Equal(t, notify.Success, cur.Severity)
	require.Equal(t, "Commission updated successfully", cur.Message, "server message wins over the static fallback")
	require.False(t, m.InFlight())
}

func TestSubmitSuccessFallbackMessages(t *testing.T) {
	notifier := notify.New(time.Minute)
	m := NewMutator(notifier, nil)

	ok, err := m.Submit(context.Background(), Op{
		Do:      func(ctx context.Context) (string, error) { return "", nil },
		Success: "Wallet updated",
	})
	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, "Wallet updated", notifier.Current().Message)

	ok, err = m.Submit(context.Background(), Op{
		Do: func(ctx context.Context) (string, error) { return "", nil },
	})
	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, "Saved successfully", notifier.Current().Message)
}

func TestSubmitFailureKeepsFormOpen(t *testing.T) {
	notifier := notify.New(time.Minute)
	owner := &countingRefresher{}
	m := NewMutator(notifier, owner)

	ok, err := m.Submit(context.Background(), Op{
		Name:    "user_block",
		Do:      func(ctx context.Context) (string, error) { return "", errors.New("connection refused") },
		Failure: "Error updating user",
	})

	require.False(t, ok, "the form must stay open so the operator can retry")
	require.Error(t, err)
	require.Zero(t, owner.n.Load(), "a failed mutation must not refresh the list")
	require.Equal(t, "Error updating user", notifier.Current().Message)
	require.Equal(t, notify.Error, notifier.Current().Severity)
}

func TestSubmitFailurePrefersServerMessage(t *testing.T) {
	notifier := notify.New(time.Minute)
	m := NewMutator(notifier, nil)

	_, err := m.Submit(context.Background(), Op{
		Do: func(ctx context.Context) (string, error) {
			return "", &api.Error{Status: 400, Message: "Insufficient wallet balance"}
		},
		Failure: "Error updating wallet",
	})

	require.Error(t, err)
	require.Equal(t, "Insufficient wallet balance", notifier.Current().Message)
}

func TestSubmitRejectsConcurrent(t *testing.T) {
	notifier := notify.New(time.Minute)
	m := NewMutator(notifier, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Submit(context.Background(), Op{
			Do: func(ctx context.Context) (string, error) {
				close(started)
				<-release
				return "", nil
			},
		})
	}()

	<-started
	require.True(t, m.InFlight())

	_, err := m.Submit(context.Background(), Op{
		Do: func(ctx context.Context) (string, error) { return "", nil },
	})
	require.ErrorIs(t, err, ErrInFlight)

	close(release)
	<-done
	require.False(t, m.InFlight())
}

func TestValidateWalletTxn(t *testing.T) {
	tests := []struct {
		name        string
		amount      float64
		description string
		wantErr     bool
	}{
		{"valid", 100, "festival bonus", false},
		{"zero amount", 0, "x", true},
		{"negative amount", -5, "x", true},
		{"blank description", 10, "   ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWalletTxn(tt.amount, tt.description)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateCommission(t *testing.T) {
	valid := api.CommissionUpsert{
		ProviderCode:   "JIO",
		ProviderName:   "Jio Recharge",
		ProviderType:   "recharge",
		CommissionRate: "2.5",
		IsActive:       true,
	}

	tests := []struct {
		name    string
		mutate  func(*api.CommissionUpsert)
		wantErr bool
	}{
		{"valid", func(c *api.CommissionUpsert) {}, false},
		{"zero rate is allowed", func(c *api.CommissionUpsert) { c.CommissionRate = "0" }, false},
		{"empty code", func(c *api.CommissionUpsert) { c.ProviderCode = "" }, true},
		{"empty name", func(c *api.CommissionUpsert) { c.ProviderName = " " }, true},
		{"non-numeric rate", func(c *api.CommissionUpsert) { c.CommissionRate = "two" }, true},
		{"negative rate", func(c *api.CommissionUpsert) { c.CommissionRate = "-1" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := ValidateCommission(c)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
