package models

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentStatus(t *testing.T) {
	status, err := ParsePaymentStatus("success")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusCompleted, status)

	status, err = ParsePaymentStatus("pending")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPending, status)

	_, err = ParsePaymentStatus("refunded")
	assert.Error(t, err)
}

func TestPaymentStatusScan(t *testing.T) {
	var status PaymentStatus
	require.NoError(t, status.Scan([]byte("success")))
	assert.Equal(t, PaymentStatusCompleted, status)

	assert.Error(t, status.Scan(nil))
	assert.Error(t, status.Scan(42))
}

func TestCanTransitionTo(t *testing.T) {
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusCompleted))
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusFailed))
	assert.False(t, PaymentStatusPending.CanTransitionTo(PaymentStatusPending))

	for _, terminal := range []PaymentStatus{PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled} {
		assert.True(t, terminal.IsTerminal())
		assert.False(t, terminal.CanTransitionTo(PaymentStatusPending))
		assert.False(t, terminal.CanTransitionTo(PaymentStatusCompleted))
		assert.False(t, terminal.CanTransitionTo(PaymentStatusFailed))
	}
}

func TestPaymentModeValid(t *testing.T) {
	assert.True(t, PaymentModeUPI.Valid())
	assert.True(t, PaymentMode("net_banking").Valid())
	assert.False(t, PaymentMode("bitcoin").Valid())
}

func TestListOptsNormalize(t *testing.T) {
	opts := ListOpts{Page: 0, Limit: 1000, Search: "  asha "}
	opts.Normalize()

	assert.Equal(t, 1, opts.Page)
	assert.Equal(t, 100, opts.Limit)
	assert.Equal(t, "asha", opts.Search)
	assert.Equal(t, 0, opts.Offset())

	opts = ListOpts{Page: 3}
	opts.Normalize()
	assert.Equal(t, 10, opts.Limit)
	assert.Equal(t, 20, opts.Offset())
}

func TestErrorHelpersFollowCause(t *testing.T) {
	err := errors.Wrap(&NotFoundError{Resource: "payment", ID: "p-1"}, "lookup")
	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))

	assert.True(t, IsGateway(&GatewayError{Op: "create order", Err: errors.New("timeout")}))
	assert.True(t, IsInvalidTransition(&InvalidTransitionError{From: PaymentStatusFailed, To: PaymentStatusCompleted}))
}

func TestDecimalAmount(t *testing.T) {
	opts := CreatePaymentOpts{Amount: "1500.505"}
	assert.Equal(t, "1500.51", opts.DecimalAmount().StringFixed(2))

	opts = CreatePaymentOpts{Amount: "0.1"}
	assert.True(t, decimal.RequireFromString("0.10").Equal(opts.DecimalAmount()))
	opts = CreatePaymentOpts{Amount: "123456789012.29"}
	assert.Equal(t, "123456789012.29", opts.DecimalAmount().StringFixed(2))

	opts = CreatePaymentOpts{Amount: ""}
	assert.True(t, opts.DecimalAmount().IsZero())
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(150050), MinorUnits(decimal.RequireFromString("1500.50")))
	assert.Equal(t, int64(1), MinorUnits(decimal.RequireFromString("0.005")))
	assert.Equal(t, int64(10), MinorUnits(decimal.RequireFromString("0.1")))
}
