package payment

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestService_CreatePayment(t *testing.T) {
	s := New(newNoopLogger())

	req, err := s.CreatePayment(42)
	require.NoError(t, err)

	_, err = uuid.Parse(req.PaymentID)
	assert.NoError(t, err, "payment id must be a valid uuid")

	assert.True(t, strings.HasPrefix(req.DisplayCode, "00020126580014br.gov.bcb.pix0136"))
	assert.Contains(t, req.DisplayCode, "5802BR")
	assert.Contains(t, req.DisplayCode, "6304")
}

func TestService_CreatePayment_Unique(t *testing.T) {
	s := New(newNoopLogger())

	first, err := s.CreatePayment(42)
	require.NoError(t, err)
	second, err := s.CreatePayment(42)
	require.NoError(t, err)

	assert.NotEqual(t, first.PaymentID, second.PaymentID)
	assert.NotEqual(t, first.DisplayCode, second.DisplayCode)
}

func TestService_CheckStatus_AlwaysSettled(t *testing.T) {
	s := New(newNoopLogger())

	assert.Equal(t, StatusSettled, s.CheckStatus("any-id"))
	assert.Equal(t, StatusSettled, s.CheckStatus(""))
}
