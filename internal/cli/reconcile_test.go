package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/internal/service"
)

func TestWriteReconcileReport(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	reports := []service.ReconcileReport{
		{Payment: entity.Payment{RazorpayOrderID: "order_1", UserID: "u1", Amount: 50000, CreatedAt: created}, GatewayState: "paid"},
		{Payment: entity.Payment{RazorpayOrderID: "order_2", UserID: "u2", Amount: 100, CreatedAt: created}, Err: errors.New("timeout")},
	}

	var buf bytes.Buffer
	require.NoError(t, writeReconcileReport(&buf, reports))

	out := buf.String()
	assert.Contains(t, out, "ORDER")
	assert.Contains(t, out, "order_1")
	assert.Contains(t, out, "paid")
	assert.Contains(t, out, "error: timeout")
	assert.Contains(t, out, "2026-01-02T03:04:05Z")
}

func TestWriteReconcileReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReconcileReport(&buf, nil))
	assert.Equal(t, "no stale pending payments\n", buf.String())
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"migrate", "grant-admin", "seed", "reconcile-payments"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}
