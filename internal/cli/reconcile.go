package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	pgRepo "github.com/yourusername/quiz-reward-api/internal/repository/postgres"
	"github.com/yourusername/quiz-reward-api/internal/service"
	"github.com/yourusername/quiz-reward-api/pkg/razorpay"
)

// NewReconcileCmd показывает зависшие pending платежи и их состояние в шлюзе. Ничего не меняет.
func NewReconcileCmd(configPath *string) *cobra.Command {
	var (
		olderThan time.Duration
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "reconcile-payments",
		Short: "Report stale pending payments together with their gateway status (read-only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*configPath, false)
			if err != nil {
				return err
			}
			defer e.Close()

			rz := e.cfg.Razorpay
			payments := service.NewPaymentService(
				pgRepo.NewPaymentRepo(e.db),
				pgRepo.NewProfileRepo(e.db),
				razorpay.NewClient(rz.BaseURL, rz.KeyID, rz.KeySecret, rz.Timeout),
				nil,
				rz.Currency,
			)
			reports, err := payments.ReconcilePending(cmd.Context(), olderThan, limit)
			if err != nil {
				return err
			}
			return writeReconcileReport(cmd.OutOrStdout(), reports)
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", time.Hour, "only payments pending longer than this")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of payments to check")
	return cmd
}

func writeReconcileReport(out io.Writer, reports []service.ReconcileReport) error {
	if len(reports) == 0 {
		_, err := fmt.Fprintln(out, "no stale pending payments")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tUSER\tAMOUNT\tCREATED\tGATEWAY")
	for _, r := range reports {
		state := r.GatewayState
		if r.Err != nil {
			state = "error: " + r.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			r.Payment.RazorpayOrderID, r.Payment.UserID, r.Payment.Amount,
			r.Payment.CreatedAt.UTC().Format(time.RFC3339), state)
	}
	return w.Flush()
}
