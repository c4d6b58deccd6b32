package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	pgRepo "github.com/yourusername/quiz-reward-api/internal/repository/postgres"
	"github.com/yourusername/quiz-reward-api/internal/service"
)

// NewGrantAdminCmd добавляет пользователя в admin_users
func NewGrantAdminCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "grant-admin <user-id>",
		Short: "Grant admin panel access to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("user id must be a UUID: %w", err)
			}

			e, err := openEnv(*configPath, false)
			if err != nil {
				return err
			}
			defer e.Close()

			admins := service.NewAdminService(pgRepo.NewAdminRepo(e.db), pgRepo.NewAttemptRepo(e.db), e.cfg.Razorpay.Currency)
			if err := admins.Grant(cmd.Context(), userID.String()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s is now an admin\n", userID)
			return nil
		},
	}
}
