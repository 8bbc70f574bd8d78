package cli

import (
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/joseph475/e-commerce/internal/config"
	"github.com/joseph475/e-commerce/internal/domain"
	"github.com/joseph475/e-commerce/internal/repository"
	"github.com/joseph475/e-commerce/internal/usecase"
)

func newHistoryCmd(load func() (config.Config, error)) *cobra.Command {
	var (
		status string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List QR payments, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			repo, err := repository.NewSQLiteRepo(cfg.SQLiteDSN)
			if err != nil {
				return err
			}
			defer repo.Close()

			uc := usecase.NewQRUsecase(repo)
			txs, err := uc.ListHistory(cmd.Context(), usecase.HistoryFilter{
				Status: domain.TxStatus(status),
			}, limit, offset)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Transaction", "Order", "Amount", "Status", "Created", "Expires"})
			for _, t := range txs {
				table.Append([]string{
					t.TransactionID,
					t.OrderID,
					t.Amount.StringFixed(2) + " " + t.Currency,
					string(t.Status),
					t.CreatedAt.Local().Format(time.DateTime),
					t.ExpiresAt.Local().Format(time.DateTime),
				})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, completed, expired, cancelled)")
	cmd.Flags().IntVar(&limit, "limit", usecase.DefaultHistoryLimit, "Maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")

	return cmd
}
