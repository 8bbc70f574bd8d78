package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/joseph475/e-commerce/internal/config"
	"github.com/joseph475/e-commerce/internal/emvqr"
)

func newEncodeCmd(load func() (config.Config, error)) *cobra.Command {
	var (
		txID        string
		amount      string
		currency    string
		merchantID  string
		description string
		pngPath     string
		size        int
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Print a QR Ph payload for a payment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}

			m := merchantFromConfig(cfg)
			if merchantID != "" {
				m.ID = merchantID
			}

			d := emvqr.Descriptor{
				TransactionID: txID,
				Amount:        amt,
				Currency:      currency,
				Merchant:      m,
				Description:   description,
			}
			if err := emvqr.Check(d); err != nil {
				return err
			}

			payload := emvqr.Generate(d)
			fmt.Fprintln(cmd.OutOrStdout(), payload)

			if pngPath != "" {
				if err := emvqr.WritePNG(payload, size, pngPath); err != nil {
					return fmt.Errorf("write png: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&txID, "tx", "", "Transaction id (bill number)")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 150.00")
	cmd.Flags().StringVar(&currency, "currency", "PHP", "Currency code")
	cmd.Flags().StringVar(&merchantID, "merchant-id", "", "Merchant id (defaults to config)")
	cmd.Flags().StringVar(&description, "description", "", "Reference label")
	cmd.Flags().StringVar(&pngPath, "png", "", "Also write the QR image to this file")
	cmd.Flags().IntVar(&size, "size", emvqr.DefaultImageSize, "PNG size in pixels")
	cmd.MarkFlagRequired("tx")
	cmd.MarkFlagRequired("amount")

	return cmd
}
