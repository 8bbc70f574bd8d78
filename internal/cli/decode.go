package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph475/e-commerce/internal/emvqr"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <payload>",
		Short: "Verify a QR payload and print its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := emvqr.Decode(args[0])
			if err != nil {
				return err
			}
			printFields(cmd.OutOrStdout(), fields, 0)
			return nil
		},
	}
}

func printFields(w io.Writer, fields []emvqr.Field, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, f := range fields {
		if f.Sub != nil {
			fmt.Fprintf(w, "%s%s\n", indent, f.Tag)
			printFields(w, f.Sub, depth+1)
			continue
		}
		fmt.Fprintf(w, "%s%s %q\n", indent, f.Tag, f.Value)
	}
}
