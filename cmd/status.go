// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show discovered vs. journalled script counts per kind",
		RunE: func(cc *cobra.Command, _ []string) error {
			o, cleanup, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()
			st, err := o.Status(cc.Context())
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
