// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

func executeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "execute <sql>...",
		Short: "Run one or more raw SQL statements against the target database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cc *cobra.Command, args []string) error {
			o, cleanup, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()
			return o.ExecuteSQL(cc.Context(), args...)
		},
	}
}
