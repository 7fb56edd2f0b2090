// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// scriptCmd implements spec §6's `Script [sub] [args...]`: a small
// read-only dispatch table over the discovered script set (SUPPLEMENTED
// FEATURES #1), never mutating the target.
func scriptCmd() *cobra.Command {
	script := &cobra.Command{
		Use:   "script",
		Short: "Inspect discovered migration scripts",
	}

	script.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every discovered script and its classification",
		RunE: func(cc *cobra.Command, _ []string) error {
			o, cleanup, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()
			refs, err := o.ListScripts()
			if err != nil {
				return err
			}
			for _, ref := range refs {
				fmt.Printf("%-8s %s\n", ref.Kind, ref.Name)
			}
			return nil
		},
	})

	script.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Print a script's resolved SQL without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cc *cobra.Command, args []string) error {
			o, cleanup, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()
			sql, err := o.ShowScript(args[0])
			if err != nil {
				return err
			}
			fmt.Println(sql)
			return nil
		},
	})

	return script
}
