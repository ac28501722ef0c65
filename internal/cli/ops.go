package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func OpsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ops [resource]",
		Short: "List resources, or the operations of one resource",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if len(args) == 0 {
				for _, name := range e.registry.Names() {
					res, _ := e.registry.Resource(name)
					fmt.Fprintf(w, "%s\t%d operations\t%s\n", name, len(res.OperationIDs()), res.Info.Title)
				}
				return nil
			}

			res, ok := e.registry.Resource(args[0])
			if !ok {
				return fmt.Errorf("unknown resource %q (known: %s)", args[0], strings.Join(e.registry.Names(), ", "))
			}
			for _, id := range res.OperationIDs() {
				op, _ := res.Operation(id)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, op.Method, op.Path, op.Summary)
			}
			return nil
		},
	}
}
