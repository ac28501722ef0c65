package cli

import (
	"github.com/spf13/cobra"

	"github.com/tapis-project/tapis-go/internal/config"
)

// Version is set at build time.
var Version = "dev"

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tapis",
		Short:         "Call Tapis v3 services from their OpenAPI specifications",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	config.BindFlags(root)
	root.AddCommand(
		OpsCommand(),
		CallCommand(),
		TokensCommand(),
		UploadCommand(),
		GenerateCommand(),
	)

	return root
}
