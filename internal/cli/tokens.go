package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tapis-project/tapis-go/tapis"
)

type tokenView struct {
	JWT       string     `json:"jwt"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	ExpiresIn string     `json:"expires_in,omitempty"`
}

func TokensCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Obtain an access/refresh token pair and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			c, err := e.client(cmd.Context(), false)
			if err != nil {
				return err
			}

			refresh, _ := cmd.Flags().GetBool("refresh")
			if refresh {
				err = c.RefreshTokens(cmd.Context())
			} else {
				err = c.GetTokens(cmd.Context())
			}
			if err != nil {
				return err
			}

			out := map[string]*tokenView{
				"access_token":  viewToken(c.AccessToken()),
				"refresh_token": viewToken(c.RefreshToken()),
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().Bool("refresh", false, "Exchange the configured refresh token instead of logging in")
	return cmd
}

func viewToken(t *tapis.Token) *tokenView {
	if t == nil {
		return nil
	}
	v := &tokenView{JWT: t.JWT}
	if t.HasExpiry() {
		at := t.ExpiresAt
		v.ExpiresAt = &at
		v.ExpiresIn = t.ExpiresIn().Truncate(time.Second).String()
	}
	return v
}

func UploadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file> <system-id> <dest-path>",
		Short: "Upload a local file to a Tapis system",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			c, err := e.client(cmd.Context(), true)
			if err != nil {
				return err
			}
			callArgs := tapis.Args{}
			if err := applyCallFlags(cmd, callArgs); err != nil {
				return err
			}
			resp, err := c.Upload(cmd.Context(), args[0], args[1], args[2], callArgs)
			if err != nil {
				return fmt.Errorf("uploading %s: %w", args[0], err)
			}
			if resp.Debug != nil {
				printDebug(cmd.ErrOrStderr(), resp.Debug)
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
	bindCallFlags(cmd)
	return cmd
}
