package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tapis-project/tapis-go/result"
	"github.com/tapis-project/tapis-go/tapis"
)

func CallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <resource> <operation> [name=value ...]",
		Short: "Invoke one operation",
		Long: `Invoke one operation. Each name=value argument sets a parameter or body
field; values are parsed as JSON when possible and kept as strings otherwise.`,
		Example: `  tapis call tenants get_tenant tenant_id=dev
  tapis call tenants list_tenants limit=10
  tapis call sk hasRole tenant=dev user=alice roleName=admin`,
		Args: cobra.MinimumNArgs(2),
		RunE: runCall,
	}

	flags := cmd.Flags()
	flags.String("body", "", "File holding a JSON request body (\"-\" for stdin)")
	bindCallFlags(cmd)
	flags.Bool("login", true, "Obtain tokens first when credentials are configured")

	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	resource, operation := args[0], args[1]

	callArgs, err := parseArgs(args[2:])
	if err != nil {
		return err
	}

	if bodyFile, _ := cmd.Flags().GetString("body"); bodyFile != "" {
		body, err := readBody(cmd, bodyFile)
		if err != nil {
			return err
		}
		callArgs[tapis.ArgRequestBody] = body
	}

	if err := applyCallFlags(cmd, callArgs); err != nil {
		return err
	}

	login, _ := cmd.Flags().GetBool("login")
	c, err := e.client(cmd.Context(), login)
	if err != nil {
		return err
	}

	resp, err := c.Invoke(cmd.Context(), resource, operation, callArgs)
	if err != nil {
		return err
	}
	if resp.Debug != nil {
		printDebug(cmd.ErrOrStderr(), resp.Debug)
	}
	return printResponse(cmd.OutOrStdout(), resp)
}

func bindCallFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("header", "H", nil, "Extra request header, name: value")
	cmd.Flags().Bool("debug", false, "Print request and response diagnostics to stderr")
}

// applyCallFlags copies --header and --debug into the reserved arguments.
func applyCallFlags(cmd *cobra.Command, callArgs tapis.Args) error {
	headerFlags, _ := cmd.Flags().GetStringArray("header")
	if len(headerFlags) > 0 {
		headers := make(map[string]string, len(headerFlags))
		for _, h := range headerFlags {
			name, value, ok := strings.Cut(h, ":")
			if !ok {
				return fmt.Errorf("invalid header %q, expected name: value", h)
			}
			headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
		callArgs[tapis.ArgHeaders] = headers
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		callArgs[tapis.ArgDebug] = true
	}
	return nil
}

// parseArgs turns name=value pairs into call arguments.
func parseArgs(pairs []string) (tapis.Args, error) {
	out := make(tapis.Args, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid argument %q, expected name=value", pair)
		}
		out[name] = parseValue(raw)
	}
	return out, nil
}

func parseValue(raw string) any {
	v, err := result.Decode([]byte(raw))
	if err != nil {
		return raw
	}
	return v
}

func readBody(cmd *cobra.Command, path string) (any, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	body, err := result.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parsing body %s: %w", path, err)
	}
	return body, nil
}

func printResponse(w io.Writer, resp *tapis.Response) error {
	v := resp.Value()
	if b, ok := v.AsBytes(); ok {
		_, err := w.Write(b)
		return err
	}
	_, err := fmt.Fprintln(w, v.String())
	return err
}

func printDebug(w io.Writer, d *tapis.Debug) {
	fmt.Fprintf(w, "request %s: %s %s (%s)\n", d.ID, d.Request.Method, d.Request.URL, d.Elapsed)
	for name, values := range d.Request.Header {
		if name == tapis.HeaderToken || name == "Authorization" {
			values = []string{"<redacted>"}
		}
		fmt.Fprintf(w, "> %s: %s\n", name, strings.Join(values, ", "))
	}
	if len(d.RequestBody) > 0 {
		fmt.Fprintf(w, "> %s\n", d.RequestBody)
	}
	fmt.Fprintf(w, "< %s\n", d.Response.Status)
	for name, values := range d.Response.Header {
		fmt.Fprintf(w, "< %s: %s\n", name, strings.Join(values, ", "))
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
