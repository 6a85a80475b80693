package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flemzord/tgclaw/internal/security"
	"github.com/flemzord/tgclaw/pkg/app"
	tg "github.com/flemzord/tgclaw/pkg/telegram"
)

// clientModules are the modules one-shot API commands need.
var clientModules = []string{"telemetry", "telegram"}

type envelope struct {
	OK         bool `json:"ok"`
	StatusCode int  `json:"status_code"`
	Result     any  `json:"result"`
}

// withClient loads the client modules, runs fn and prints its result. A
// failed call is reported as an error after the envelope is printed.
func withClient(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, c *tg.Client) (*tg.Result, error)) error {
	params := flags.params()
	params.Modules = clientModules
	if params.LogLevel == "" {
		params.LogLevel = "warn"
	}

	rt, err := app.Bootstrap(params)
	if err != nil {
		return err
	}
	defer rt.Close()

	client, err := rt.Client()
	if err != nil {
		return err
	}

	res, err := fn(cmd.Context(), client)
	if err != nil {
		return err
	}
	if err := printResult(cmd.OutOrStdout(), res, rt.Redactor); err != nil {
		return err
	}
	if res.HasError() {
		return fmt.Errorf("telegram call failed (status %d)", res.StatusCode())
	}
	return nil
}

func printResult(w io.Writer, res *tg.Result, redactor *security.Redactor) error {
	body := res.Result()
	if s, ok := body.(string); ok {
		body = redactor.Redact(s)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope{OK: !res.HasError(), StatusCode: res.StatusCode(), Result: body})
}

func getMeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "getme",
		Short: "Check the bot token with getMe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, flags, func(ctx context.Context, c *tg.Client) (*tg.Result, error) {
				return c.GetMe(ctx)
			})
		},
	}
}

func sendCmd(flags *globalFlags) *cobra.Command {
	var (
		parseMode string
		async     bool
		silent    bool
	)
	cmd := &cobra.Command{
		Use:   "send <chat> <text...>",
		Short: "Send a message to a chat alias or chat ID (text \"-\" reads stdin)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			if text == "-" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				text = strings.TrimRight(string(raw), "\n")
			}

			var extra tg.Params
			if silent {
				extra = tg.Params{"disable_notification": true}
			}
			return withClient(cmd, flags, func(ctx context.Context, c *tg.Client) (*tg.Result, error) {
				if async {
					c.SetAsync(true)
				}
				return c.SendMessage(ctx, args[0], text, parseMode, extra)
			})
		},
	}
	cmd.Flags().StringVar(&parseMode, "parse-mode", "", "HTML (default), MarkdownV2 or Markdown")
	cmd.Flags().BoolVar(&async, "async", false, "Fire and forget: do not wait for the response")
	cmd.Flags().BoolVar(&silent, "silent", false, "Deliver without notification sound")
	return cmd
}

func updatesCmd(flags *globalFlags) *cobra.Command {
	var req tg.UpdatesRequest
	cmd := &cobra.Command{
		Use:   "updates",
		Short: "Fetch pending updates with getUpdates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, flags, func(ctx context.Context, c *tg.Client) (*tg.Result, error) {
				return c.GetUpdates(ctx, req)
			})
		},
	}
	cmd.Flags().IntVar(&req.Offset, "offset", 0, "First update ID to return")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "Maximum number of updates (default 100)")
	cmd.Flags().IntVar(&req.Timeout, "timeout", 0, "Long-polling timeout in seconds")
	return cmd
}

func callCmd(flags *globalFlags) *cobra.Command {
	var (
		useGet     bool
		paramsJSON string
	)
	cmd := &cobra.Command{
		Use:   "call <method> [key=value...]",
		Short: "Call any Bot API method",
		Long: "Call any Bot API method by name. Values that parse as JSON (numbers,\n" +
			"booleans, objects, arrays) are sent as such; anything else is a string.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := tg.Params{}
			if paramsJSON != "" {
				var err error
				if params, err = tg.ParseParams([]byte(paramsJSON)); err != nil {
					return fmt.Errorf("--params: %w", err)
				}
			}
			kv, err := parseKeyValues(args[1:])
			if err != nil {
				return err
			}
			for k, v := range kv {
				params[k] = v
			}
			if useGet {
				params["method"] = "GET"
			}

			return withClient(cmd, flags, func(ctx context.Context, c *tg.Client) (*tg.Result, error) {
				return c.Call(ctx, args[0], params)
			})
		},
	}
	cmd.Flags().BoolVar(&useGet, "get", false, "Send the request as GET")
	cmd.Flags().StringVar(&paramsJSON, "params", "", "JSON object of parameters, merged before key=value pairs")
	return cmd
}

// parseKeyValues turns key=value arguments into parameters.
func parseKeyValues(args []string) (tg.Params, error) {
	params := make(tg.Params, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q (expected key=value)", arg)
		}
		params[key] = parseValue(value)
	}
	return params, nil
}

// parseValue decodes s as a JSON literal, falling back to the raw string
// for bare words such as "typing" or "@channel".
func parseValue(s string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	return v
}
