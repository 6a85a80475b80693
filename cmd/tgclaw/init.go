package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgclaw/internal/config"
)

const tokenEnvVar = "TELEGRAM_BOT_TOKEN"

var tokenFormat = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// initAnswers collects what the wizard asks.
type initAnswers struct {
	TokenFromEnv bool
	Token        string
	BotUsername  string
	DefaultChat  string
	Gateway      bool
	GatewayBind  string
	Telemetry    bool
}

func initCmd() *cobra.Command {
	var (
		output string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" {
				output = config.DefaultPath()
			}
			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", output)
			}

			answers := initAnswers{GatewayBind: "127.0.0.1:8080"}
			if err := initForm(&answers).Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return errors.New("init aborted")
				}
				return err
			}

			data, err := renderConfig(answers)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o700); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\n", output)
			if answers.TokenFromEnv {
				fmt.Fprintf(out, "Export %s before running tgclaw.\n", tokenEnvVar)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Where to write the file (default: user config dir)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func initForm(a *initAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Read the bot token from $%s?", tokenEnvVar)).
				Description("Otherwise the token is written to the file.").
				Value(&a.TokenFromEnv),
			huh.NewInput().
				Title("Bot token").
				Description("From @BotFather, <bot_id>:<secret>. Leave empty when using the environment.").
				EchoMode(huh.EchoModePassword).
				Value(&a.Token).
				Validate(func(s string) error {
					if a.TokenFromEnv {
						return nil
					}
					return validateToken(s)
				}),
			huh.NewInput().
				Title("Bot username (optional)").
				Value(&a.BotUsername),
			huh.NewInput().
				Title("Default chat (optional)").
				Description("Numeric chat ID or @channel, saved as the alias \"default\".").
				Value(&a.DefaultChat),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable the HTTP relay gateway?").
				Value(&a.Gateway),
			huh.NewInput().
				Title("Gateway listen address").
				Value(&a.GatewayBind),
			huh.NewConfirm().
				Title("Enable Prometheus metrics?").
				Value(&a.Telemetry),
		),
	)
}

func validateToken(s string) error {
	if !tokenFormat.MatchString(strings.TrimSpace(s)) {
		return errors.New("expected <bot_id>:<secret>")
	}
	return nil
}

type initFile struct {
	Version string      `yaml:"version"`
	Modules initModules `yaml:"modules"`
}

type initModules struct {
	Telegram  initTelegram   `yaml:"telegram"`
	Gateway   *initGateway   `yaml:"gateway.http,omitempty"`
	Telemetry *initTelemetry `yaml:"telemetry,omitempty"`
}

type initTelegram struct {
	Token         string         `yaml:"token"`
	BotUsername   string         `yaml:"bot_username,omitempty"`
	Chats         map[string]any `yaml:"chats,omitempty"`
	VerifyOnStart bool           `yaml:"verify_on_start"`
}

type initGateway struct {
	Bind string `yaml:"bind"`
	Auth struct {
		BearerToken string `yaml:"bearer_token"`
	} `yaml:"auth"`
	RateLimit int `yaml:"rate_limit"`
}

type initTelemetry struct {
	ServiceName string `yaml:"service_name"`
}

// renderConfig turns wizard answers into a config file.
func renderConfig(a initAnswers) ([]byte, error) {
	file := initFile{
		Version: "1",
		Modules: initModules{
			Telegram: initTelegram{
				Token:         strings.TrimSpace(a.Token),
				BotUsername:   strings.TrimPrefix(strings.TrimSpace(a.BotUsername), "@"),
				VerifyOnStart: true,
			},
		},
	}
	if a.TokenFromEnv {
		file.Modules.Telegram.Token = "${" + tokenEnvVar + "}"
	}
	if chat := strings.TrimSpace(a.DefaultChat); chat != "" {
		file.Modules.Telegram.Chats = map[string]any{"default": chatValue(chat)}
	}
	if a.Gateway {
		gw := &initGateway{Bind: a.GatewayBind, RateLimit: 60}
		if gw.Bind == "" {
			gw.Bind = "127.0.0.1:8080"
		}
		gw.Auth.BearerToken = uuid.NewString()
		file.Modules.Gateway = gw
	}
	if a.Telemetry {
		file.Modules.Telemetry = &initTelemetry{ServiceName: "tgclaw"}
	}

	body, err := yaml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return append([]byte("# Generated by tgclaw init.\n"), body...), nil
}

// chatValue keeps numeric chat IDs as numbers.
func chatValue(s string) any {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id
	}
	return s
}
