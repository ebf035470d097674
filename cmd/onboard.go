package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/aldikteam/aldikbot/internal/config"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Interactive first-time setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnboard()
		},
	}
}

// runOnboard walks through the minimum viable setup: bot token, database
// location and optional Ollama endpoint. The token goes to .env, everything
// else to the config file.
func runOnboard() error {
	cfg := config.Default()
	token := os.Getenv("ALDIKBOT_TELEGRAM_TOKEN")
	enableAI := false

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("From @BotFather. Stored in .env, never in config.").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("token is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Database path").
				Value(&cfg.Database.Path),
			huh.NewConfirm().
				Title("Enable AI style replies?").
				Description("Needs a local Ollama server.").
				Value(&enableAI),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("onboard cancelled: %w", err)
	}

	if enableAI {
		aiForm := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Ollama base URL").
					Value(&cfg.AI.BaseURL),
				huh.NewInput().
					Title("Ollama model").
					Value(&cfg.AI.Model),
			),
		)
		if err := aiForm.Run(); err != nil {
			return fmt.Errorf("onboard cancelled: %w", err)
		}
	}

	cfgPath := resolveConfigPath()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	env := fmt.Sprintf("ALDIKBOT_TELEGRAM_TOKEN=%s\n", token)
	if err := os.WriteFile(".env", []byte(env), 0o600); err != nil {
		return fmt.Errorf("write .env: %w", err)
	}

	fmt.Printf("Wrote %s and .env — run `aldikbot` to start the bot.\n", cfgPath)
	return nil
}
