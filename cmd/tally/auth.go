package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/gmail"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Gmail",
		Long: `Run the interactive OAuth2 flow against Google and save the resulting
token for the reconcile command to use. If a saved token exists it is
refreshed instead of prompting again.`,
		RunE: runAuth,
	}

	cmd.Flags().String("client-id", "", "OAuth2 client ID (overrides config)")
	cmd.Flags().String("client-secret", "", "OAuth2 client secret (overrides config)")

	return cmd
}

func runAuth(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	clientID, _ := cmd.Flags().GetString("client-id")
	clientSecret, _ := cmd.Flags().GetString("client-secret")
	if clientID == "" {
		clientID = viper.GetString("gmail.client_id")
	}
	if clientSecret == "" {
		clientSecret = viper.GetString("gmail.client_secret")
	}
	if clientID == "" || clientSecret == "" {
		return common.NewUserError(
			"Gmail OAuth2 credentials not found; set gmail.client_id and gmail.client_secret in the config file or pass --client-id and --client-secret", nil)
	}

	tokenFile := config.ExpandPath(viper.GetString("gmail.token_file"))
	if tokenFile == "" {
		dataDir, err := config.DataDir()
		if err != nil {
			return err
		}
		tokenFile = filepath.Join(dataDir, "gmail-token.json")
	}

	slog.Info("Starting Gmail authentication", "token_file", tokenFile)

	token, err := gmail.GetOrCreateToken(ctx, gmail.OAuth2Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenFile:    tokenFile,
	})
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	viper.Set("gmail.token_file", tokenFile)
	if token.RefreshToken != "" {
		viper.Set("gmail.refresh_token", token.RefreshToken)
	}

	if err := saveConfig(); err != nil {
		slog.Warn("Failed to update config file", "error", err)
		slog.Info("Add this to your config.yaml manually:")
		slog.Info(fmt.Sprintf("gmail:\n  token_file: %q", tokenFile))
	} else {
		slog.Info("Updated config file", "file", viper.ConfigFileUsed())
	}

	slog.Info(cli.FormatSuccess("Gmail is now configured"))
	slog.Info("Run 'tally reconcile' to start matching receipts.")
	return nil
}

func saveConfig() error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		dataDir, err := config.DataDir()
		if err != nil {
			return err
		}
		configFile = filepath.Join(dataDir, "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0750); err != nil {
		return err
	}

	return viper.WriteConfigAs(configFile)
}
