package main

import (
	"fmt"
	"os"

	"dogeow-realtime/config"
	"dogeow-realtime/pkg/log"

	"github.com/spf13/cobra"
)

var (
	sessionPath string
	debug       bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "notify",
	Short: "DogeOW real-time notification listener",
	Long: `notify keeps the signed-in user's notification channel subscribed and
refreshes the unread count whenever a notification is broadcast.

Available subcommands:
  listen  - Follow the session file and keep channels subscribed
  token   - Sign a development token and write it to the session file
  publish - Broadcast an event through the Redis broadcaster`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session", "", "Session file (default: $SESSION_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(publishCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies the persistent flags on top of the environment.
func loadConfig() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if sessionPath != "" {
		cfg.Session.Path = sessionPath
	}
	if debug {
		cfg.Logger.Level = log.LevelDebug
	}

	logger := log.Init(log.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
		Name:         "notify",
	})
	return cfg, logger, nil
}
