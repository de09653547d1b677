package cmd

import (
	"os"

	"Scorekeep/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "scorekeep",
	Short: "Score keeping server for Chkan, S7ab and Jaki",
	Long:  "Scorekeep tracks invitations, live sessions and scores of card games played by a group of friends.",
	// Running the bare binary starts the server, as it always did.
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "conf", "c", "", "config file path, e.g. -c ./config.toml")
	rootCmd.AddCommand(serveCmd, migrateCmd, versionCmd)
}

// Execute runs the command line and exits non zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, config.InitLogger(cfg.Log), nil
}
