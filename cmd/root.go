// -- cmd/root.go --
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockpuppet-cli/internal/config"
	"github.com/xkilldash9x/sockpuppet-cli/internal/observability"
	"github.com/xkilldash9x/sockpuppet-cli/internal/service"
)

var (
	cfgFile string
	// cfg is the resolved configuration, populated by PersistentPreRunE.
	cfg *config.Config
	// factory builds the component graph. A package variable so command tests
	// can substitute one that does not launch a browser.
	factory service.ComponentFactory = service.NewComponentFactory()
)

// NewRootCommand builds the root command and its subcommand tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "sockpuppet",
		Short:   "Sockpuppet drives one Instagram account through a real browser.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeConfig(); err != nil {
				return err
			}

			resolved, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				// A fallback logger so the config error itself gets reported.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "sockpuppet"})
				return err
			}
			cfg = resolved

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Info("Starting sockpuppet.",
				zap.String("version", Version),
				zap.String("account", cfg.Account.Username))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newSendCmd(),
		newEngageCmd(),
		newPostsCmd(),
		newFollowersCmd(),
		newLogsCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the CLI with a signal-aware context.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed.", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return err
	}
	return nil
}

// initializeConfig reads the config file and environment into the global
// viper instance.
func initializeConfig() error {
	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SOCKPUPPET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars carry the run.
	}
	return nil
}
