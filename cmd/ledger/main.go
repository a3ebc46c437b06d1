// Command ledger manages shared household ledgers from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/shared-ledger/internal/common"
	"github.com/Veraticus/shared-ledger/internal/config"
)

var version = "dev"

// app carries per-invocation state shared by every command.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "ledger",
		Short: "📒 Shared household ledger",
		Long: `ledger keeps a shared household book: assets and their balances, income and
expense categories, transactions and the people allowed to edit them.

Every balance change happens inside a single database transaction, so the
balance of each asset always equals its initial balance plus its postings.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.config/ledger/config.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.String("db", "", "database path (default: "+config.DefaultDatabasePath+")")
	flags.String("as", "", "email of the acting user")

	_ = a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
	_ = a.v.BindPFlag(config.KeyDatabasePath, flags.Lookup("db"))
	_ = a.v.BindPFlag(config.KeyUserEmail, flags.Lookup("as"))

	rootCmd.AddCommand(
		a.migrateCmd(),
		a.userCmd(),
		a.ledgersCmd(),
		a.groupsCmd(),
		a.assetsCmd(),
		a.categoriesCmd(),
		a.txnCmd(),
		a.inviteCmd(),
		a.reorderCmd(),
		a.verifyCmd(),
		a.importOFXCmd(),
		versionCmd(),
	)

	return rootCmd
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

func (a *app) initConfig(_ *cobra.Command, _ []string) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		a.v.AddConfigPath(fmt.Sprintf("%s/.config/ledger", home))
		a.v.AddConfigPath(".")
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("LEDGER")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := common.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if err := common.SetupLogger(level, cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

// describeError renders typed ledger errors with their code so scripts can
// match on it.
func describeError(err error) string {
	var ledgerErr *common.Error
	if errors.As(err, &ledgerErr) {
		return fmt.Sprintf("%s [%s/%s]", ledgerErr.Message, ledgerErr.Kind, ledgerErr.Code)
	}
	return err.Error()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("ledger version", version)
		},
	}
}
