// Command svn-resolve inspects and resolves conflicts recorded in a
// working copy's metadata store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aboseley/subversion/internal/conflict"
	"github.com/aboseley/subversion/internal/debug"
	"github.com/aboseley/subversion/internal/telemetry"
	"github.com/aboseley/subversion/internal/ui"
	"github.com/aboseley/subversion/internal/wc"
	"github.com/aboseley/subversion/internal/wc/doltstore"
)

var (
	store *doltstore.Store

	// Signal-aware context for graceful cancellation.
	rootCtx    context.Context
	rootCancel context.CancelFunc

	verboseFlag bool
	storePath   string
)

const storeOpenTimeout = 30 * time.Second

// version is stamped at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "svn-resolve",
	Short: "Inspect and resolve working-copy conflicts",
	Long: `svn-resolve reads the conflicts recorded in a working copy's metadata
store, explains them, and applies resolution options.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verboseFlag {
			debug.SetVerbose(true)
		}
		return telemetry.Init(cmd.Context(), "svn-resolve", version)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		telemetry.Shutdown(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "",
		"path to the working-copy metadata store (default .svn/wc-store)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"enable debug output")

	viper.SetDefault("store.path", ".svn/wc-store")
	viper.SetDefault("store.database", "wc")
	viper.SetDefault("server.enabled", false)
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 3306)

	viper.SetEnvPrefix("SVN_RESOLVE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("svn-resolve")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".svn")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		// Absent config files are fine; everything has a default.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "warning: config file: %v\n", err)
		}
	}

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(importCmd)
}

// openStore opens the metadata store per flags and configuration.
func openStore(ctx context.Context) (*doltstore.Store, error) {
	path := storePath
	if path == "" {
		path = viper.GetString("store.path")
	}
	cfg := &doltstore.Config{
		Path:           path,
		Database:       viper.GetString("store.database"),
		CommitterName:  "svn-resolve",
		CommitterEmail: "svn-resolve@localhost",
		OpenTimeout:    storeOpenTimeout,
		ServerMode:     viper.GetBool("server.enabled"),
		ServerHost:     viper.GetString("server.host"),
		ServerPort:     viper.GetInt("server.port"),
		ServerUser:     viper.GetString("server.user"),
		ServerPassword: viper.GetString("server.password"),
	}
	return doltstore.New(ctx, cfg)
}

// resolverContext builds the conflict context every subcommand uses.
func resolverContext() *conflict.Context {
	return &conflict.Context{
		Store: store,
		Notify: func(n wc.Notification) {
			fmt.Printf("%s conflicted state of '%s'\n",
				ui.RenderResolved("Resolved"), n.Path)
		},
		Cancel: func() error { return rootCtx.Err() },
	}
}

// withStore opens the store around fn and closes it afterwards.
func withStore(ctx context.Context, fn func(ctx context.Context) error) error {
	s, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	store = s
	defer func() {
		_ = s.Close()
		store = nil
	}()
	return fn(ctx)
}

func main() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	if err := rootCmd.ExecuteContext(rootCtx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderConflict("error:"), err)
		os.Exit(1)
	}
}
