package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tacogips/remotetheme/internal/debug"
	"github.com/tacogips/remotetheme/internal/teardown"
)

// Global flags
var (
	globalNoColor  bool
	globalQuiet    bool
	globalDebug    bool
	globalSource   string
	globalConfig   string
	globalCacheDir string
)

// registry holds cleanup hooks for the whole process. It is created once in
// Execute and run before the process exits.
var registry *teardown.Registry

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "remotetheme",
	Short: "Materialize remote and local site themes",
	Long: `remotetheme resolves the theme configured for a static site, downloads
remote themes from GitHub archives, and merges theme data into site data.

The site configuration (_config.yml) selects a theme with either:
  remote_theme: owner/name[@ref]
  local_theme: path/to/theme

Downloaded themes and files copied from the theme are removed on exit.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	registry = teardown.New(nil)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		if _, ok := <-sigCh; ok {
			slog.Debug("received signal, shutting down")
			cancel()
		}
	}()

	err := rootCmd.ExecuteContext(ctx)

	signal.Stop(sigCh)
	close(sigCh)
	cancel()
	registry.Run()

	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVar(&globalNoColor, FlagNoColor, false, DescNoColor)
	rootCmd.PersistentFlags().BoolVarP(&globalQuiet, FlagQuiet, "q", false, DescQuiet)
	rootCmd.PersistentFlags().BoolVar(&globalDebug, FlagDebug, false, DescDebug)
	rootCmd.PersistentFlags().StringVarP(&globalSource, FlagSource, "s", ".", DescSource)
	rootCmd.PersistentFlags().StringVarP(&globalConfig, FlagConfig, "c", "", DescConfig)
	rootCmd.PersistentFlags().StringVar(&globalCacheDir, FlagCacheDir, "", DescCacheDir)

	// Add subcommands
	rootCmd.AddCommand(dataCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogger installs the process-wide slog logger from the global flags.
func setupLogger() {
	level := slog.LevelInfo
	switch {
	case globalDebug:
		level = slog.LevelDebug
	case globalQuiet:
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(debug.NewHandler(os.Stderr, &debug.Options{
		Level:   level,
		NoColor: globalNoColor,
	})))
}

// printError prints an error message to stderr
func printError(err error) {
	if globalQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
