package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Bitlatte/pageserve/internal/config"
)

var cfgFile string
var appConfig config.Config

var rootCmd = &cobra.Command{
	Use:   "pageserve <resources-dir>",
	Short: "pageserve - serve a directory of markdown pages",
	Long: `pageserve renders the markdown files in <resources-dir>/pages into the
HTML template <resources-dir>/template.html on first request, keeps the
rendered pages in memory, and serves <resources-dir>/public under /public.`,
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), args[0], appConfig)
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pageserve.yaml if present)")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("home-page", config.DefaultHomePage, "page rendered for /")
	rootCmd.PersistentFlags().String("not-found-page", config.DefaultNotFoundPage, "page rendered in place of missing pages")

	rootCmd.Flags().String("addr", config.DefaultAddr, "address to listen on")
	rootCmd.Flags().Bool("watch", false, "pre-render pages as they are added to the pages directory")
	rootCmd.Flags().Bool("not-found-status", false, "respond to missing pages with status 404 instead of 200")
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"addr":             "addr",
	"log-level":        "logLevel",
	"home-page":        "homePage",
	"not-found-page":   "notFoundPage",
	"not-found-status": "notFoundStatus",
	"watch":            "watch",
	"out":              "outDir",
}

func initializeConfig(cmd *cobra.Command) error {
	v := viper.New()

	v.SetDefault("addr", config.DefaultAddr)
	v.SetDefault("logLevel", config.DefaultLogLevel)
	v.SetDefault("homePage", config.DefaultHomePage)
	v.SetDefault("notFoundPage", config.DefaultNotFoundPage)
	v.SetDefault("notFoundStatus", false)
	v.SetDefault("watch", false)
	v.SetDefault("outDir", config.DefaultOutDir)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("pageserve")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PAGESERVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}

	if err := v.Unmarshal(&appConfig); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		if bindErr := v.BindPFlag(key, f); bindErr != nil {
			err = fmt.Errorf("failed to bind flag --%s: %w", f.Name, bindErr)
		}
	})
	return err
}
