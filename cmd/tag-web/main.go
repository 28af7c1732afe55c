package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TwistedArtistsGuild/tag-web/internal/application/startup"
	"github.com/TwistedArtistsGuild/tag-web/pkg/config"
)

var (
	port       string
	siteConfig string
)

var rootCmd = &cobra.Command{
	Use:   "tag-web",
	Short: "Twisted Artists Guild web front end",
	Long: `tag-web serves the Twisted Artists Guild site: artist, listing, blog and
event pages backed by the guild API, member sign-in, reactions, checkout,
email and file uploads.

Settings come from the environment; flags override the common ones.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if port != "" {
			config.Port = port
		}
		if siteConfig != "" {
			config.SiteConfigPath = siteConfig
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return startup.Initialize()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startup.Initialize()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the auth database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return startup.Migrate(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	rootCmd.PersistentFlags().StringVar(&siteConfig, "site", "", "site settings file (overrides SITE_CONFIG)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "tag-web: %v\n", err)
		os.Exit(1)
	}
}
