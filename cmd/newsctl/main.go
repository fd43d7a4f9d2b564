package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Hafiz-Al-Shams/news-nexus/configs"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/bootstrap"
)

var version = "dev"

var (
	flagIdentity string
	flagTo       string
)

var rootCmd = &cobra.Command{
	Use:           "newsctl",
	Short:         "Operate the news-nexus cache and quotas",
	Long:          "newsctl pre-generates cached bulletins, mails bulletin digests and inspects per-identity quotas.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var bulletinCmd = &cobra.Command{
	Use:   "bulletin",
	Short: "Generate or send the 24 hour bulletin",
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the bulletin and its cards into the cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(app *bootstrap.App) error {
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), app.Bulletins, flagIdentity)
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Mail the current bulletin digest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(app *bootstrap.App) error {
			if app.Mailer == nil {
				return fmt.Errorf("SENDGRID_API_KEY is not configured")
			}
			return runSend(cmd.Context(), cmd.OutOrStdout(), app.Bulletins, app.Mailer, flagIdentity, flagTo)
		})
	},
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Inspect per-identity quotas",
}

var quotaShowCmd = &cobra.Command{
	Use:   "show <identity>",
	Short: "Print an identity's quota counters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(app *bootstrap.App) error {
			return runQuotaShow(cmd.Context(), cmd.OutOrStdout(), app.Quota, args[0], limitSets(app))
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "newsctl %s\n", version)
	},
}

func init() {
	bulletinCmd.PersistentFlags().StringVar(&flagIdentity, "as", "newsctl", "identity charged for upstream calls")
	sendCmd.Flags().StringVar(&flagTo, "to", "", "recipient email address")
	_ = sendCmd.MarkFlagRequired("to")

	bulletinCmd.AddCommand(generateCmd, sendCmd)
	quotaCmd.AddCommand(quotaShowCmd)
	rootCmd.AddCommand(bulletinCmd, quotaCmd, versionCmd)
}

// withApp loads configuration, wires the services and closes them after fn.
func withApp(ctx context.Context, fn func(app *bootstrap.App) error) error {
	cfg, err := configs.Load()
	if err != nil {
		return err
	}
	logger := bootstrap.NewLogger(cfg.Log)
	app, err := bootstrap.New(ctx, cfg, logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
