// Command cardctl drives the storefront API from a terminal: browse templates, place
// an order, use the forum, and run operator tasks such as seeding and migrations.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/apiclient"
)

var version = "dev"

type globalOptions struct {
	apiURL  string
	token   string
	timeout time.Duration
	verbose bool

	logger *zap.Logger
}

func (o *globalOptions) client() (*apiclient.Client, error) {
	return apiclient.NewClient(o.apiURL,
		apiclient.WithBearerToken(o.token),
		apiclient.WithHTTPClient(&http.Client{Timeout: o.timeout}),
	)
}

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "cardctl",
		Short:         "Holiday card storefront command line",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !opts.verbose {
				return nil
			}
			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			opts.logger = logger.Named("cardctl")
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = opts.logger.Sync()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api", envOrDefault("CARDCTL_API_URL", "http://localhost:8080"), "storefront API origin")
	flags.StringVar(&opts.token, "token", os.Getenv("CARDCTL_TOKEN"), "bearer token for admin and internal endpoints")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-request timeout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(
		templatesCmd(opts),
		orderCmd(opts),
		forumCmd(opts),
		suggestCmd(),
		uploadCmd(opts),
		seedCmd(opts),
		migrateCmd(opts),
	)
	return root
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
