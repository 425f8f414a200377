// Command review-harvester downloads Steam reviews for one product, keeps
// those written by players above a playtime threshold and saves them as a
// newline separated text file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/review-harvester/internal/config"
	"github.com/Sternrassler/review-harvester/pkg/catalog"
	"github.com/Sternrassler/review-harvester/pkg/client"
	"github.com/Sternrassler/review-harvester/pkg/logging"
	"github.com/Sternrassler/review-harvester/pkg/metrics"
	"github.com/Sternrassler/review-harvester/pkg/pagination"
	"github.com/Sternrassler/review-harvester/pkg/session"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type options struct {
	configFile  string
	envFile     string
	product     string
	minHours    int
	maxPages    int
	outputDir   string
	redisURL    string
	baseURL     string
	language    string
	timeout     time.Duration
	logLevel    string
	pretty      bool
	metricsAddr string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "review-harvester [product]",
		Short: "Collect Steam reviews from experienced players",
		Long: `review-harvester pages through the public Steam review API for one
product, keeps reviews whose author played at least --min-hours and writes
their text to steam_reviews_<appid>_<hours>h.txt.

The product is a Steam AppID or one of the titles listed by "titles".`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.product = args[0]
			}
			if opts.product == "" {
				return fmt.Errorf("a product is required: pass an AppID, a title or --product")
			}
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.product, "product", "p", "", "Steam AppID or catalog title")
	f.IntVar(&opts.minHours, "min-hours", 0, "minimum author playtime in hours")
	f.IntVar(&opts.maxPages, "max-pages", pagination.DefaultMaxPages, fmt.Sprintf("maximum pages to fetch (1-%d)", pagination.MaxPagesLimit))
	f.StringVarP(&opts.outputDir, "output-dir", "o", ".", "directory for the review file")
	f.StringVar(&opts.redisURL, "redis-url", "", "enable the page cache at this redis:// URL")
	f.StringVar(&opts.baseURL, "base-url", client.DefaultBaseURL, "review API host")
	f.StringVar(&opts.language, "language", "", "review language (default russian)")
	f.DurationVar(&opts.timeout, "timeout", 0, "per-attempt request timeout (default 15s)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address while running")

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "YAML settings file")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded into the environment if present")
	pf.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&opts.pretty, "pretty", false, "human-readable logs")

	cmd.AddCommand(newTitlesCmd())

	return cmd
}

func newTitlesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "titles",
		Short: "List catalog titles accepted in place of an AppID",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, title := range catalog.Titles() {
				id, _ := catalog.Lookup(title)
				fmt.Fprintf(out, "%-16s %d\n", title, id)
			}
		},
	}
}

// loadSettings merges env, config file and explicitly set flags.
func loadSettings(cmd *cobra.Command, opts *options) (config.Settings, error) {
	if err := config.LoadEnv(opts.envFile); err != nil {
		return config.Settings{}, err
	}

	s, err := config.Load(opts.configFile)
	if err != nil {
		return s, err
	}

	flags := cmd.Flags()
	if flags.Changed("min-hours") {
		s.Run.MinHours = opts.minHours
	}
	if flags.Changed("max-pages") {
		s.Run.MaxPages = opts.maxPages
	}
	if flags.Changed("output-dir") {
		s.OutputDirectory = opts.outputDir
	}
	if flags.Changed("redis-url") {
		s.Cache.RedisURL = opts.redisURL
	}
	if flags.Changed("base-url") {
		s.API.BaseURL = opts.baseURL
	}
	if flags.Changed("language") {
		s.API.Language = opts.language
	}
	if flags.Changed("timeout") {
		s.API.Timeout = opts.timeout
	}
	if flags.Changed("metrics-addr") {
		s.MetricsAddr = opts.metricsAddr
	}
	if flags.Changed("log-level") {
		s.LogLevel = opts.logLevel
	}
	if flags.Changed("pretty") {
		s.Pretty = opts.pretty
	}

	return s, s.Validate()
}

func run(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()

	settings, err := loadSettings(cmd, opts)
	if err != nil {
		return err
	}

	logCfg := settings.Logging()
	logCfg.Output = cmd.ErrOrStderr()
	logging.Setup(logCfg)
	logger := logging.NewLogger("cli")

	rdb, err := settings.RedisClient()
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, page cache disabled")
			rdb = nil
		} else {
			logger.Info().Str("redis", settings.Cache.RedisURL).Msg("Page cache enabled")
		}
	}

	reviewClient, err := client.New(settings.ClientConfig(rdb))
	if err != nil {
		return fmt.Errorf("failed to create review client: %w", err)
	}
	defer reviewClient.Close()

	if settings.MetricsAddr != "" {
		srv := startMetricsServer(settings.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("Metrics server shutdown failed")
			}
		}()
		logger.Info().Str("addr", settings.MetricsAddr).Msg("Serving metrics")
	}

	orch := session.New(reviewClient, session.Config{
		OutputDir: settings.OutputDirectory,
		Paginator: pagination.DefaultConfig(),
	})

	h, err := orch.StartRun(ctx, opts.product, settings.Run.MinHours, settings.Run.MaxPages)
	if err != nil {
		return err
	}

	printer := newProgressPrinter(cmd.OutOrStdout())
	for ev := range h.Events() {
		printer.handle(ev)
	}

	_, err = h.Wait(ctx)
	return err
}

func startMetricsServer(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return srv
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// progressPrinter renders session events as one status line per event.
type progressPrinter struct {
	out  io.Writer
	ok   *color.Color
	warn *color.Color
	fail *color.Color
	info *color.Color
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{
		out:  out,
		ok:   color.New(color.FgGreen, color.Bold),
		warn: color.New(color.FgYellow),
		fail: color.New(color.FgRed, color.Bold),
		info: color.New(color.FgCyan),
	}
}

func (p *progressPrinter) handle(ev session.Event) {
	switch ev.Kind {
	case session.EventProgress:
		p.info.Fprintf(p.out, "[%3.0f%%] ", ev.Progress.Fraction*100)
		fmt.Fprintf(p.out, "page %d loaded, %d reviews accepted\n", ev.Progress.PageIndex, ev.Progress.AcceptedCount)

	case session.EventDone:
		res := ev.Result
		if res.Partial {
			p.warn.Fprintf(p.out, "stopped early after %d of %d pages\n", res.PagesCompleted, res.MaxPages)
		}
		p.ok.Fprintf(p.out, "saved %d reviews", len(res.AcceptedTexts))
		fmt.Fprintf(p.out, " to %s\n", res.OutputPath)

	case session.EventFailed:
		p.fail.Fprintf(p.out, "run failed: ")
		fmt.Fprintln(p.out, ev.Message)
	}
}
