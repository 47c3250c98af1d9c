package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Sternrassler/growappt-crawler/pkg/config"
	"github.com/Sternrassler/growappt-crawler/pkg/crawler"
	"github.com/Sternrassler/growappt-crawler/pkg/credentials"
	"github.com/Sternrassler/growappt-crawler/pkg/logging"
	"github.com/Sternrassler/growappt-crawler/pkg/metrics"
)

// app holds the process collaborators a test replaces.
type app struct {
	out      io.Writer
	logOut   io.Writer
	prompter credentials.Prompter
	getenv   func(string) string
	now      func() time.Time
}

func defaultApp() app {
	return app{
		out:      os.Stdout,
		logOut:   os.Stderr,
		prompter: credentials.NewTermPrompter(),
		getenv:   os.Getenv,
		now:      time.Now,
	}
}

// options are the flags that are not part of config.Config.
type options struct {
	configPath      string
	envFile         string
	logLevel        string
	logJSON         bool
	metricsTextfile string
	metricsPushURL  string
}

func newRootCmd(a app) *cobra.Command {
	var (
		opts  options
		flags = config.DefaultConfig()
	)

	cmd := &cobra.Command{
		Use:   "crawl-customers",
		Short: "Export shop customers and split them into duplicate and unique phone numbers",
		Long: `crawl-customers signs in to the booking platform, fetches customer listing
pages and writes two files next to --output: <name>_dupes_<timestamp>.<ext>
with rows sharing a phone number (grouped, blank row between groups) and
<name>_unique_<timestamp>.<ext> with the rest. An .xlsx output path writes
workbooks instead of CSV.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.ValidateLevel(opts.logLevel); err != nil {
				return err
			}
			logging.Setup(logging.Config{
				Level:  logging.LogLevel(opts.logLevel),
				JSON:   opts.logJSON,
				Output: a.logOut,
			})

			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd.Flags(), &cfg, flags)

			getenv, err := envLookup(opts.envFile, a.getenv)
			if err != nil {
				return err
			}

			creds, err := credentials.NewResolver(
				credentials.Static("flags", flags.LoginID, flags.Password),
				credentials.Env(getenv),
				credentials.Static("config", cfg.LoginID, cfg.Password),
				credentials.Prompt(a.prompter),
			).Resolve()
			if err != nil {
				return err
			}

			c, err := crawler.New(cfg)
			if err != nil {
				return err
			}
			if a.now != nil {
				c.WithClock(a.now)
			}

			res, runErr := c.Run(cmd.Context(), creds)
			exportMetrics(cmd, opts)
			if runErr != nil {
				return runErr
			}

			renderSummary(a.out, res)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&flags.Limit, "limit", flags.Limit, "records per page")
	f.IntVar(&flags.Page, "page", flags.Page, "page to fetch when --all is not set")
	f.IntVar(&flags.FromPage, "from-page", flags.FromPage, "first page with --all (values below 1 start at 1)")
	f.IntVar(&flags.ToPage, "to-page", flags.ToPage, "last page with --all (0 = until an empty page)")
	f.BoolVar(&flags.All, "all", flags.All, "fetch pages from --from-page until --to-page or an empty page")
	f.IntVar(&flags.SleepMS, "sleep-ms", flags.SleepMS, "pause between page requests in milliseconds")
	f.StringVar(&flags.SearchWord, "search-word", flags.SearchWord, "listing search word")
	f.IntVar(&flags.SortKey, "sort-key", flags.SortKey, "listing sort key")
	f.IntVar(&flags.SortOrder, "sort-order", flags.SortOrder, "listing sort order")
	f.StringVar(&flags.Output, "output", flags.Output, "base output path; .xlsx writes workbooks")
	f.StringVar(&flags.LoginURL, "login-url", flags.LoginURL, "sign-in endpoint")
	f.StringVar(&flags.CustomersURL, "customers-url", flags.CustomersURL, "customer listing endpoint")
	f.StringVar(&flags.LoginID, "loginid", "", "login id (prompted when missing)")
	f.StringVar(&flags.Password, "password", "", "password (prompted without echo when missing)")
	f.IntVar(&flags.TimeoutSeconds, "timeout", flags.TimeoutSeconds, "per-request timeout in seconds")

	f.StringVar(&opts.configPath, "config", "", "json5 config file; <name>.local.<ext> overrides it")
	f.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with "+credentials.EnvLoginID+"/"+credentials.EnvPassword)
	f.StringVar(&opts.logLevel, "log-level", string(logging.LevelInfo), "debug, info, warn or error")
	f.BoolVar(&opts.logJSON, "log-json", false, "log JSON lines instead of console output")
	f.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "write metrics in node-exporter textfile format")
	f.StringVar(&opts.metricsPushURL, "metrics-push-url", "", "push metrics to this Pushgateway")

	return cmd
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// applyFlags copies every explicitly set flag from src onto cfg.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config, src config.Config) {
	setters := map[string]func(){
		"limit":         func() { cfg.Limit = src.Limit },
		"page":          func() { cfg.Page = src.Page },
		"from-page":     func() { cfg.FromPage = src.FromPage },
		"to-page":       func() { cfg.ToPage = src.ToPage },
		"all":           func() { cfg.All = src.All },
		"sleep-ms":      func() { cfg.SleepMS = src.SleepMS },
		"search-word":   func() { cfg.SearchWord = src.SearchWord },
		"sort-key":      func() { cfg.SortKey = src.SortKey },
		"sort-order":    func() { cfg.SortOrder = src.SortOrder },
		"output":        func() { cfg.Output = src.Output },
		"login-url":     func() { cfg.LoginURL = src.LoginURL },
		"customers-url": func() { cfg.CustomersURL = src.CustomersURL },
		"timeout":       func() { cfg.TimeoutSeconds = src.TimeoutSeconds },
	}
	fs.Visit(func(f *pflag.Flag) {
		if set, ok := setters[f.Name]; ok {
			set()
		}
	})
}

// envLookup layers the dotenv file under the process environment.
// A missing file is not an error.
func envLookup(path string, getenv func(string) string) (func(string) string, error) {
	if path == "" {
		return getenv, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return getenv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return values[key]
	}, nil
}

func exportMetrics(cmd *cobra.Command, opts options) {
	exp := metrics.ExportOptions{Textfile: opts.metricsTextfile, PushURL: opts.metricsPushURL}
	if !exp.Enabled() {
		return
	}
	if err := metrics.Export(cmd.Context(), exp); err != nil {
		log.Warn().Err(err).Msg("Metrics export failed")
	}
}
