package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/config"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/scan"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/store"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/pkg/aigen"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/pkg/atlas"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/pkg/dbpedia"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/pkg/foursquare"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/pkg/geonames"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/pkg/gplaces"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/pkg/wikidata"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/pkg/wikipedia"
)

var (
	scanCountry   string
	scanCategory  string
	scanLimit     int
	scanProviders []string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run ingestion scans",
	Long:  "Commands for scanning external sources and feeding candidates through the duplicate checker.",
}

// scanEnv bundles the store and engine for one scan invocation.
type scanEnv struct {
	st     store.Store
	engine *scan.Engine
	cfg    *config.Config
}

func initScanEnv(ctx context.Context) (*scanEnv, error) {
	st, err := initMigratedStore(ctx)
	if err != nil {
		return nil, err
	}
	return newScanEnv(st, cfg), nil
}

func newScanEnv(st store.Store, c *config.Config) *scanEnv {
	return &scanEnv{
		st:     st,
		engine: scan.NewEngine(st, c.Scan.Paused, c.Scan.FetchWorkers),
		cfg:    c,
	}
}

func (e *scanEnv) Close() {
	e.st.Close() //nolint:errcheck
}

func (e *scanEnv) query(country, category string, limit int) scan.Query {
	if country == "" {
		country = e.cfg.Scan.Country
	}
	if category == "" {
		category = e.cfg.Scan.Category
	}
	if limit <= 0 {
		limit = e.cfg.Scan.ResultLimit
	}
	return scan.Query{Category: category, Country: country, Limit: limit}
}

// runAPI scans Wikidata, backfilling descriptions from Wikipedia.
func (e *scanEnv) runAPI(ctx context.Context, country, category string, limit int) (*model.ScanReport, error) {
	q := e.query(country, category, limit)

	summarizer := wikipedia.NewClient(
		wikipedia.WithUserAgent(e.cfg.Providers.UserAgent),
		wikipedia.WithRateLimit(e.cfg.Providers.RateLimitRPS),
	)
	provider := wikidata.NewClient(
		wikidata.WithUserAgent(e.cfg.Providers.UserAgent),
		wikidata.WithRateLimit(e.cfg.Providers.RateLimitRPS),
		wikidata.WithSummarizer(summarizer),
	)

	return e.engine.Run(ctx, []scan.Provider{provider}, scan.RunOpts{
		Label:    fmt.Sprintf("api_scan:%s:%s", q.Category, q.Country),
		Query:    q,
		Evidence: scan.APIEvidence,
	})
}

// runMulti scans the configured multi-source providers.
func (e *scanEnv) runMulti(ctx context.Context, country, category string, limit int, names []string) (*model.ScanReport, error) {
	q := e.query(country, category, limit)

	registry := scan.NewRegistry()
	registry.Register(dbpedia.NewClient(
		dbpedia.WithUserAgent(e.cfg.Providers.UserAgent),
		dbpedia.WithRateLimit(e.cfg.Providers.RateLimitRPS),
	))
	registry.Register(geonames.NewClient(e.cfg.Providers.GeoNamesUsername,
		geonames.WithRateLimit(e.cfg.Providers.RateLimitRPS),
	))
	registry.Register(foursquare.NewClient(e.cfg.Providers.FoursquareKey,
		foursquare.WithRateLimit(e.cfg.Providers.RateLimitRPS),
	))
	registry.Register(gplaces.NewClient(e.cfg.Providers.GooglePlacesKey,
		gplaces.WithRateLimit(e.cfg.Providers.RateLimitRPS),
	))
	registry.Register(atlas.NewClient())

	if len(names) == 0 {
		names = e.cfg.Providers.Enabled
	}
	providers, err := registry.Select(names)
	if err != nil {
		return nil, err
	}

	return e.engine.Run(ctx, providers, scan.RunOpts{
		Label:    fmt.Sprintf("multi_scan:%s:%s", q.Category, q.Country),
		Query:    q,
		Evidence: scan.MultiEvidence,
	})
}

// runAI generates candidates with the Anthropic API.
func (e *scanEnv) runAI(ctx context.Context, country string) (*model.ScanReport, error) {
	if e.cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic.key is required for the ai scan")
	}
	q := e.query(country, "", 0)

	messenger := aigen.NewSDKMessenger(e.cfg.Anthropic.Key, e.cfg.Anthropic.Model, e.cfg.Anthropic.MaxTokens)
	generator := aigen.NewGenerator(messenger, e.cfg.Anthropic.PlaceCount)

	return e.engine.Run(ctx, []scan.Provider{generator}, scan.RunOpts{
		Label:       fmt.Sprintf("ai_scan:%s", q.Country),
		Query:       q,
		AICollected: 1,
		Evidence:    scan.AIEvidence,
	})
}

func printReport(report *model.ScanReport) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// -- scan api --

var scanAPICmd = &cobra.Command{
	Use:   "api",
	Short: "Scan Wikidata for haunted places",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initScanEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.runAPI(ctx, scanCountry, scanCategory, scanLimit)
		if err != nil {
			return eris.Wrap(err, "scan api")
		}
		return printReport(report)
	},
}

// -- scan multi --

var scanMultiCmd = &cobra.Command{
	Use:   "multi",
	Short: "Scan the configured multi-source providers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initScanEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.runMulti(ctx, scanCountry, scanCategory, scanLimit, scanProviders)
		if err != nil {
			return eris.Wrap(err, "scan multi")
		}
		return printReport(report)
	},
}

// -- scan ai --

var scanAICmd = &cobra.Command{
	Use:   "ai",
	Short: "Generate candidate places with the Anthropic API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initScanEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.runAI(ctx, scanCountry)
		if err != nil {
			return eris.Wrap(err, "scan ai")
		}
		return printReport(report)
	},
}

// -- scan logs --

var scanLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List recent scan runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		logs, err := st.ListScanLogs(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "scan logs")
		}

		if len(logs) == 0 {
			fmt.Fprintln(os.Stderr, "No scans recorded.")
			return nil
		}

		formatScanLogs(os.Stdout, logs)
		return nil
	},
}

// formatScanLogs writes a tabular scan history to w.
func formatScanLogs(out io.Writer, logs []model.ScanLog) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tQUERY\tSTATUS\tFOUND\tADDED\tSTARTED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t-----\t------\t-----\t-----\t-------\t--------")

	for _, l := range logs {
		dur := ""
		if l.CompletedAt != nil {
			dur = l.CompletedAt.Sub(l.StartedAt).Round(time.Second).String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			l.ID, l.SearchQuery, l.Status, l.PlacesFound, l.PlacesAdded,
			l.StartedAt.Format(time.RFC3339), dur)
	}
	_ = w.Flush()
}

func init() {
	scanCmd.PersistentFlags().StringVar(&scanCountry, "country", "", "ISO country code (default from config)")
	scanCmd.PersistentFlags().StringVar(&scanCategory, "category", "", "place category (default from config)")
	scanCmd.PersistentFlags().IntVar(&scanLimit, "limit", 0, "max results per provider (default from config)")
	scanMultiCmd.Flags().StringSliceVar(&scanProviders, "providers", nil, "providers to scan (default from config)")
	scanLogsCmd.Flags().Int("limit", 20, "max scan runs to list")

	scanCmd.AddCommand(scanAPICmd, scanMultiCmd, scanAICmd, scanLogsCmd)
	rootCmd.AddCommand(scanCmd)
}
