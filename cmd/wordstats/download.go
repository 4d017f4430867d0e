package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/abstract-wordstats/internal/harvest"
	"github.com/helixir/abstract-wordstats/internal/papersources/pubmed"
)

type downloadOptions struct {
	query     string
	startYear int
	endYear   int
}

func downloadCmd(root *rootOptions) *cobra.Command {
	opts := &downloadOptions{}

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Harvest PubMed records into the article store",
		Long: `Searches PubMed one publication month at a time for every year in the
configured range, fetches the matching records and saves them to the configured
article store. Any failed month aborts the download.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root, "download")
			if err != nil {
				return err
			}
			applyDownloadFlags(cmd, opts, a)
			if a.cfg.Harvest.EndYear < a.cfg.Harvest.StartYear {
				return fmt.Errorf("end year %d is before start year %d", a.cfg.Harvest.EndYear, a.cfg.Harvest.StartYear)
			}
			return runDownload(cmd, a)
		},
	}

	cmd.Flags().StringVar(&opts.query, "query", "", "Override the configured PubMed query")
	cmd.Flags().IntVar(&opts.startYear, "start-year", 0, "Override the first harvested publication year")
	cmd.Flags().IntVar(&opts.endYear, "end-year", 0, "Override the last harvested publication year")

	return cmd
}

func applyDownloadFlags(cmd *cobra.Command, opts *downloadOptions, a *app) {
	if cmd.Flags().Changed("query") {
		a.cfg.Harvest.Query = opts.query
	}
	if cmd.Flags().Changed("start-year") {
		a.cfg.Harvest.StartYear = opts.startYear
	}
	if cmd.Flags().Changed("end-year") {
		a.cfg.Harvest.EndYear = opts.endYear
	}
}

func runDownload(cmd *cobra.Command, a *app) error {
	ctx := a.context(cmd.Context())
	logger := a.runLogger()
	stopMetrics := a.startMetrics()
	defer stopMetrics()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	source := pubmed.New(pubmed.Config{
		BaseURL:       a.cfg.PubMed.BaseURL,
		APIKey:        a.cfg.PubMed.APIKey,
		Email:         a.cfg.PubMed.Email,
		Tool:          a.cfg.PubMed.Tool,
		Timeout:       a.cfg.PubMed.Timeout,
		RateLimit:     a.cfg.PubMed.RateLimit,
		MaxResults:    a.cfg.Harvest.MaxPerQuery,
		MaxRetries:    a.cfg.PubMed.MaxRetries,
		RetryDelay:    a.cfg.PubMed.RetryDelay,
		MaxRetryDelay: a.cfg.PubMed.MaxRetryDelay,
		Metrics:       a.metrics,
	})

	h := harvest.New(source, store, harvest.Config{
		Query:           a.cfg.Harvest.Query,
		StartYear:       a.cfg.Harvest.StartYear,
		EndYear:         a.cfg.Harvest.EndYear,
		MaxPerQuery:     a.cfg.Harvest.MaxPerQuery,
		ChunkSize:       a.cfg.Harvest.ChunkSize,
		Concurrency:     a.cfg.Harvest.Concurrency,
		MaxAttempts:     a.cfg.Harvest.MaxAttempts,
		InitialInterval: a.cfg.Harvest.InitialInterval,
		MaxInterval:     a.cfg.Harvest.MaxInterval,
	}, logger, a.metrics)

	result, err := h.Run(ctx)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	a.metrics.RecordArticlesStored(a.cfg.Storage.Backend, result.Articles)

	logger.Info().
		Str("backend", a.cfg.Storage.Backend).
		Int("queries", result.Queries).
		Int("pmids", result.PMIDs).
		Int("chunks", result.Chunks).
		Int("articles", result.Articles).
		Int("missing", result.Missing).
		Dur("duration", result.Duration).
		Msg("download complete")

	return nil
}
