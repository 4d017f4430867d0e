// Package observability provides logging and metrics support for the
// abstract word statistics tool.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for source requests, harvests, storage and analysis
//   - Context helpers for propagating the run identity
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stderr",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger = observability.WithRunContext(logger, observability.NewRunID(), "download")
//	logger.Info().Int("pmids", n).Msg("harvest finished")
//
// # Metrics
//
// Metrics are registered with the default registry on creation:
//
//	metrics := observability.NewMetrics("wordstats")
//	metrics.RecordArticlesStored("csv", len(articles))
//
// A nil *Metrics is valid and records nothing.
//
// # Standard Fields
//
// Common fields used across the tool:
//
//   - run_id: Command invocation identifier
//   - command: download, analyze or migrate
//   - year, month: Publication month being harvested
//   - chunk, chunk_size: efetch chunk
//   - pmid: PubMed identifier
package observability
