package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/httpdoom/internal/config"
	"github.com/nao1215/httpdoom/internal/database"
	"github.com/nao1215/httpdoom/internal/fingerprint"
	"github.com/nao1215/httpdoom/internal/metrics"
	"github.com/nao1215/httpdoom/internal/pipeline"
	"github.com/nao1215/httpdoom/internal/probe"
	"github.com/nao1215/httpdoom/internal/report"
	"github.com/nao1215/httpdoom/internal/rules"
	"github.com/nao1215/httpdoom/internal/screenshot"
	"github.com/nao1215/httpdoom/internal/target"
	"github.com/nao1215/httpdoom/internal/transport"
)

// shutdownTimeout bounds the metrics server shutdown.
const shutdownTimeout = 5 * time.Second

// execute probes hosts on cfg.Ports with caps and writes the results into
// cfg.OutputDir. Nothing is written when no target is alive.
func execute(ctx context.Context, cfg *config.Config, caps probe.Capabilities, hosts []string, logger *slog.Logger, out io.Writer) error {
	targets := target.Expand(hosts, cfg.Ports)
	logger.Info("targets expanded", "requests", len(targets))
	logger.Warn("mind the DoS: this tool can cause instability problems on your network")

	prober, err := newProber(ctx, cfg, caps, logger)
	if err != nil {
		return err
	}

	pool, err := pipeline.NewWorkerPool(cfg.Threads)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder(metrics.WithLogger(logger), metrics.WithPool(pool))
	if cfg.MetricsAddr != "" {
		if _, err := recorder.Serve(cfg.MetricsAddr); err != nil {
			return fmt.Errorf("failed to serve metrics: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := recorder.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to stop metrics server", "error", err)
			}
		}()
	}

	bp := pipeline.NewBatchProcessor(prober.Probe,
		pipeline.WithBatchLogger(logger),
		pipeline.WithRateLimit(cfg.RateLimit),
		pipeline.WithOutcomeHook(func(o pipeline.Outcome) {
			recorder.Observe(o)
			if !o.Failed() {
				logger.Info("host is alive",
					"target", o.Result.OriginURI,
					"status", o.Result.StatusCode,
				)
			}
		}),
	)

	batch, err := bp.Run(ctx, pool, targets)
	logSummary(logger, recorder.Summary(), batch)
	if errors.Is(err, pipeline.ErrAllTargetsUnreachable) {
		logger.Error("all tested hosts are dead", "targets", batch.Total())
		return err
	}
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	summary := report.NewSummary(batch, runID, getVersion())

	artifacts, err := report.Persist(cfg.OutputDir, summary)
	if err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	logger.Info("results saved",
		"dir", cfg.OutputDir,
		"general", artifacts.General,
		"individual", len(artifacts.Individual),
	)

	if cfg.SQLite {
		if err := saveToDatabase(ctx, cfg.OutputDir, runID, batch, logger); err != nil {
			return err
		}
	}

	if _, err := report.NewSimpleWriter(out, report.WithVerbose(cfg.Debug)).Write(summary); err != nil {
		return fmt.Errorf("failed to print report: %w", err)
	}

	if ctx.Err() != nil {
		return fmt.Errorf("scan interrupted, partial results saved to %s: %w", cfg.OutputDir, ctx.Err())
	}
	return nil
}

// newProber builds a Prober for caps from cfg. When technology detection is
// enabled the rules are loaded up front; a failure there is logged and every
// alive result then carries a rule_fetch warning.
func newProber(ctx context.Context, cfg *config.Config, caps probe.Capabilities, logger *slog.Logger) (*probe.Prober, error) {
	proxyURL, err := transport.ParseProxy(cfg.Proxy)
	if err != nil {
		return nil, err
	}
	headers, err := config.ParseHeaders(cfg.Headers)
	if err != nil {
		return nil, err
	}
	caps.UseProxy = proxyURL != nil

	opts := []probe.Option{
		probe.WithTimeout(cfg.Timeout),
		probe.WithMaxRedirects(cfg.MaxRedirects),
		probe.WithMaxBodySize(cfg.MaxBodySize),
		probe.WithUserAgent(cfg.UserAgent),
		probe.WithHeaders(headers),
		probe.WithProxy(proxyURL),
		probe.WithLogger(logger),
	}
	if cfg.File != nil {
		opts = append(opts, probe.WithHostHeaders(cfg.File.HostHeaders()))
	}

	if caps.DetectTechnology {
		loader := newRulesLoader(cfg, logger)
		if _, err := loader.Load(ctx); err != nil {
			logger.Warn("technology detection unavailable", "error", err)
		}
		opts = append(opts, probe.WithDetector(fingerprint.NewMatcher(loader, fingerprint.WithLogger(logger))))
	}

	if caps.CaptureScreenshot {
		width, height, err := screenshot.ParseResolution(cfg.ScreenshotResolution)
		if err != nil {
			return nil, err
		}
		capOpts := []screenshot.Option{
			screenshot.WithWindowSize(width, height),
			screenshot.WithUserAgent(cfg.UserAgent),
		}
		if proxyURL != nil {
			capOpts = append(capOpts, screenshot.WithProxy(proxyURL.String()))
		}
		opts = append(opts, probe.WithScreenshotter(screenshot.NewCapturer(cfg.OutputDir, capOpts...)))
	}

	return probe.NewProber(caps, opts...), nil
}

// newRulesLoader returns the technology rule loader configured by cfg.
func newRulesLoader(cfg *config.Config, logger *slog.Logger) *rules.Loader {
	opts := []rules.LoaderOption{rules.WithLoaderLogger(logger)}
	if cfg.RulesURL != "" {
		opts = append(opts, rules.WithSourceURL(cfg.RulesURL))
	}
	return rules.NewLoader(cfg.RulesCachePath, opts...)
}

// saveToDatabase stores batch in results.db inside dir.
func saveToDatabase(ctx context.Context, dir, runID string, batch *pipeline.BatchResult, logger *slog.Logger) error {
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// The batch is already complete; store it even after an interrupt.
	if err := db.SaveBatch(context.WithoutCancel(ctx), runID, batch); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	logger.Info("results stored", "db", db.Path(), "run", runID)
	return nil
}

// logSummary logs the outcome counts of a finished batch.
func logSummary(logger *slog.Logger, s metrics.Summary, batch *pipeline.BatchResult) {
	var elapsed time.Duration
	if batch != nil {
		elapsed = batch.Elapsed.Round(time.Millisecond)
	}
	logger.Info("probing finished",
		"alive", s.Success,
		"dead", s.Failures,
		"elapsed", elapsed,
	)
	for _, kind := range s.Kinds() {
		logger.Debug("failures", "kind", kind, "count", s.ByKind[kind])
	}
	for _, kind := range s.WarningKinds() {
		logger.Debug("warnings", "kind", kind, "count", s.Warnings[kind])
	}
}

// msToDuration converts an operator supplied millisecond count.
func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
