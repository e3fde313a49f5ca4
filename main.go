package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nfowide/config"
	"nfowide/internal/metadata"
	"nfowide/internal/metrics"
	"nfowide/logger"
	"nfowide/processor"
	"nfowide/reader"
	"nfowide/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolvePath(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Nfowide.Name,
		"version": cfg.Nfowide.Version,
		"env":     config.AppEnvironment(),
		"symbols": len(cfg.Symbols.List),
	}).Info("starting nfowide")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received; no new symbols will start")
			cancel()
		case <-ctx.Done():
		}
	}()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}
	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(ctx, cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace, cfg.Metrics.CloudWatch.Dashboard)
	}
	if cfg.Metrics.ListenAddr != "" {
		metrics.Serve(cfg.Metrics.ListenAddr)
	}

	start := time.Now()
	rows, err := reader.LoadMaster(ctx, cfg.Input.Path)
	if err != nil {
		log.WithError(err).Error("failed to load master file")
		os.Exit(1)
	}
	logger.AddRowsLoaded(len(rows))
	metrics.AddRowsLoaded(len(rows))

	tradeDate, _ := cfg.Input.ParseTradeDate()
	if tradeDate.IsZero() {
		if tradeDate, err = reader.TradeDate(rows); err != nil {
			log.WithError(err).Error("failed to determine trade date")
			os.Exit(1)
		}
	}

	opts := processor.Options{
		TradeDate:     tradeDate,
		OptionBuckets: cfg.Pivot.Buckets(),
		FillMissing:   cfg.Template.FillMissing,
		MaxWorkers:    cfg.Processor.MaxWorkers,
	}
	if opts.Policy, err = processor.ParseDuplicatePolicy(cfg.Pivot.DuplicatePolicy); err != nil {
		log.WithError(err).Error("invalid duplicate policy")
		os.Exit(1)
	}
	if cfg.Template.Path != "" {
		if opts.Template, err = reader.LoadTemplate(cfg.Template.Path); err != nil {
			log.WithError(err).Error("failed to load template")
			os.Exit(1)
		}
		log.WithFields(logger.Fields{
			"template": cfg.Template.Path,
			"columns":  len(opts.Template.Fields),
		}).Info("template loaded")
	}

	// Uploads still need a local staging area for the files and manifest.
	if cfg.Writer.OutputDir == "" {
		if cfg.Writer.OutputDir, err = os.MkdirTemp("", "nfowide"); err != nil {
			log.WithError(err).Error("failed to create staging directory")
			os.Exit(1)
		}
	}

	catalog := metadata.NewCatalog(cfg.Writer.OutputDir, tradeDate)
	sink, err := writer.NewSink(ctx, cfg, catalog)
	if err != nil {
		log.WithError(err).Error("failed to create sink")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"trade_date":       tradeDate.Format("2006-01-02"),
		"run_id":           catalog.RunID(),
		"duplicate_policy": opts.Policy,
		"max_workers":      opts.MaxWorkers,
	}).Info("all components started successfully")

	pivoter := processor.NewPivoter(rows, opts, sink)
	results := pivoter.Run(ctx, cfg.Symbols.List)

	for _, res := range results {
		catalog.RecordOutcome(res.Symbol, res.Outcome, res.Err)
	}
	if manifest, err := catalog.Commit(); err != nil {
		log.WithError(err).Warn("failed to commit run manifest")
	} else {
		log.WithFields(logger.Fields{"manifest": manifest}).Info("run manifest committed")
	}

	sink.Report()

	tally := processor.Tally(results)
	log.WithFields(logger.Fields{
		"ok":       tally[logger.OutcomeOK],
		"no_data":  tally[logger.OutcomeNoData],
		"failed":   tally[logger.OutcomeFailed],
		"duration": time.Since(start).String(),
	}).Info("batch complete")

	logger.LogReport(context.Background(), log)

	if cfg.Metrics.PushgatewayURL != "" {
		if err := metrics.Push(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			log.WithError(err).Warn("failed to push metrics")
		}
	}

	log.Info("nfowide stopped")
}
