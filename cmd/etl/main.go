// Command etl ingests clinical vocabulary datasets into the term store and
// exports the newline-delimited whitelist files consumed by the
// de-identification engine's knowledge base.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/clinsafe/deid/internal/config"
	"github.com/clinsafe/deid/internal/etl"
	"github.com/clinsafe/deid/internal/logger"
	"github.com/clinsafe/deid/internal/termstore"
)

func main() {
	var (
		configPath = flag.String("config", "configs/default.yaml", "Configuration file path")
		inputFile  = flag.String("input", "", "Input dataset file (CSV, Parquet, or JSON)")
		batchSize  = flag.Int("batch-size", 1000, "Batch size for processing")
		workers    = flag.Int("workers", 4, "Concurrent insert workers")
		exportPath = flag.String("export", "", "Export clinical whitelist to this file and exit")
		exportKind = flag.String("export-kind", "clinical", "Kind of terms to export (clinical or common_word)")
		showStats  = flag.Bool("stats", false, "Show term store statistics and exit")
	)
	flag.Parse()

	if *inputFile == "" && *exportPath == "" && !*showStats {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input drug_names.csv --batch-size 500\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input snomed_conditions.parquet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --export data/clinical_whitelist.txt\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --stats\n", os.Args[0])
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting vocabulary ETL",
		zap.String("version", "0.1.0"),
		zap.String("config", *configPath))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling operations...")
		cancel()
	}()

	// Initialize term store
	store, err := termstore.NewStore(cfg.Database, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize term store", zap.Error(err))
	}
	defer store.Close()

	switch {
	case *showStats:
		stats, err := store.GetStats(ctx)
		if err != nil {
			log.Fatal("Failed to get stats", zap.Error(err))
		}
		log.Info("Term store statistics",
			zap.Int64("total_terms", stats.TotalTerms),
			zap.Int64("clinical_terms", stats.ClinicalTerms),
			zap.Int64("common_words", stats.CommonWords))
	case *exportPath != "":
		if err := exportTerms(ctx, store, *exportPath, *exportKind, log); err != nil {
			log.Fatal("Export failed", zap.Error(err))
		}
	default:
		etlConfig := cfg.ETL
		etlConfig.BatchSize = *batchSize
		etlConfig.Workers = *workers

		pipeline := etl.NewPipeline(store, etlConfig, log.Logger)
		result, err := pipeline.ProcessFile(ctx, *inputFile)
		if err != nil {
			log.Fatal("ETL processing failed", zap.Error(err))
		}
		log.Info("Dataset processed",
			zap.Int64("total_records", result.TotalRecords),
			zap.Int64("processed_ok", result.ProcessedOK),
			zap.Int64("duplicates", result.Duplicates),
			zap.Duration("duration", result.Duration))
	}

	log.Info("Vocabulary ETL completed successfully")
}

// exportTerms writes terms of the requested kind to a whitelist file.
func exportTerms(ctx context.Context, store *termstore.Store, path, kind string, log *logger.Logger) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	count, err := store.ExportTerms(ctx, termstore.Kind(kind), file)
	if err != nil {
		return err
	}

	log.Info("Whitelist exported",
		zap.String("path", path),
		zap.String("kind", kind),
		zap.Int64("terms", count))
	return nil
}
