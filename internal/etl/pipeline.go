// Package etl ingests clinical vocabulary datasets (CSV, Parquet, or JSON)
// into the term store, from which the whitelist data files consumed by the
// knowledge base are exported.
package etl

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/clinsafe/deid/internal/termstore"
)

// Pipeline handles ETL operations for vocabulary datasets
type Pipeline struct {
	store  *termstore.Store
	config Config
	logger *zap.Logger
}

// NewPipeline creates a new ETL pipeline
func NewPipeline(store *termstore.Store, config Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:  store,
		config: config,
		logger: logger,
	}
}

// ProcessFile processes a dataset file (CSV, Parquet, or JSON)
func (p *Pipeline) ProcessFile(ctx context.Context, filePath string) (*ProcessingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	p.logger.Info("Starting vocabulary ETL",
		zap.String("file", filePath),
		zap.Int("batch_size", p.config.BatchSize),
		zap.Int("workers", p.config.Workers))

	start := time.Now()
	result := &ProcessingResult{}

	format := DetectFileFormat(filePath)
	p.logger.Info("Detected file format", zap.String("format", string(format)))

	var err error
	switch format {
	case FormatCSV:
		err = p.processCSV(ctx, filePath, result)
	case FormatParquet:
		err = p.processParquet(ctx, filePath, result)
	case FormatJSON:
		err = p.processJSON(ctx, filePath, result)
	default:
		return result, fmt.Errorf("unsupported file format: %s", filePath)
	}
	if err != nil {
		return result, err
	}

	result.Duration = time.Since(start)
	p.logger.Info("Vocabulary ETL completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("processed_ok", result.ProcessedOK),
		zap.Int64("duplicates", result.Duplicates),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// processCSV processes CSV files with a term,kind header.
func (p *Pipeline) processCSV(ctx context.Context, filePath string, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 2 // term, kind

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	p.logger.Info("CSV header detected", zap.Strings("columns", header))

	return p.processBatches(ctx, func() ([]TermRecord, error) {
		var batch []TermRecord
		for len(batch) < p.config.BatchSize {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read CSV record", zap.Error(err))
				continue
			}
			if len(record) != 2 {
				p.logger.Warn("Invalid CSV record length", zap.Int("length", len(record)))
				continue
			}

			termRecord := TermRecord{
				Term: strings.TrimSpace(record[0]),
				Kind: strings.TrimSpace(record[1]),
			}
			if p.validateRecord(termRecord) {
				batch = append(batch, termRecord)
			}
		}
		return batch, nil
	}, result)
}

// processParquet processes Parquet files
func (p *Pipeline) processParquet(ctx context.Context, filePath string, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	return p.processBatches(ctx, func() ([]TermRecord, error) {
		var batch []TermRecord
		for len(batch) < p.config.BatchSize {
			var record TermRecord
			err := reader.Read(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read Parquet record", zap.Error(err))
				continue
			}
			if p.validateRecord(record) {
				batch = append(batch, record)
			}
		}
		return batch, nil
	}, result)
}

// processJSON processes newline-delimited JSON records.
func (p *Pipeline) processJSON(ctx context.Context, filePath string, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)

	return p.processBatches(ctx, func() ([]TermRecord, error) {
		var batch []TermRecord
		for len(batch) < p.config.BatchSize {
			var record TermRecord
			err := decoder.Decode(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read JSON record", zap.Error(err))
				continue
			}
			if p.validateRecord(record) {
				batch = append(batch, record)
			}
		}
		return batch, nil
	}, result)
}

// processBatches reads batches sequentially (file readers are not
// concurrency-safe) and fans them out to a fixed pool of insert workers.
func (p *Pipeline) processBatches(ctx context.Context, readBatch func() ([]TermRecord, error), result *ProcessingResult) error {
	workers := p.config.Workers
	if workers <= 0 {
		workers = 1
	}

	batches := make(chan []TermRecord, workers)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				local := &ProcessingResult{}
				err := p.storeBatch(ctx, batch, local)

				mu.Lock()
				result.TotalRecords += int64(len(batch))
				if err != nil {
					p.logger.Error("Batch processing failed", zap.Error(err))
					result.ProcessedFailed += int64(len(batch))
					result.Errors = append(result.Errors, err.Error())
				} else {
					result.ProcessedOK += local.ProcessedOK
					result.Duplicates += local.Duplicates
					result.DatabaseTime += local.DatabaseTime
					if p.config.ProgressReport > 0 && result.TotalRecords >= int64(p.config.ProgressReport) &&
						(result.TotalRecords-int64(len(batch)))/int64(p.config.ProgressReport) != result.TotalRecords/int64(p.config.ProgressReport) {
						p.logger.Info("ETL progress",
							zap.Int64("records", result.TotalRecords),
							zap.Int64("duplicates", result.Duplicates))
					}
				}
				mu.Unlock()
			}
		}()
	}

	var readErr error
	for readErr == nil {
		select {
		case <-ctx.Done():
			readErr = ctx.Err()
		default:
			batch, err := readBatch()
			if err != nil {
				readErr = fmt.Errorf("failed to read batch: %w", err)
				break
			}
			if len(batch) == 0 {
				close(batches)
				wg.Wait()
				return nil
			}
			select {
			case batches <- batch:
			case <-ctx.Done():
				readErr = ctx.Err()
			}
		}
	}

	close(batches)
	wg.Wait()
	return readErr
}

// storeBatch dedupes a batch in memory and writes it to the term store.
func (p *Pipeline) storeBatch(ctx context.Context, batch []TermRecord, result *ProcessingResult) error {
	seen := make(map[string]struct{}, len(batch))
	terms := make([]*termstore.Term, 0, len(batch))
	for _, record := range batch {
		key := strings.ToLower(record.Term) + "\x00" + record.Kind
		if _, dup := seen[key]; dup {
			result.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		terms = append(terms, &termstore.Term{
			Term:          record.Term,
			Kind:          termstore.Kind(record.Kind),
			SourceDataset: "etl",
		})
	}

	dbStart := time.Now()
	insertResult, err := p.store.BatchInsert(ctx, terms)
	if err != nil {
		return fmt.Errorf("database batch insert failed: %w", err)
	}
	result.DatabaseTime += time.Since(dbStart)
	result.ProcessedOK += insertResult.Inserted
	result.Duplicates += insertResult.Skipped

	return nil
}

// validateRecord checks that a record carries a usable term and kind.
func (p *Pipeline) validateRecord(record TermRecord) bool {
	if !p.config.ValidateData {
		return true
	}

	if strings.TrimSpace(record.Term) == "" {
		p.logger.Debug("Invalid record: empty term")
		return false
	}

	switch termstore.Kind(record.Kind) {
	case termstore.KindClinical, termstore.KindCommonWord:
	default:
		p.logger.Debug("Invalid record: unknown kind", zap.String("kind", record.Kind))
		return false
	}

	if len(record.Term) > 200 {
		p.logger.Debug("Invalid record: term too long", zap.Int("length", len(record.Term)))
		return false
	}

	return true
}
