// Package pipeline drives a conversion request from validation through
// adapter dispatch to a deliverable result, guaranteeing that transient
// artifacts never outlive the request.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/filewarp/filewarp/internal/cleanup"
	"github.com/filewarp/filewarp/internal/convert"
	"github.com/filewarp/filewarp/internal/format"
	"github.com/filewarp/filewarp/internal/history"
	"github.com/filewarp/filewarp/internal/util"
)

// Request describes one uploaded file awaiting conversion. The input file
// is owned by the request; the orchestrator guarantees it is cleaned up
// no matter how the request ends.
type Request struct {
	ID           string
	InputPath    string
	OriginalName string
	Size         int64
	Target       string
	Overrides    format.Options
}

// Metadata is the result summary echoed to the client.
type Metadata struct {
	OriginalSize     int64  `json:"originalSize"`
	ConvertedSize    int64  `json:"convertedSize"`
	ProcessingTime   int64  `json:"processingTime"` // milliseconds
	Format           string `json:"format"`
	CompressionRatio int    `json:"compressionRatio"`
	Quality          int    `json:"quality"`
}

// Result is a completed conversion ready for delivery. CleanupPaths are
// deleted together with the output once the download stream closes.
type Result struct {
	OutputPath   string
	DownloadName string
	Metadata     Metadata
	CleanupPaths []string
}

// BatchItem is the per-file entry of a batch report.
type BatchItem struct {
	Filename      string `json:"filename"`
	Success       bool   `json:"success"`
	ConvertedName string `json:"convertedName,omitempty"`
	DownloadPath  string `json:"downloadPath,omitempty"`
	Error         string `json:"error,omitempty"`
}

// BatchReport aggregates a batch conversion. CleanupPaths hold every
// resolved temp file; the caller fires them after the response is sent so
// response latency is not coupled to filesystem I/O.
type BatchReport struct {
	Results      []BatchItem
	TotalFiles   int
	SuccessCount int
	CleanupPaths []string
}

type Orchestrator struct {
	catalog  *format.Catalog
	registry *convert.Registry
	cleaner  *cleanup.Cleaner
	store    *history.Store

	outputDir string
	timeout   time.Duration
}

func New(catalog *format.Catalog, registry *convert.Registry, cleaner *cleanup.Cleaner, store *history.Store, outputDir string, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		catalog:   catalog,
		registry:  registry,
		cleaner:   cleaner,
		store:     store,
		outputDir: outputDir,
		timeout:   timeout,
	}
}

// ConvertFile runs one request through the full state machine. On failure
// the upload and any partial output are removed before the error returns.
func (o *Orchestrator) ConvertFile(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	// Received -> Validated
	if req.Target == "" {
		o.cleaner.CleanAndWait(req.InputPath)
		return nil, convert.Errf(convert.KindBadRequest, "Target format is required")
	}
	if _, err := os.Stat(req.InputPath); err != nil {
		return nil, convert.Errf(convert.KindBadRequest, "Uploaded file is not readable")
	}

	sourceExt := util.Ext(req.OriginalName)
	target := format.Normalize(req.Target)

	decision := o.catalog.Validate(sourceExt, target)
	if !decision.Allowed {
		o.cleaner.CleanAndWait(req.InputPath)
		kind := convert.KindUnsupportedConversion
		if decision.Reason == "Unsupported format" {
			kind = convert.KindUnsupportedFormat
		}
		o.record(req, sourceExt, target, start, 0, decision.Reason)
		return nil, convert.Errf(kind, "%s", decision.Reason)
	}

	// Validated -> Dispatched
	adapter, err := o.registry.Select(sourceExt, target)
	if err != nil {
		o.cleaner.CleanAndWait(req.InputPath)
		o.record(req, sourceExt, target, start, 0, err.Error())
		return nil, err
	}

	downloadName := fmt.Sprintf("%s-converted.%s", util.BaseName(req.OriginalName), target)
	outputPath := filepath.Join(o.outputDir, util.UniqueName(downloadName))

	log.Printf("starting conversion: %s -> %s (adapter=%s)", req.OriginalName, target, adapter.Name())

	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	outcome, err := adapter.Convert(cctx, req.InputPath, outputPath, target, req.Overrides)
	cancel()

	// Dispatched -> Failed
	if err != nil {
		o.cleaner.CleanAndWait(req.InputPath, outputPath)
		if convert.KindOf(err) == convert.KindTimeout || cctx.Err() == context.DeadlineExceeded {
			err = convert.Errf(convert.KindTimeout, "Conversion timed out")
		}
		o.record(req, sourceExt, target, start, 0, err.Error())
		return nil, err
	}

	// Dispatched -> Completed
	elapsed := time.Since(start)
	meta := Metadata{
		OriginalSize:     req.Size,
		ConvertedSize:    outcome.OutputSize,
		ProcessingTime:   elapsed.Milliseconds(),
		Format:           target,
		CompressionRatio: compressionRatio(req.Size, outcome.OutputSize),
		Quality:          qualityOf(outcome.Options, req.Overrides),
	}

	log.Printf("conversion completed in %dms: %s -> %s (%d -> %d bytes, %d%%)",
		meta.ProcessingTime, req.OriginalName, downloadName,
		meta.OriginalSize, meta.ConvertedSize, meta.CompressionRatio)

	o.record(req, sourceExt, target, start, outcome.OutputSize, "")

	return &Result{
		OutputPath:   outputPath,
		DownloadName: downloadName,
		Metadata:     meta,
		CleanupPaths: []string{req.InputPath},
	}, nil
}

// ConvertBatch applies the per-file state machine independently to each
// request; one file's failure never aborts its siblings. All temp-file
// cleanup is deferred to the returned report so the caller can run it
// after the response is sent.
func (o *Orchestrator) ConvertBatch(ctx context.Context, reqs []*Request) *BatchReport {
	report := &BatchReport{
		Results:    make([]BatchItem, len(reqs)),
		TotalFiles: len(reqs),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req *Request) {
			defer wg.Done()
			item := o.convertBatchItem(ctx, req, &mu, report)
			report.Results[i] = item
		}(i, req)
	}
	wg.Wait()

	for _, item := range report.Results {
		if item.Success {
			report.SuccessCount++
		}
	}
	return report
}

func (o *Orchestrator) convertBatchItem(ctx context.Context, req *Request, mu *sync.Mutex, report *BatchReport) BatchItem {
	start := time.Now()
	sourceExt := util.Ext(req.OriginalName)
	target := format.Normalize(req.Target)

	addCleanup := func(paths ...string) {
		mu.Lock()
		report.CleanupPaths = append(report.CleanupPaths, paths...)
		mu.Unlock()
	}

	decision := o.catalog.Validate(sourceExt, target)
	if !decision.Allowed {
		addCleanup(req.InputPath)
		o.record(req, sourceExt, target, start, 0, decision.Reason)
		return BatchItem{Filename: req.OriginalName, Success: false, Error: decision.Reason}
	}

	adapter, err := o.registry.Select(sourceExt, target)
	if err != nil {
		addCleanup(req.InputPath)
		o.record(req, sourceExt, target, start, 0, err.Error())
		return BatchItem{Filename: req.OriginalName, Success: false, Error: reasonOf(err)}
	}

	downloadName := fmt.Sprintf("%s-converted.%s", util.BaseName(req.OriginalName), target)
	outputPath := filepath.Join(o.outputDir, util.UniqueName(downloadName))

	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	outcome, err := adapter.Convert(cctx, req.InputPath, outputPath, target, req.Overrides)
	cancel()

	if err != nil {
		addCleanup(req.InputPath, outputPath)
		o.record(req, sourceExt, target, start, 0, err.Error())
		return BatchItem{Filename: req.OriginalName, Success: false, Error: reasonOf(err)}
	}

	// Output survives for a later GET /download; only the upload is
	// scheduled for cleanup.
	addCleanup(req.InputPath)
	o.record(req, sourceExt, target, start, outcome.OutputSize, "")
	return BatchItem{
		Filename:      req.OriginalName,
		Success:       true,
		ConvertedName: downloadName,
		DownloadPath:  "/download/" + filepath.Base(outputPath),
	}
}

// Cleaner exposes the orchestrator's cleanup service for deferred batch
// cleanup and delivery teardown.
func (o *Orchestrator) Cleaner() *cleanup.Cleaner { return o.cleaner }

func (o *Orchestrator) record(req *Request, sourceExt, target string, start time.Time, outSize int64, errMsg string) {
	status := "success"
	if errMsg != "" {
		status = "failed"
	}
	rec := &history.ConversionRecord{
		RequestID:     req.ID,
		OriginalName:  req.OriginalName,
		SourceFormat:  sourceExt,
		TargetFormat:  target,
		Status:        status,
		Error:         errMsg,
		OriginalSize:  req.Size,
		ConvertedSize: outSize,
		DurationMs:    time.Since(start).Milliseconds(),
		CreatedAt:     time.Now(),
	}
	if err := o.store.Record(rec); err != nil {
		log.Printf("history record failed: %v", err)
	}
}

func compressionRatio(inSize, outSize int64) int {
	if inSize <= 0 {
		return 0
	}
	return int(math.Round((1 - float64(outSize)/float64(inSize)) * 100))
}

func qualityOf(merged, overrides format.Options) int {
	if merged.Quality > 0 {
		return merged.Quality
	}
	if overrides.Quality > 0 {
		return overrides.Quality
	}
	return 80
}

func reasonOf(err error) string {
	var ce *convert.Error
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return err.Error()
}
