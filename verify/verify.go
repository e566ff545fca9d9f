// Package verify is the public entry point of tverify: it builds an engine
// from a configuration and runs it over files, directories or sources.
package verify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/gnolang/tverify/internal"
	"github.com/gnolang/tverify/internal/solver"
	"github.com/gnolang/tverify/internal/theorem"
	tt "github.com/gnolang/tverify/internal/types"
	"github.com/gnolang/tverify/scanner"
)

type VerifyEngine interface {
	Run(ctx context.Context, filePath string) ([]tt.Report, error)
	RunSource(ctx context.Context, filename string, source []byte) ([]tt.Report, error)
	IgnorePath(path string)
}

// Processor verifies one file with engine.
type Processor func(ctx context.Context, engine VerifyEngine, path string) ([]tt.Report, error)

// New creates an engine configured by config.
func New(config Config, logger *zap.Logger) (*internal.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport, err := newTransport(config, logger)
	if err != nil {
		return nil, err
	}

	engine, err := internal.NewEngine(internal.Options{
		Transport:    transport,
		Logger:       logger,
		Concurrency:  config.Concurrency,
		QueryTimeout: config.Solver.Timeout,
		Normalize:    config.Normalize,
	})
	if err != nil {
		return nil, err
	}
	for _, path := range config.IgnorePaths {
		engine.IgnorePath(path)
	}
	return engine, nil
}

func newTransport(config Config, logger *zap.Logger) (theorem.Transport, error) {
	var transport theorem.Transport
	if config.Solver.URL != "" {
		transport = solver.NewHTTP(config.Solver.URL, &http.Client{})
	} else {
		transport = solver.NewProcess(config.Solver.Command, logger)
	}

	if config.Cache.Dir == "" {
		return transport, nil
	}
	cache, err := internal.NewCache(config.Cache.Dir)
	if err != nil {
		return nil, err
	}
	cache.SetMaxAge(config.Cache.MaxAge)
	logger.Debug("using response cache", zap.String("dir", config.Cache.Dir), zap.Int("entries", cache.Len()))
	return &internal.CachedTransport{Cache: cache, Next: transport}, nil
}

// CheckSolver verifies that the configured local solver is recent enough.
// A solver server is not checked.
func CheckSolver(ctx context.Context, config Config) error {
	if config.Solver.URL != "" {
		return nil
	}
	_, err := solver.CheckVersion(ctx, config.Solver.Command, config.Solver.Version)
	return err
}

func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	engine VerifyEngine,
	paths []string,
	processor Processor,
) ([]tt.Report, error) {
	var allReports []tt.Report
	for _, path := range paths {
		reports, err := ProcessPath(ctx, logger, engine, path, processor)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			return allReports, err
		}
		allReports = append(allReports, reports...)
	}

	return allReports, nil
}

// ProgressOutput receives the progress bar of directory runs.
var ProgressOutput io.Writer = os.Stderr

// ProcessPath verifies a file, or every source file under a directory with
// one worker per CPU. Reports keep the files' walk order, and a file that
// fails to verify yields one ERROR report. On cancellation the reports
// gathered so far are returned with the context's error.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine VerifyEngine,
	path string,
	processor Processor,
) ([]tt.Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}

	if !info.IsDir() {
		if !hasDesiredExtension(path) {
			return nil, nil
		}
		return processor(ctx, engine, path)
	}

	files, err := sourceFiles(path)
	if err != nil {
		return nil, err
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(ProgressOutput),
		progressbar.OptionSetDescription(path),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	// one slot per file keeps the output order stable
	results := make([][]tt.Report, len(files))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

loop:
	for i, filePath := range files {
		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int, fp string) {
			defer wg.Done()
			defer func() { <-sem }()

			reports, err := processor(ctx, engine, fp)
			if err != nil {
				if logger != nil {
					logger.Error("Error processing file", zap.String("file", fp), zap.Error(err))
				}
				// a file that cannot be verified fails the run like any
				// other obligation
				reports = []tt.Report{{
					Filename: fp,
					Label:    "file not verified",
					Status:   tt.StatusError,
					Message:  err.Error(),
				}}
			}
			results[i] = reports
			_ = bar.Add(1)
		}(i, filePath)
	}
	wg.Wait()
	_ = bar.Finish()

	reports := make([]tt.Report, 0)
	for _, r := range results {
		reports = append(reports, r...)
	}
	return reports, ctx.Err()
}

// sourceFiles lists the source files under root, skipping hidden
// directories and testdata.
func sourceFiles(root string) ([]string, error) {
	return scanner.New(root, sourceExtensions...).Paths()
}

func ProcessFile(ctx context.Context, engine VerifyEngine, filePath string) ([]tt.Report, error) {
	return engine.Run(ctx, filePath)
}

func ProcessSource(ctx context.Context, engine VerifyEngine, source []byte) ([]tt.Report, error) {
	return engine.RunSource(ctx, "", source)
}

var sourceExtensions = []string{".go", ".gno"}

func hasDesiredExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range sourceExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
