package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/tverify/formatter"
	"github.com/gnolang/tverify/internal"
	tt "github.com/gnolang/tverify/internal/types"
	"github.com/gnolang/tverify/verify"
)

var (
	ignorePaths string
	jsonOutput  bool
	outPath     string
	showProved  bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify [paths...]",
	Short: "Prove the annotations of the given files",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		engine, err := newEngine(ctx)
		if err != nil {
			logger.Fatal("Failed to initialize verification engine", zap.Error(err))
		}

		if ignorePaths != "" {
			for _, path := range strings.Split(ignorePaths, ",") {
				engine.IgnorePath(strings.TrimSpace(path))
			}
		}

		opts := printOptions{json: jsonOutput, output: outPath, proved: showProved}
		os.Exit(runVerifyProcess(ctx, logger, engine, args, os.Stdout, opts))
	},
}

func init() {
	verifyCmd.Flags().StringVar(&ignorePaths, "ignore-paths", "", "Comma-separated list of paths to ignore")
	verifyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output reports in JSON format")
	verifyCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
	verifyCmd.Flags().BoolVar(&showProved, "proved", false, "Also print the obligations that were proved")
}

// newEngine loads the configuration and checks the solver before building
// the engine. An outdated solver is only warned about.
func newEngine(ctx context.Context) (*internal.Engine, error) {
	config, err := verify.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := verify.CheckSolver(ctx, config); err != nil {
		logger.Warn("Solver check failed", zap.Error(err))
	}
	return verify.New(config, logger)
}

type printOptions struct {
	json   bool
	output string
	proved bool
}

// runVerifyProcess verifies paths and prints the reports. It returns the
// process exit code: 1 when any obligation was not proved.
func runVerifyProcess(ctx context.Context, logger *zap.Logger, engine verify.VerifyEngine, paths []string, w io.Writer, opts printOptions) int {
	reports, err := verify.ProcessFiles(ctx, logger, engine, paths, verify.ProcessFile)
	if err != nil {
		logger.Error("Error processing files", zap.Error(err))
		return 1
	}

	printReports(logger, w, reports, opts)

	for _, r := range reports {
		if r.Status.Failed() {
			return 1
		}
	}
	return 0
}

func printReports(logger *zap.Logger, w io.Writer, reports []tt.Report, opts printOptions) {
	reportsByFile := make(map[string][]tt.Report)
	for _, r := range reports {
		if r.Status == tt.StatusProved && !opts.proved && !opts.json {
			continue
		}
		reportsByFile[r.Filename] = append(reportsByFile[r.Filename], r)
	}

	if opts.json {
		writeJSON(logger, w, reportsByFile, opts.output)
		return
	}

	sortedFiles := make([]string, 0, len(reportsByFile))
	for filename := range reportsByFile {
		sortedFiles = append(sortedFiles, filename)
	}
	sort.Strings(sortedFiles)

	for _, filename := range sortedFiles {
		sourceCode, err := internal.ReadSourceCode(filename)
		if err != nil {
			logger.Warn("Error reading source file", zap.String("file", filename), zap.Error(err))
		}
		fmt.Fprint(w, formatter.GenerateFormattedReport(reportsByFile[filename], sourceCode))
	}
	fmt.Fprintln(w, formatter.Summary(reports))
}

func writeJSON(logger *zap.Logger, w io.Writer, reportsByFile map[string][]tt.Report, path string) {
	d, err := json.Marshal(reportsByFile)
	if err != nil {
		logger.Error("Error marshalling reports to JSON", zap.Error(err))
		return
	}
	if path == "" {
		fmt.Fprintln(w, string(d))
		return
	}
	if err := os.WriteFile(path, d, 0o644); err != nil {
		logger.Error("Error writing JSON output file", zap.Error(err))
	}
}
