package internal

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gnolang/tverify/internal/assertion"
	"github.com/gnolang/tverify/internal/scope"
	"github.com/gnolang/tverify/internal/smt"
	"github.com/gnolang/tverify/internal/theorem"
	"github.com/gnolang/tverify/internal/translate"
	tt "github.com/gnolang/tverify/internal/types"
)

// Options configures an Engine.
type Options struct {
	Transport theorem.Transport
	Logger    *zap.Logger
	// Concurrency bounds the queries in flight for one file. Zero means
	// no bound.
	Concurrency int
	// QueryTimeout bounds a single solver query. Zero means no bound.
	QueryTimeout time.Duration
	Normalize    bool
}

// Engine verifies files: it extracts their proof obligations and has the
// solver decide each of them.
type Engine struct {
	transport    theorem.Transport
	logger       *zap.Logger
	limit        int
	normalize    bool
	ignoredPaths []string
}

var errNoTransport = errors.New("no solver transport configured")

// NewEngine creates a new verification engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Transport == nil {
		return nil, errNoTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := opts.Transport
	if opts.QueryTimeout > 0 {
		transport = &timeoutTransport{next: transport, timeout: opts.QueryTimeout}
	}
	return &Engine{
		transport: transport,
		logger:    logger,
		limit:     opts.Concurrency,
		normalize: opts.Normalize,
	}, nil
}

// Unit is a parsed file together with its scope tree and theorems.
type Unit struct {
	Filename string
	Fset     *token.FileSet
	File     *ast.File
	Root     *scope.Node
	Theorems []*theorem.Theorem
	// Config builds theorems for a subtree of Root.
	Config theorem.Config
	// Diagnostics are the annotations that could not be extracted.
	Diagnostics []tt.Report
}

// Prepare parses source and extracts its theorems without solving them.
func (e *Engine) Prepare(filename string, source []byte) (*Unit, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, source, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", displayName(filename), err)
	}

	root, errs := scope.Build(fset, file)
	unit := &Unit{
		Filename: filename,
		Fset:     fset,
		File:     file,
		Root:     root,
	}
	for _, err := range errs {
		unit.Diagnostics = append(unit.Diagnostics, diagnostic(filename, err))
	}

	unit.Config = theorem.Config{
		Translator: translate.New(fset, file, translate.Options{
			Normalize:      e.normalize,
			LoopInvariants: root.LoopInvariants(),
		}),
		Transport:  e.transport,
		Preamble:   smt.Preamble,
	}
	unit.Theorems = root.Theorems(unit.Config)
	return unit, nil
}

func diagnostic(filename string, err error) tt.Report {
	r := tt.Report{
		Filename: filename,
		Label:    "malformed annotation",
		Status:   tt.StatusMalformed,
		Message:  err.Error(),
	}
	var malformed *assertion.MalformedError
	if errors.As(err, &malformed) {
		r.Kind = malformed.Kind.String()
		r.Start = malformed.Pos
		r.Message = malformed.Msg
	}
	return r
}

// Run verifies the given file and returns one report per obligation.
func (e *Engine) Run(ctx context.Context, filename string) ([]tt.Report, error) {
	if e.isIgnored(filename) {
		e.logger.Debug("skipping ignored file", zap.String("file", filename))
		return nil, nil
	}
	source, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", filename, err)
	}
	return e.RunSource(ctx, filename, source)
}

// RunSource verifies source as if read from filename.
func (e *Engine) RunSource(ctx context.Context, filename string, source []byte) ([]tt.Report, error) {
	unit, err := e.Prepare(filename, source)
	if err != nil {
		return nil, err
	}
	for _, d := range unit.Diagnostics {
		e.logger.Warn("malformed annotation", zap.String("file", displayName(filename)), zap.String("error", d.Message))
	}
	return e.Solve(ctx, unit), nil
}

// Solve decides every theorem of unit. A theorem that fails never stops
// the others; its failure is recorded in its report.
func (e *Engine) Solve(ctx context.Context, unit *Unit) []tt.Report {
	e.logger.Debug("solving",
		zap.String("file", displayName(unit.Filename)),
		zap.Int("obligations", len(unit.Theorems)))

	start := time.Now()
	errs := theorem.SolveAll(ctx, unit.Theorems, e.limit)

	reports := make([]tt.Report, 0, len(unit.Diagnostics)+len(unit.Theorems))
	reports = append(reports, unit.Diagnostics...)
	for i, th := range unit.Theorems {
		r := e.report(unit, th, errs[i])
		e.logger.Debug("obligation decided",
			zap.String("label", r.Label),
			zap.Stringer("status", r.Status))
		reports = append(reports, r)
	}
	e.logger.Info("verified",
		zap.String("file", displayName(unit.Filename)),
		zap.Int("obligations", len(unit.Theorems)),
		zap.Duration("elapsed", time.Since(start)))
	return reports
}

func (e *Engine) report(unit *Unit, th *theorem.Theorem, err error) tt.Report {
	spec := th.Spec()
	r := tt.Report{
		Filename: unit.Filename,
		Label:    th.Description(),
		Kind:     spec.Kind.String(),
		Start:    unit.Fset.Position(spec.Pos),
	}

	if err != nil {
		var unsupported *translate.UnsupportedError
		if errors.As(err, &unsupported) {
			r.Status = tt.StatusUnsupported
		} else {
			r.Status = tt.StatusError
		}
		r.Message = err.Error()
		return r
	}

	verdict, err := th.Verdict()
	if err != nil {
		r.Status = tt.StatusError
		r.Message = err.Error()
		return r
	}
	switch verdict {
	case smt.Proved:
		r.Status = tt.StatusProved
	case smt.Refuted:
		r.Status = tt.StatusRefuted
		model, err := th.Model()
		if err != nil {
			r.Message = "counterexample unavailable: " + err.Error()
			return r
		}
		r.Model = model
	default:
		r.Status = tt.StatusError
		r.Message = "no solver response"
	}
	return r
}

// IgnorePath excludes files matching pattern (a filepath.Match pattern
// or a directory prefix) from Run.
func (e *Engine) IgnorePath(pattern string) {
	e.ignoredPaths = append(e.ignoredPaths, filepath.Clean(pattern))
}

func (e *Engine) isIgnored(path string) bool {
	path = filepath.Clean(path)
	for _, pattern := range e.ignoredPaths {
		if ok, _ := filepath.Match(pattern, path); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
			return true
		}
		if strings.HasPrefix(path, pattern+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func displayName(filename string) string {
	if filename == "" {
		return "<source>"
	}
	return filename
}

// timeoutTransport bounds every query with its own deadline.
type timeoutTransport struct {
	next    theorem.Transport
	timeout time.Duration
}

func (t *timeoutTransport) Submit(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Submit(ctx, query)
}

// SourceCode stores the content of a source code file.
type SourceCode struct {
	Lines []string
}

// ReadSourceCode reads the content of a file and returns it as a `SourceCode` struct.
func ReadSourceCode(filename string) (*SourceCode, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(content), "\n")
	return &SourceCode{Lines: lines}, nil
}
