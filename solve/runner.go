// Package solve runs the clingo executable and exposes its answer sets as
// a core.Source. It is the only package that starts processes.
package solve

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/snow-ghost/asp/core"
	"github.com/snow-ghost/asp/parse"
	"github.com/snow-ghost/asp/pkg/cache"
	"github.com/snow-ghost/asp/pkg/limiter"
)

var (
	// ErrEmptyRequest is returned when a request names neither a program nor files.
	ErrEmptyRequest = errors.New("no program to solve")
	// ErrSyntax is wrapped by exit errors of programs clingo could not parse or ground.
	ErrSyntax = errors.New("clingo rejected the program")
)

// clingo exit codes. Interrupt, sat and exhaust are bits that combine:
// 30 is sat and exhausted, 20 alone is unsatisfiable, 11 is sat but interrupted.
const (
	exitInterrupt = 1
	exitSat       = 10
	exitExhaust   = 20
	exitSyntax    = 65
)

// ExitError reports an unsuccessful clingo exit.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	if msg == "" {
		return fmt.Sprintf("clingo exited with code %d", e.Code)
	}
	return fmt.Sprintf("clingo exited with code %d: %s", e.Code, msg)
}

func (e *ExitError) Unwrap() error {
	if e.Code == exitSyntax {
		return ErrSyntax
	}
	return nil
}

func successfulExit(code int) bool {
	switch code &^ exitInterrupt {
	case 0, exitSat, exitExhaust, exitSat | exitExhaust:
		return true
	}
	return false
}

// RunObserver is notified when a run ends.
type RunObserver interface {
	ObserveRun(status string, answerSets int, elapsed time.Duration)
}

type nopRunObserver struct{}

func (nopRunObserver) ObserveRun(string, int, time.Duration) {}

// Request describes one solver invocation.
type Request struct {
	Program string   // inline program, fed on stdin
	Files   []string // program files
	Args    []string // extra clingo arguments for this run
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTracer sets the tracer used for run spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithRunObserver registers an observer of finished runs.
func WithRunObserver(o RunObserver) Option {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithGuard replaces the default rate limiter and circuit breaker.
func WithGuard(g *limiter.Guard) Option {
	return func(r *Runner) {
		if g != nil {
			r.guard = g
		}
	}
}

// WithCache memoises the answer sets returned by SolveAll.
func WithCache(c *cache.CacheManager) Option {
	return func(r *Runner) { r.cache = c }
}

// Runner starts clingo processes.
type Runner struct {
	config   *Config
	guard    *limiter.Guard
	logger   *zap.Logger
	tracer   trace.Tracer
	observer RunObserver
	cache    *cache.CacheManager
}

// NewRunner creates a runner. A nil config is loaded from the environment.
func NewRunner(config *Config, opts ...Option) *Runner {
	if config == nil {
		config = LoadConfig()
	}
	guardConfig := limiter.DefaultConfig("clingo")
	guardConfig.MaxRate = config.MaxRate

	r := &Runner{
		config:   config,
		guard:    limiter.NewGuard(guardConfig),
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("github.com/snow-ghost/asp/solve"),
		observer: nopRunObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Args assembles the command line of a request.
func (r *Runner) Args(req Request) []string {
	args := append([]string{}, r.config.ExtraArgs...)
	args = append(args, "--models="+strconv.Itoa(r.config.Models))
	args = append(args, req.Args...)
	args = append(args, req.Files...)
	if req.Program != "" {
		args = append(args, "-")
	}
	return args
}

// Solve starts clingo on req. The returned Run must be closed.
func (r *Runner) Solve(ctx context.Context, req Request) (*Run, error) {
	if req.Program == "" && len(req.Files) == 0 {
		return nil, ErrEmptyRequest
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if r.config.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	runCtx, span := r.tracer.Start(runCtx, "clingo.solve", trace.WithAttributes(
		attribute.String("clingo.binary", r.config.Binary),
		attribute.Int("clingo.models", r.config.Models),
		attribute.Int("clingo.files", len(req.Files)),
	))

	args := r.Args(req)
	run := &Run{runner: r, ctx: runCtx, cancel: cancel, span: span, started: time.Now()}
	var stderr io.Reader

	err := r.guard.Execute(runCtx, func(context.Context) error {
		cmd := exec.CommandContext(runCtx, r.config.Binary, args...)
		if req.Program != "" {
			cmd.Stdin = strings.NewReader(req.Program)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return err
		}
		errPipe, err := cmd.StderrPipe()
		if err != nil {
			return err
		}
		if err := cmd.Start(); err != nil {
			if errors.Is(err, syscall.ETXTBSY) {
				return limiter.Retryable(err)
			}
			return err
		}
		run.cmd = cmd
		run.reader = parse.NewReader(stdout, r.readerOptions()...)
		stderr = errPipe
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "start failed")
		span.End()
		cancel()
		r.observer.ObserveRun("start_failed", 0, time.Since(run.started))
		return nil, fmt.Errorf("failed to start %s: %w", r.config.Binary, err)
	}

	r.logger.Debug("clingo started",
		zap.String("binary", r.config.Binary),
		zap.Strings("args", args),
		zap.Int("pid", run.cmd.Process.Pid))

	run.group.Go(func() error {
		_, err := io.Copy(&run.stderr, stderr)
		return err
	})
	return run, nil
}

func (r *Runner) readerOptions() []parse.Option {
	opts := []parse.Option{
		parse.WithCacheSize(r.config.CacheSize),
		parse.WithLogger(r.logger),
	}
	if r.config.IntsAsSymbols {
		opts = append(opts, parse.WithIntsAsSymbols())
	}
	return opts
}

// SolveAll runs req to completion and returns all of its answer sets.
// With a cache, identical requests share one run while the entry is fresh.
func (r *Runner) SolveAll(ctx context.Context, req Request) ([]core.Model, error) {
	collect := func() ([]core.Model, error) {
		run, err := r.Solve(ctx, req)
		if err != nil {
			return nil, err
		}
		var models []core.Model
		for {
			m, err := run.Next(ctx)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				_ = run.Close()
				return nil, err
			}
			models = append(models, m)
		}
		if err := run.Close(); err != nil {
			return nil, err
		}
		return models, nil
	}
	if r.cache == nil {
		return collect()
	}

	key, err := r.cacheRequest(req)
	if err != nil {
		return nil, err
	}
	return r.cache.ExecuteWithCache(ctx, key, collect)
}

// cacheRequest identifies req by its command line and the content of its files.
func (r *Runner) cacheRequest(req Request) (cache.CacheRequest, error) {
	inputs := make([]string, len(req.Files))
	for i, file := range req.Files {
		data, err := os.ReadFile(file)
		if err != nil {
			return cache.CacheRequest{}, fmt.Errorf("failed to read %s: %w", file, err)
		}
		inputs[i] = fmt.Sprintf("%x", sha256.Sum256(data))
	}
	return cache.CacheRequest{
		Binary:  r.config.Binary,
		Args:    r.Args(req),
		Program: req.Program,
		Inputs:  inputs,
	}, nil
}

// Version returns the first line printed by `clingo --version`.
func (r *Runner) Version(ctx context.Context) (string, error) {
	var out []byte
	err := r.guard.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = exec.CommandContext(ctx, r.config.Binary, "--version").Output()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to query %s version: %w", r.config.Binary, err)
	}
	sc := bufio.NewScanner(bytes.NewReader(out))
	if sc.Scan() {
		return strings.TrimSpace(sc.Text()), nil
	}
	return "", fmt.Errorf("empty version output from %s", r.config.Binary)
}

// Run is a running solver process. It is a core.Source of its answer sets.
type Run struct {
	runner  *Runner
	cmd     *exec.Cmd
	reader  *parse.Reader
	group   errgroup.Group
	stderr  bytes.Buffer
	ctx     context.Context
	cancel  context.CancelFunc
	span    trace.Span
	started time.Time

	models    int
	exhausted bool
	closed    bool
	closeErr  error
}

var _ core.Source = (*Run)(nil)

// Next returns the next answer set printed by the solver.
func (run *Run) Next(ctx context.Context) (core.Model, error) {
	m, err := run.reader.Next(ctx)
	if errors.Is(err, io.EOF) {
		run.exhausted = true
	}
	if err == nil {
		run.models++
	}
	return m, err
}

// Models returns the number of answer sets read so far.
func (run *Run) Models() int { return run.models }

// Close stops the process if its output was not fully read, waits for it,
// and reports an unsuccessful exit. Closing twice returns the first result.
func (run *Run) Close() error {
	if run.closed {
		return run.closeErr
	}
	run.closed = true
	defer run.span.End()

	stoppedEarly := !run.exhausted
	if stoppedEarly {
		run.cancel()
	}
	_ = run.group.Wait()
	waitErr := run.cmd.Wait()
	ctxErr := run.ctx.Err()
	run.cancel()

	status := "ok"
	switch {
	case waitErr != nil && errors.Is(ctxErr, context.DeadlineExceeded):
		status = "timeout"
		run.closeErr = fmt.Errorf("clingo run: %w", context.DeadlineExceeded)
	case stoppedEarly:
		status = "cancelled"
	case waitErr != nil:
		var ee *exec.ExitError
		if errors.As(waitErr, &ee) && successfulExit(ee.ExitCode()) {
			break
		}
		status = "error"
		code := -1
		if ee != nil {
			code = ee.ExitCode()
		}
		run.closeErr = &ExitError{Code: code, Stderr: run.stderr.String()}
	}

	run.span.SetAttributes(
		attribute.Int("clingo.answer_sets", run.models),
		attribute.String("clingo.status", status),
	)
	if run.closeErr != nil {
		run.span.RecordError(run.closeErr)
		run.span.SetStatus(codes.Error, status)
	}
	run.runner.observer.ObserveRun(status, run.models, time.Since(run.started))
	run.runner.logger.Debug("clingo finished",
		zap.String("status", status),
		zap.Int("answer_sets", run.models),
		zap.Error(run.closeErr))
	return run.closeErr
}

// Stderr returns what the solver printed on stderr; complete after Close.
func (run *Run) Stderr() string { return run.stderr.String() }
