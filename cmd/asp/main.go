package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/snow-ghost/asp/answers"
	"github.com/snow-ghost/asp/core"
	"github.com/snow-ghost/asp/decoder"
	"github.com/snow-ghost/asp/parse"
	"github.com/snow-ghost/asp/pkg/limiter"
	"github.com/snow-ghost/asp/pkg/observability"
	"github.com/snow-ghost/asp/pkg/registry"
	"github.com/snow-ghost/asp/pkg/tracing"
	"github.com/snow-ghost/asp/solve"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "asp: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath    string
	program       string
	models        int
	decode        bool
	decoders      string
	intsAsSymbols bool
	showVersion   bool
	metricsAddr   string
	jaeger        string
	logLevel      string
	logFormat     string
	flags         answers.Flags
}

func parseOptions(args []string, reg func(string) (*registry.Registry, error)) (*options, *registry.Registry, []string, error) {
	fs := flag.NewFlagSet("asp", flag.ContinueOnError)
	opts := &options{}

	fs.StringVar(&opts.configPath, "config", "", "Registry file (default asp.yaml, or $ASP_CONFIG)")
	fs.StringVar(&opts.program, "e", "", "Inline program passed to the solver")
	fs.IntVar(&opts.models, "models", -1, "Number of answer sets to compute, 0 for all")
	fs.BoolVar(&opts.decode, "decode", false, "Print decoded objects instead of answer sets")
	fs.StringVar(&opts.decoders, "decoders", "", "Comma separated decoder names to run (default all)")
	fs.BoolVar(&opts.intsAsSymbols, "ints-as-symbols", false, "Keep numbers as symbols")
	fs.BoolVar(&opts.showVersion, "version", false, "Print the solver version and exit")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.StringVar(&opts.jaeger, "jaeger", os.Getenv("JAEGER_ENDPOINT"), "Jaeger collector endpoint")
	fs.StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "Log level: debug, info, warn, error")
	fs.StringVar(&opts.logFormat, "log-format", "json", "Log format: json or console")

	var f answers.Flags
	fs.BoolVar(&f.FirstArgOnly, "first-arg", false, "Keep only the first argument of each atom")
	fs.BoolVar(&f.ByPredicate, "by-predicate", false, "Group atoms by predicate")
	fs.BoolVar(&f.AsObjects, "objects", false, "Wrap atoms into term sets")
	fs.BoolVar(&f.Sorted, "sorted", false, "Sort atoms and groups")
	fs.BoolVar(&f.AsStrings, "strings", false, "Render atoms as text")
	fs.BoolVar(&f.NoArgs, "no-args", false, "Drop atom arguments")
	fs.BoolVar(&f.ByArity, "by-arity", false, "Also group by predicate/arity")
	fs.BoolVar(&f.WithOptimization, "optimization", false, "Include model number and optimization")

	if err := fs.Parse(args); err != nil {
		return nil, nil, nil, err
	}

	r, err := reg(opts.configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	// registry defaults, overridden by flags given on the command line
	opts.flags = answers.Flags{
		FirstArgOnly:     r.Answers.FirstArgOnly,
		ByPredicate:      r.Answers.ByPredicate,
		AsObjects:        r.Answers.AsObjects,
		Sorted:           r.Answers.Sorted,
		AsStrings:        r.Answers.AsStrings,
		NoArgs:           r.Answers.NoArgs,
		ByArity:          r.Answers.ByArity,
		WithOptimization: r.Answers.WithOptimization,
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "first-arg":
			opts.flags.FirstArgOnly = f.FirstArgOnly
		case "by-predicate":
			opts.flags.ByPredicate = f.ByPredicate
		case "objects":
			opts.flags.AsObjects = f.AsObjects
		case "sorted":
			opts.flags.Sorted = f.Sorted
		case "strings":
			opts.flags.AsStrings = f.AsStrings
		case "no-args":
			opts.flags.NoArgs = f.NoArgs
		case "by-arity":
			opts.flags.ByArity = f.ByArity
		case "optimization":
			opts.flags.WithOptimization = f.WithOptimization
		}
	})
	return opts, r, fs.Args(), nil
}

func loadRegistry(path string) (*registry.Registry, error) {
	return registry.NewLoader(path).LoadRegistry()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	opts, reg, files, err := parseOptions(args, loadRegistry)
	if err != nil {
		return err
	}

	solverConfig := solve.LoadConfig().Apply(reg.Solver)
	if opts.models >= 0 {
		solverConfig.Models = opts.models
	}
	solverConfig.IntsAsSymbols = opts.intsAsSymbols

	obs, err := observability.NewManager(observability.Config{
		ServiceName:    "asp",
		ServiceVersion: version,
		Environment:    envOr("ASP_ENV", "local"),
		JaegerEndpoint: opts.jaeger,
		LogLevel:       opts.logLevel,
		LogFormat:      opts.logFormat,
		Binary:         solverConfig.Binary,
	})
	if err != nil {
		return fmt.Errorf("failed to set up observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()
	logger := obs.GetLogger().GetZap()

	if opts.metricsAddr != "" {
		srv := &http.Server{Addr: opts.metricsAddr, Handler: obs.GetMetrics().Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	runner := solve.NewRunner(solverConfig,
		solve.WithLogger(logger),
		solve.WithTracer(obs.GetTracer().Tracer()),
		solve.WithRunObserver(obs),
		solve.WithGuard(limiter.NewGuard(obs.GuardConfig("clingo", solverConfig.MaxRate))))

	if opts.showVersion {
		v, err := runner.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "asp %s (%s)\n", version, v)
		return nil
	}

	var src core.Source
	var solverRun *solve.Run
	if opts.program == "" && len(files) == 0 {
		readerOpts := []parse.Option{parse.WithCacheSize(solverConfig.CacheSize), parse.WithLogger(logger)}
		if opts.intsAsSymbols {
			readerOpts = append(readerOpts, parse.WithIntsAsSymbols())
		}
		src = parse.NewReader(stdin, readerOpts...)
	} else {
		solverRun, err = runner.Solve(ctx, solve.Request{Program: opts.program, Files: files})
		if err != nil {
			return err
		}
		src = solverRun
	}

	enc := json.NewEncoder(stdout)
	if opts.decode {
		err = decodeAnswers(ctx, src, reg, opts.decoders, obs, enc)
	} else {
		err = printAnswers(ctx, src, opts.flags, obs, enc)
	}

	if solverRun != nil {
		if closeErr := solverRun.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}

func printAnswers(ctx context.Context, src core.Source, f answers.Flags, obs *observability.Manager, enc *json.Encoder) error {
	ctx, span := obs.GetTracer().StartAnswersSpan(ctx, flagNames(f))
	defer span.End()

	a := answers.New(src,
		answers.WithLogger(obs.GetLogger().GetZap()),
		answers.WithObserver(obs)).Configure(f)
	for ans, err := range a.All(ctx) {
		if err != nil {
			tracing.RecordSpanError(span, err)
			return err
		}
		if err := enc.Encode(ans); err != nil {
			return err
		}
	}
	tracing.RecordSpanSuccess(span)
	return nil
}

// decoded is the output line of one decoded object
type decoded struct {
	Answer int        `json:"answer"`
	Spec   string     `json:"spec"`
	Key    core.Tuple `json:"key,omitempty"`
	Value  any        `json:"value,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// selectDecoders returns the declarations named in list, or all of them
// when list is empty.
func selectDecoders(reg *registry.Registry, list string) ([]registry.DecoderConfig, error) {
	if len(reg.Decoders) == 0 {
		return nil, errors.New("no decoders declared in the registry")
	}
	if list == "" {
		return reg.Decoders, nil
	}
	var decls []registry.DecoderConfig
	for _, name := range strings.Split(list, ",") {
		decl := reg.FindDecoder(strings.TrimSpace(name))
		if decl == nil {
			return nil, fmt.Errorf("decoder %q is not declared in the registry", name)
		}
		decls = append(decls, *decl)
	}
	return decls, nil
}

func decodeAnswers(ctx context.Context, src core.Source, reg *registry.Registry, list string, obs *observability.Manager, enc *json.Encoder) error {
	decls, err := selectDecoders(reg, list)
	if err != nil {
		return err
	}
	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	specs, err := decoder.FromConfig(decls, decoder.Records(names...))
	if err != nil {
		return err
	}
	dec, err := decoder.New(specs,
		decoder.WithLogger(obs.GetLogger().GetZap()),
		decoder.WithObserver(obs))
	if err != nil {
		return err
	}

	for {
		m, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		_, span := obs.GetTracer().StartDecodeSpan(ctx, m.Number, names)
		for res := range dec.DecodeModel(m).All() {
			line := decoded{Answer: m.Number, Spec: res.Spec, Key: res.Key, Value: res.Value}
			if res.Err != nil {
				line.Value = nil
				line.Error = res.Err.Error()
			}
			if err := enc.Encode(line); err != nil {
				span.End()
				return err
			}
		}
		span.End()
	}
}

func flagNames(f answers.Flags) []string {
	var names []string
	for _, fl := range []struct {
		on   bool
		name string
	}{
		{f.FirstArgOnly, "first_arg_only"},
		{f.ByPredicate, "by_predicate"},
		{f.AsObjects, "as_objects"},
		{f.Sorted, "sorted"},
		{f.AsStrings, "atoms_as_string"},
		{f.NoArgs, "no_arg"},
		{f.ByArity, "by_arity"},
		{f.WithOptimization, "with_optimization"},
	} {
		if fl.on {
			names = append(names, fl.name)
		}
	}
	return names
}
