// fault-connector receives fault events from an in-process agent and turns
// them into deduplicated diagnostic reports.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mhabrnal/abrt-java-connector/internal/config"
	"github.com/mhabrnal/abrt-java-connector/internal/correlator"
	"github.com/mhabrnal/abrt-java-connector/internal/eventstream"
	"github.com/mhabrnal/abrt-java-connector/internal/extrainfo"
	"github.com/mhabrnal/abrt-java-connector/internal/otel"
	"github.com/mhabrnal/abrt-java-connector/internal/procinfo"
	"github.com/mhabrnal/abrt-java-connector/internal/report"
)

// Version information injected at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// newLogger builds the process-wide structured logger.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// setupSinks builds the configured report destinations and the OTLP tracer
// provider when that destination is enabled.
func setupSinks(cfg *config.Config, logger *slog.Logger) (report.Sink, func(), error) {
	var sinks []report.Sink
	var tp *sdktrace.TracerProvider

	cleanup := func() {
		if tp != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otel.ShutdownProvider(shutdownCtx, tp); err != nil {
				logger.Warn("shutting down tracer provider", slog.String("error", err.Error()))
			}
		}
	}

	fail := func(err error) (report.Sink, func(), error) {
		for _, s := range sinks {
			_ = s.Close()
		}
		cleanup()
		return nil, nil, err
	}

	if cfg.Reports(config.DestLog) {
		s, err := report.NewLogSink(cfg.Output)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}

	if cfg.Reports(config.DestSyslog) {
		s, err := report.NewSyslogSink("abrt-java-connector")
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}

	if cfg.Reports(config.DestOTLP) {
		otelCfg, err := config.ParseOTELConfig()
		if err != nil {
			return fail(err)
		}
		tp, err = otel.InitProvider(otelCfg, logger)
		if err != nil {
			return fail(fmt.Errorf("failed to initialize OTEL provider: %w", err))
		}
		sinks = append(sinks, report.NewOTELSink(tp.Tracer("fault-connector")))
	}

	if cfg.Reports(config.DestSQLite) {
		s, err := report.NewSQLiteSink(cfg.DatabasePath)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}

	if len(sinks) == 0 {
		return fail(fmt.Errorf("no report destination enabled"))
	}

	return report.NewMulti(sinks...), cleanup, nil
}

// errSignalled reports that a termination signal arrived while waiting for
// the agent; run treats it as a clean shutdown.
var errSignalled = errors.New("interrupted by signal")

// openSource opens the event source: a single accepted connection on the
// configured unix socket, or stdin. A signal on sigCh while waiting for the
// agent aborts the wait with errSignalled.
func openSource(cfg *config.Config, sigCh <-chan os.Signal, logger *slog.Logger) (io.ReadCloser, func(), error) {
	if cfg.SocketPath == "" {
		return os.Stdin, func() {}, nil
	}

	// A stale socket from a previous run would make Listen fail. Anything
	// else at that path is not ours to remove.
	if fi, err := os.Lstat(cfg.SocketPath); err == nil {
		if fi.Mode()&os.ModeSocket == 0 {
			return nil, nil, fmt.Errorf("%s exists and is not a socket", cfg.SocketPath)
		}
		_ = os.Remove(cfg.SocketPath)
	}

	ln, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on %s: %w", cfg.SocketPath, err)
	}
	closeListener := func() {
		_ = ln.Close()
		_ = os.Remove(cfg.SocketPath)
	}

	logger.Info("waiting for agent connection", slog.String("socket", cfg.SocketPath))

	type accepted struct {
		conn net.Conn
		err  error
	}
	acceptCh := make(chan accepted, 1)
	go func() {
		conn, err := ln.Accept()
		acceptCh <- accepted{conn: conn, err: err}
	}()

	select {
	case <-sigCh:
		closeListener()
		return nil, nil, errSignalled
	case res := <-acceptCh:
		if res.err != nil {
			closeListener()
			return nil, nil, fmt.Errorf("accepting agent connection: %w", res.err)
		}
		return res.conn, closeListener, nil
	}
}

func run() error {
	cfg, err := config.Load(os.Args)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	logger.Info("starting fault-connector",
		slog.String("version", version),
		slog.String("commit", commit),
	)

	pid := cfg.PID
	if pid == 0 {
		pid = os.Getpid()
	}
	props, err := procinfo.Collect(pid)
	if err != nil {
		// Reports fall back to defaults; keep going.
		logger.Warn("collecting process properties", slog.String("error", err.Error()))
	}

	evaluator, err := extrainfo.NewEvaluator(cfg.ExtraAttributes, logger)
	if err != nil {
		return err
	}

	sink, cleanupSinks, err := setupSinks(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanupSinks()
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("closing report sinks", slog.String("error", err.Error()))
		}
	}()

	engine, err := correlator.New(correlator.Options{
		Sink:               sink,
		CaughtTypes:        cfg.CaughtTypes,
		DedupCapacity:      cfg.DedupCapacity,
		Extra:              evaluator,
		FallbackExecutable: props.FallbackExecutable(),
		Logger:             logger,
	})
	if err != nil {
		// A dead engine must not take the host down with it; the nil
		// engine's handlers are no-ops.
		logger.Error("correlation engine disabled", slog.String("error", err.Error()))
	}

	// Signals must interrupt the wait for the agent connection too, so the
	// handler is installed before the accept.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	source, cleanupSource, err := openSource(cfg, sigCh, logger)
	if err != nil {
		if errors.Is(err, errSignalled) {
			logger.Info("received signal, terminating")
			return nil
		}
		return err
	}
	defer cleanupSource()
	defer func() {
		_ = source.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := eventstream.New(source, engine, logger)
	stream.Start(ctx)

	select {
	case <-sigCh:
		logger.Info("received signal, terminating")
		stream.Stop()
	case <-stream.Done():
		logger.Info("event stream ended")
	}

	if n := engine.Pending(); n > 0 {
		logger.Info("pending records discarded at shutdown", slog.Int("count", n))
	}

	return nil
}
