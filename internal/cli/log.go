package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/licensecrawl/pkg/observability"
)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// stopwatch logs a message with the time elapsed since it was started.
type stopwatch struct {
	logger *log.Logger
	start  time.Time
}

func startStopwatch(l *log.Logger) stopwatch { return stopwatch{logger: l, start: time.Now()} }

func (s stopwatch) done(msg string) {
	s.logger.Infof("%s (%s)", msg, time.Since(s.start).Round(time.Millisecond))
}

// printfAt adapts l to the printf-style callbacks of the resolver.
func printfAt(l *log.Logger, level log.Level) func(string, ...any) {
	return func(format string, args ...any) { l.Log(level, fmt.Sprintf(format, args...)) }
}

// httpLog writes one debug line per registry response or transport error
// and forwards every event to next.
type httpLog struct {
	next   observability.HTTPHooks
	logger *log.Logger
}

func (h httpLog) OnRequest(ctx context.Context, method, host, path string) {
	h.next.OnRequest(ctx, method, host, path)
}

func (h httpLog) OnResponse(ctx context.Context, method, host, path string, status int, d time.Duration) {
	h.next.OnResponse(ctx, method, host, path, status, d)
	h.logger.Debug("http", "method", method, "url", host+path, "status", status, "took", d.Round(time.Millisecond))
}

func (h httpLog) OnError(ctx context.Context, method, host, path string, err error) {
	h.next.OnError(ctx, method, host, path, err)
	h.logger.Debug("http", "method", method, "url", host+path, "err", err)
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFromContext returns the logger stored by withLogger, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
