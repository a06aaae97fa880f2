package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/thientv98/slack-oauth/internal/logging"
	"github.com/thientv98/slack-oauth/internal/metrics"
)

// DefaultRequestTimeout is how long a handler has before the client gets a 408
const DefaultRequestTimeout = 25 * time.Second

// TimeoutMiddleware answers 408 "Request timeout" if the handler has not
// finished within d. The request context is left alone, so Slack API and
// store calls the handler started are not cancelled; their late output is
// discarded.
func TimeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tw := &timeoutWriter{header: make(http.Header), code: http.StatusOK}
			done := make(chan struct{})
			panicked := make(chan interface{}, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(tw, r)
				close(done)
			}()

			timer := time.NewTimer(d)
			defer timer.Stop()

			select {
			case p := <-panicked:
				panic(p)
			case <-done:
				tw.mu.Lock()
				defer tw.mu.Unlock()
				dst := w.Header()
				for key, values := range tw.header {
					dst[key] = values
				}
				w.WriteHeader(tw.code)
				w.Write(tw.buf.Bytes())
			case <-timer.C:
				tw.mu.Lock()
				tw.timedOut = true
				tw.mu.Unlock()

				metrics.HTTPRequestTimeouts.Inc()
				logging.LoggerFromContext(r.Context()).Warn("Request timed out",
					slog.String("path", r.URL.Path),
					slog.Duration("timeout", d))

				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusRequestTimeout)
				w.Write([]byte("Request timeout"))
			}
		})
	}
}

// timeoutWriter buffers the response until the handler finishes in time
type timeoutWriter struct {
	mu          sync.Mutex
	header      http.Header
	buf         bytes.Buffer
	code        int
	wroteHeader bool
	timedOut    bool
}

func (tw *timeoutWriter) Header() http.Header { return tw.header }

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.wroteHeader {
		return
	}
	tw.code = code
	tw.wroteHeader = true
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	tw.wroteHeader = true
	return tw.buf.Write(b)
}
