package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/licensecrawl/pkg/deps"
	"github.com/matzehuels/licensecrawl/pkg/deps/license"
	apperr "github.com/matzehuels/licensecrawl/pkg/errors"
	"github.com/matzehuels/licensecrawl/pkg/lockfile"
	"github.com/matzehuels/licensecrawl/pkg/observability"
	"github.com/matzehuels/licensecrawl/pkg/report"
)

// maxRequestBody bounds the size of an uploaded lockfile.
const maxRequestBody = 32 << 20

func (c *CLI) serveCommand() *cobra.Command {
	addr := "127.0.0.1:8080"
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve license scans over HTTP",
		Long: `Serve starts an HTTP API backed by the same cache and rate limits as scan.

  POST /v1/scan   {"type": "yarn.lock", "lockfile": "..."} or {"seeds": ["npm:left-pad@1.3.0"]}
  GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			eng, err := newEngine(ctx, c.cfg, logger, false)
			if err != nil {
				return err
			}
			defer eng.Close()
			defer observability.Install(observability.Hooks{
				HTTP: httpLog{next: observability.NoopHTTPHooks{}, logger: logger},
			})()
			return serve(ctx, addr, newServer(eng), logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", addr, "listen address")
	return cmd
}

// serve runs h on addr until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, addr string, h http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

type server struct {
	eng *engine
}

func newServer(eng *engine) http.Handler {
	s := &server{eng: eng}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/scan", s.scan)
	})
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.eng.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version()})
}

type scanRequest struct {
	Type     string   `json:"type"`     // Lockfile name, e.g. "package-lock.json"
	Lockfile string   `json:"lockfile"` // Lockfile content
	Seeds    []string `json:"seeds"`    // Identities, used when Lockfile is empty
	Allowed  []string `json:"allowed"`  // Overrides the configured policy
}

type scanResponse struct {
	RunID      string        `json:"run_id"`
	Records    []deps.Record `json:"records"`
	Unknown    int           `json:"unknown"`
	Violations []string      `json:"violations,omitempty"`
	Partial    bool          `json:"partial,omitempty"`
	DurationMS int64         `json:"duration_ms"`
}

type errorResponse struct {
	Code  apperr.Code `json:"code"`
	Error string      `json:"error"`
}

func (s *server) scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.ErrCodeInvalidInput, err, "decode request"))
		return
	}

	seeds, err := req.seeds()
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	if s.eng.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.eng.cfg.Timeout)
		defer cancel()
	}
	res, err := s.eng.resolver(nil).Resolve(ctx, seeds)
	if err != nil && res == nil {
		writeError(w, err)
		return
	}

	policy := s.eng.policy
	if req.Allowed != nil {
		policy = license.NewPolicy(req.Allowed)
	}
	sum := report.Summarize(res.Records, policy)
	resp := scanResponse{
		RunID:      res.RunID,
		Records:    res.Records,
		Unknown:    sum.Unknown,
		Partial:    err != nil,
		DurationMS: res.Duration.Milliseconds(),
	}
	for _, rec := range sum.Violations {
		resp.Violations = append(resp.Violations, rec.ID)
	}
	writeJSON(w, http.StatusOK, resp)
}

// seeds parses the request into the identities to resolve.
func (req *scanRequest) seeds() ([]deps.Identity, error) {
	if req.Lockfile == "" {
		if len(req.Seeds) == 0 {
			return nil, deps.ErrNoSeeds
		}
		out := make([]deps.Identity, 0, len(req.Seeds))
		for _, s := range req.Seeds {
			id, err := deps.ParseIdentity(s)
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		}
		return out, nil
	}

	if err := apperr.ValidateLockfileName(req.Type); err != nil {
		return nil, err
	}
	p, _ := lockfile.ParserFor(req.Type)
	seeds, err := p.Parse([]byte(req.Lockfile))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInvalidLockfile, err, "parse %s", req.Type)
	}
	if len(seeds) == 0 {
		return nil, deps.ErrNoSeeds
	}
	return seeds, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := apperr.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case apperr.ErrCodeInvalidInput, apperr.ErrCodeInvalidPackage, apperr.ErrCodeInvalidLockfile, apperr.ErrCodeNoSeeds, apperr.ErrCodeUnsupported:
		status = http.StatusBadRequest
	case apperr.ErrCodeTimeout:
		status = http.StatusGatewayTimeout
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, status, errorResponse{Code: code, Error: apperr.UserMessage(err)})
}
