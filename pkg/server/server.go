package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"

	"github.com/gridwatch/dcimpact/pkg/common"
	"github.com/gridwatch/dcimpact/pkg/log"
	"github.com/gridwatch/dcimpact/pkg/scenario"
	"github.com/gridwatch/dcimpact/pkg/storage"
)

const (
	// maxBodyBytes limits request bodies on POST endpoints.
	maxBodyBytes = 1 << 20

	defaultListLimit = 50
	maxListLimit     = 500
)

// identity is what a verified bearer token asserts.
type identity struct {
	Email   string
	Subject string
}

// tokenVerifier validates an OIDC ID token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (identity, error)

// Server serves stored forecast runs and triggers new ones.
type Server struct {
	storage storage.Database
	base    *scenario.Scenario

	listenAddr string
	httpServer *http.Server
	serverName string
	now        func() time.Time

	verifier      tokenVerifier
	allowedEmails []string
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration. New runs
// start from the scenario the loader resolves, so scenario.Configured must be
// called first.
func Configured(db storage.Database, loader *scenario.Loader) *Server {
	srv := &Server{
		storage:    db,
		serverName: common.ServerName(),
		now:        time.Now,
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	oidcIssuer := lflag.String("oidc-issuer", "https://accounts.google.com", "OIDC issuer used to verify bearer tokens")
	oidcAudience := lflag.String("oidc-audience", "", "Audience required on bearer tokens for POST /api/runs (empty disables auth)")
	allowedEmails := lflag.String("allowed-emails", "", "comma-delimited list of email addresses allowed to trigger runs (empty allows any verified token)")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		sc, err := loader.Load()
		if err != nil {
			log.Ctx(context.Background()).Error("failed to load scenario", slog.Any("error", err))
			os.Exit(1)
		}
		srv.base = sc
		if *allowedEmails != "" {
			srv.allowedEmails = strings.Split(*allowedEmails, ",")
			for i, email := range srv.allowedEmails {
				srv.allowedEmails[i] = strings.TrimSpace(email)
			}
		}
		if *oidcAudience != "" {
			provider, err := oidc.NewProvider(context.Background(), *oidcIssuer)
			if err != nil {
				log.Ctx(context.Background()).Error("failed to initialize OIDC provider", slog.String("issuer", *oidcIssuer), slog.Any("error", err))
				os.Exit(1)
			}
			srv.verifier = oidcVerifier(provider.Verifier(&oidc.Config{ClientID: *oidcAudience}))
		}
	})

	return srv
}

func oidcVerifier(v *oidc.IDTokenVerifier) tokenVerifier {
	return func(ctx context.Context, raw string) (identity, error) {
		idToken, err := v.Verify(ctx, raw)
		if err != nil {
			return identity{}, err
		}
		var claims struct {
			Email string `json:"email"`
		}
		if err := idToken.Claims(&claims); err != nil {
			return identity{}, fmt.Errorf("failed to parse claims: %w", err)
		}
		return identity{Email: claims.Email, Subject: idToken.Subject}, nil
	}
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/runs", s.handleListRuns)
	apiMux.HandleFunc("GET /api/runs/latest", s.handleLatestRun)
	apiMux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	apiMux.HandleFunc("GET /api/runs/{id}/records", s.handleGetRecords)
	apiMux.HandleFunc("GET /api/runs/{id}/forecast.csv", s.handleForecastCSV)
	apiMux.HandleFunc("GET /api/runs/{id}/charts/{chart}", s.handleChart)
	apiMux.Handle("POST /api/runs", s.authMiddleware(http.HandlerFunc(s.handleCreateRun)))

	mux := http.NewServeMux()
	mux.Handle("/api/", s.metricsMiddleware(apiMux))
	mux.Handle("GET /metrics", metricsHandler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.headersMiddleware(gziphandler.GzipHandler(mux))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// headersMiddleware stamps every response with the server name and a locked
// down browser policy. API responses default to no-store; handlers serving
// run data replace it with their own Cache-Control.
func (s *Server) headersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if s.serverName != "" {
			h.Set("Server", s.serverName)
		}
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		h.Set("X-Content-Type-Options", "nosniff")
		// runs are data, never pages
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		if strings.HasPrefix(r.URL.Path, "/api/") {
			h.Set("Cache-Control", "no-store")
		}
		next.ServeHTTP(w, r)
	})
}
