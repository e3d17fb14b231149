package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ochairo/zepup/internal/domain/entities"
	"github.com/ochairo/zepup/internal/domain/interfaces"
	"github.com/ochairo/zepup/internal/domain/services"
	"github.com/ochairo/zepup/internal/external-adapters/homebrew"
)

// Server serves an immutable snapshot of the release catalog
type Server struct {
	releases  []*entities.ReleaseDescriptor // ascending by version
	byVersion map[string]*entities.ReleaseDescriptor
	metrics   *metrics
	logger    interfaces.Logger
}

// NewServer snapshots the given descriptors. Versions must be unique.
func NewServer(descriptors []*entities.ReleaseDescriptor, logger interfaces.Logger) (*Server, error) {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	releases := append([]*entities.ReleaseDescriptor(nil), descriptors...)
	if err := services.SortDescriptors(releases); err != nil {
		return nil, err
	}

	byVersion := make(map[string]*entities.ReleaseDescriptor, len(releases))
	for _, d := range releases {
		if _, dup := byVersion[d.Version]; dup {
			return nil, fmt.Errorf("%w: %s", entities.ErrDuplicateVersion, d.Version)
		}
		byVersion[d.Version] = d
	}

	s := &Server{
		releases:  releases,
		byVersion: byVersion,
		metrics:   newMetrics(),
		logger:    logger.Named("index"),
	}
	s.metrics.releases.Set(float64(len(releases)))
	return s, nil
}

// Routes constructs the chi router containing all index endpoints
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.metrics.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	r.Route("/v1/releases", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/latest", s.handleLatest)
		r.Get("/{version}", s.handleRelease)
		r.Get("/{version}/formula.rb", s.handleFormula)
		r.Get("/{version}/{platform}.sha256", s.handleChecksum)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server shutdown error", interfaces.Err(err))
		}
	}()

	s.logger.Info("listening", interfaces.F("addr", addr), interfaces.F("releases", len(s.releases)))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	list := ReleaseList{Releases: make([]ReleaseDocument, 0, len(s.releases))}
	for _, d := range s.releases {
		list.Releases = append(list.Releases, ToDocument(d))
	}
	if latest := s.latest(); latest != nil {
		list.Name = latest.Name
		list.Latest = latest.Version
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	latest := s.latest()
	if latest == nil {
		respondError(w, http.StatusNotFound, entities.ErrDescriptorNotFound)
		return
	}
	respondJSON(w, http.StatusOK, ToDocument(latest))
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, ToDocument(d))
}

func (s *Server) handleFormula(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	formula, err := homebrew.Render(d)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	w.Header().Set("Content-Type", "text/x-ruby; charset=utf-8")
	_, _ = w.Write(formula)
}

func (s *Server) handleChecksum(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}

	platform, err := services.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	target, err := services.SelectTarget(d, platform)
	if err != nil {
		respondError(w, http.StatusNotFound, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "%s  %s\n", target.SHA256, target.ArchiveFilename())
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*entities.ReleaseDescriptor, bool) {
	version := chi.URLParam(r, "version")
	d, ok := s.byVersion[version]
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Errorf("%w: %s", entities.ErrDescriptorNotFound, version))
		return nil, false
	}
	return d, true
}

func (s *Server) latest() *entities.ReleaseDescriptor {
	if len(s.releases) == 0 {
		return nil
	}
	return s.releases[len(s.releases)-1]
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	respondJSON(w, status, ErrorDocument{Error: err.Error()})
}
