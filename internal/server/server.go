package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/crimson-sun/paperscout/internal/engine/classifier"
	"github.com/crimson-sun/paperscout/internal/model"
	"github.com/crimson-sun/paperscout/internal/store"
)

const shutdownTimeout = 10 * time.Second

// Workflow is the part of the pipeline the API drives directly.
type Workflow interface {
	Run(ctx context.Context, forceDigest bool) (model.Report, error)
	TrainNow() (classifier.Metrics, error)
}

// Server exposes the paper corpus and workflow over a REST API.
type Server struct {
	store *store.Store
	wf    Workflow
	log   *zap.Logger
	http  *http.Server
}

// New creates a Server listening on addr.
func New(addr string, st *store.Store, wf Workflow, log *zap.Logger) *Server {
	s := &Server{store: st, wf: wf, log: log}
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // training can take a while
	}
	return s
}

// Router builds the route table. Exposed for handler tests.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/papers", s.handleListPapers).Methods(http.MethodGet)
	// Old-style arXiv IDs contain a slash (hep-th/9901001), so the id
	// variable must span path segments. Action routes are registered
	// first so their literal suffix wins over the greedy detail match.
	api.HandleFunc("/papers/{id:.+}/label", s.handleLabelPaper).Methods(http.MethodPost)
	api.HandleFunc("/papers/{id:.+}/save", s.handleSavePaper).Methods(http.MethodPost)
	api.HandleFunc("/papers/{id:.+}/save", s.handleUnsavePaper).Methods(http.MethodDelete)
	api.HandleFunc("/papers/{id:.+}", s.handleGetPaper).Methods(http.MethodGet)
	api.HandleFunc("/reading-list", s.handleReadingList).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)
	api.HandleFunc("/recommendations", s.handleRecommendations).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/interests", s.handleInterests).Methods(http.MethodGet)
	api.HandleFunc("/preferences", s.handleGetPreferences).Methods(http.MethodGet)
	api.HandleFunc("/preferences", s.handlePutPreferences).Methods(http.MethodPut)
	api.HandleFunc("/train", s.handleTrain).Methods(http.MethodPost)
	api.HandleFunc("/digest", s.handleSendDigest).Methods(http.MethodPost)
	api.HandleFunc("/digest/history", s.handleDigestHistory).Methods(http.MethodGet)

	return r
}

// Start serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("api server shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(shutCtx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}
