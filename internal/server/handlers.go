package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/crimson-sun/paperscout/internal/engine/classifier"
	"github.com/crimson-sun/paperscout/internal/engine/interests"
	"github.com/crimson-sun/paperscout/internal/model"
	"github.com/crimson-sun/paperscout/internal/store"
)

const defaultListLimit = 50

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/papers?q=...&limit=...
func (s *Server) handleListPapers(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)

	var (
		papers []model.Paper
		err    error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		papers, err = s.store.SearchPapers(q, limit)
	} else {
		papers, err = s.store.ListPapers(limit)
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, papers)
}

// GET /api/papers/{id}
func (s *Server) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	paper, err := s.store.GetPaper(mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "paper not found")
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paper)
}

// POST /api/papers/{id}/label
func (s *Server) handleLabelPaper(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label int `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Label != 0 && req.Label != 1 {
		jsonError(w, http.StatusBadRequest, "label must be 0 or 1")
		return
	}

	err := s.store.LabelPaper(mux.Vars(r)["id"], req.Label)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "paper not found")
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"label": req.Label})
}

// POST /api/papers/{id}/save
func (s *Server) handleSavePaper(w http.ResponseWriter, r *http.Request) {
	err := s.store.SaveToReadingList(mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "paper not found")
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

// DELETE /api/papers/{id}/save
func (s *Server) handleUnsavePaper(w http.ResponseWriter, r *http.Request) {
	err := s.store.RemoveFromReadingList(mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "paper not found")
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": false})
}

// GET /api/reading-list
func (s *Server) handleReadingList(w http.ResponseWriter, r *http.Request) {
	papers, err := s.store.ReadingList()
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, papers)
}

// GET /api/categories
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.Categories()
	if err != nil {
		s.internalError(w, err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// GET /api/recommendations?limit=...
// Unlabeled papers ordered by relevance, the labeling queue.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	papers, err := s.store.UnlabeledPapers(queryInt(r, "limit", 10))
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, papers)
}

// GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats()
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /api/interests
func (s *Server) handleInterests(w http.ResponseWriter, r *http.Request) {
	relevant, err := s.relevantPapers()
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interests.BuildProfile(relevant))
}

// GET /api/preferences
func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.store.GetPreferences()
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// PUT /api/preferences
func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.store.GetPreferences()
	if err != nil {
		s.internalError(w, err)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if prefs.DigestFrequency != model.FrequencyDaily && prefs.DigestFrequency != model.FrequencyWeekly {
		jsonError(w, http.StatusBadRequest, "digest_frequency must be daily or weekly")
		return
	}
	if err := s.store.UpdatePreferences(prefs); err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// POST /api/train
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.wf.TrainNow()
	if errors.Is(err, classifier.ErrTooFewSamples) || errors.Is(err, classifier.ErrOneClass) {
		jsonError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

// POST /api/digest
// Runs the workflow with a forced digest.
func (s *Server) handleSendDigest(w http.ResponseWriter, r *http.Request) {
	report, err := s.wf.Run(r.Context(), true)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GET /api/digest/history?limit=...
func (s *Server) handleDigestHistory(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.DigestHistory(queryInt(r, "limit", 10))
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) relevantPapers() ([]model.Paper, error) {
	positive, err := s.store.PositivePapers()
	if err != nil {
		return nil, err
	}
	saved, err := s.store.ReadingList()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(positive))
	for _, p := range positive {
		seen[p.ArxivID] = true
	}
	for _, p := range saved {
		if !seen[p.ArxivID] {
			positive = append(positive, p)
		}
	}
	return positive, nil
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("request failed", zap.Error(err))
	jsonError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
