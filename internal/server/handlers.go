package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/matomeru/internal/config"
	"github.com/hyperjump/matomeru/internal/engine"
	"github.com/hyperjump/matomeru/internal/models"
)

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var input models.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := input.Validate(true); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.rejectReserved(w, *input.ID) {
		return
	}
	s.logger.Debug("add item request", zap.Int("id", *input.ID), zap.String("kind", input.ItemKind()))
	res, err := s.engine.AddItem(r.Context(), input.ItemText(s.titleOnlyHosts()), *input.ID)
	if err != nil {
		s.respondEngineError(w, "add item", err)
		return
	}
	s.kinds.set(*input.ID, input.ItemKind())
	s.respondJSON(w, http.StatusCreated, s.partitionResponse(res))
}

// handleReplaceItem swaps the text of a live item. A failed replace leaves the old
// item in place. An item whose replace was opened by DELETE ?replace=true is
// completed instead.
func (s *Server) handleReplaceItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	var input models.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.ID != nil && *input.ID != id {
		s.respondError(w, http.StatusBadRequest, "id in body does not match url")
		return
	}
	if err := input.Validate(false); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.rejectReserved(w, id) {
		return
	}
	s.logger.Debug("replace item request", zap.Int("id", id))

	text := input.ItemText(s.titleOnlyHosts())
	var (
		res *engine.Result
		err error
	)
	if s.replacing(id) {
		res, err = s.engine.CompleteReplace(r.Context(), id, text)
	} else {
		res, err = s.engine.ReplaceItem(r.Context(), id, text)
	}
	if err != nil {
		s.respondEngineError(w, "replace item", err)
		return
	}
	s.kinds.set(id, input.ItemKind())
	s.respondJSON(w, http.StatusOK, s.partitionResponse(res))
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	replace := false
	if v := r.URL.Query().Get("replace"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "replace must be a boolean")
			return
		}
		replace = b
	}
	if s.rejectReserved(w, id) {
		return
	}
	s.logger.Debug("remove item request", zap.Int("id", id), zap.Bool("replace", replace))
	res, err := s.engine.RemoveItem(id, replace)
	if err != nil {
		s.respondEngineError(w, "remove item", err)
		return
	}
	if !res.Deferred {
		s.kinds.remove(id)
	}
	if res.Deferred {
		s.respondJSON(w, http.StatusAccepted, models.PartitionResponse{
			Threshold: s.engine.Threshold(),
			Deferred:  true,
		})
		return
	}
	s.respondJSON(w, http.StatusOK, s.partitionResponse(res))
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.partitionResponse(&engine.Result{Partition: s.engine.Partition()}))
}

func (s *Server) handleGetThreshold(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, models.ThresholdInput{Threshold: s.engine.Threshold()})
}

func (s *Server) handleSetThreshold(w http.ResponseWriter, r *http.Request) {
	var input models.ThresholdInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.engine.RecomputeWithThreshold(input.Threshold)
	if err != nil {
		s.respondEngineError(w, "set threshold", err)
		return
	}
	s.persistThreshold(input.Threshold)
	s.respondJSON(w, http.StatusOK, s.partitionResponse(res))
}

func (s *Server) persistThreshold(threshold float64) {
	if s.configPath == "" || s.config == nil {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Clustering.Threshold = threshold
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist threshold", zap.Error(err))
	}
}

func (s *Server) handleSimilarities(w http.ResponseWriter, r *http.Request) {
	sims := s.engine.Similarities()
	s.respondJSON(w, http.StatusOK, models.SimilaritiesResponse{Items: len(sims), Similarities: sims})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := models.StatusResponse{
		InstanceID:    s.instanceID,
		State:         s.engine.State().String(),
		Items:         s.engine.Len(),
		Clusters:      s.engine.Partition().Len(),
		Threshold:     s.engine.Threshold(),
		TopK:          s.engine.TopK(),
		Dimensions:    s.engine.Dimensions(),
		Replacing:     s.engine.Replacing(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if s.watch != nil {
		resp.Directories = s.watch.Directories()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) replacing(id int) bool {
	for _, r := range s.engine.Replacing() {
		if r == id {
			return true
		}
	}
	return false
}

func (s *Server) rejectReserved(w http.ResponseWriter, id int) bool {
	if !s.reservedID(id) {
		return false
	}
	s.respondError(w, http.StatusConflict,
		fmt.Sprintf("id %d is reserved for watched files (ids from %d)", id, s.config.Watch.IDBase))
	return true
}

func (s *Server) itemID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		s.respondError(w, http.StatusBadRequest, "id must be a non-negative integer")
		return 0, false
	}
	return id, true
}

func (s *Server) partitionResponse(res *engine.Result) models.PartitionResponse {
	clusters := res.Partition.Clusters()
	return models.PartitionResponse{
		IDs:       res.Partition.IDs,
		Sizes:     res.Partition.Sizes,
		Clusters:  clusters,
		Threshold: s.engine.Threshold(),
		Timing:    models.NewTiming(res.Timing.Tokenization, res.Timing.Inference, res.Timing.Clustering),
		Groups:    models.GroupByKind(clusters, s.kinds.kindOf),
	}
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var embErr *engine.EmbeddingError
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidID), errors.Is(err, engine.ErrInvalidThreshold):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNoPendingReplace):
		return http.StatusConflict
	case errors.As(err, &embErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondEngineError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
