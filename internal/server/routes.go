package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// handleCleanupRun is the entry point for an external cron: it triggers
// one scheduled global cleanup. If a run is already in flight the trigger
// is skipped with 409; the caller decides whether to care.
func (s *Server) handleCleanupRun(w http.ResponseWriter, r *http.Request) {
	res, ran, err := s.scheduler.RunNow(r.Context())

	w.Header().Set("Content-Type", "application/json")
	switch {
	case err != nil:
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
	case !ran:
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"status": "skipped", "reason": "run already in flight"})
	default:
		json.NewEncoder(w).Encode(map[string]any{
			"status":          "ok",
			"users_processed": res.UsersProcessed,
			"total_deleted":   res.TotalDeleted,
			"duration_ms":     res.Duration.Milliseconds(),
		})
	}
}

func (s *Server) handleCleanupLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, `{"error":"limit must be a positive integer"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.db.ListCleanupLog(r.Context(), limit)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	type logEntry struct {
		ID              string `json:"id"`
		UserID          string `json:"user_id,omitempty"`
		FeedID          string `json:"feed_id,omitempty"`
		Trigger         string `json:"trigger"`
		ArticlesDeleted int    `json:"articles_deleted"`
		DurationMs      int64  `json:"duration_ms"`
		Error           string `json:"error,omitempty"`
		CreatedAt       string `json:"created_at"`
	}

	out := make([]logEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, logEntry{
			ID:              e.ID,
			UserID:          e.UserID,
			FeedID:          e.FeedID,
			Trigger:         string(e.Trigger),
			ArticlesDeleted: e.ArticlesDeleted,
			DurationMs:      e.Duration.Milliseconds(),
			Error:           e.Error,
			CreatedAt:       e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"entries": out})
}
