// Package results exposes stored minute records and the latest run summary
// over HTTP.
package results

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/kilianp07/islandsim/core/store"
	"github.com/kilianp07/islandsim/pkg/export"
)

// NewResultsHandler returns an HTTP handler exposing minute records via
// GET /api/results. Query parameters run_id, scenario, from, to and
// island=true filter the records. Requests must include an Authorization
// header with "Bearer <token>" when token is non-empty.
func NewResultsHandler(st store.Store, token string) http.Handler {
	return guard(token, func(w http.ResponseWriter, r *http.Request) {
		v := r.URL.Query()
		q := store.Query{RunID: v.Get("run_id"), Scenario: v.Get("scenario")}
		var err error
		if q.From, err = intParam(v.Get("from")); err != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return
		}
		if q.To, err = intParam(v.Get("to")); err != nil {
			http.Error(w, "invalid to", http.StatusBadRequest)
			return
		}
		q.IslandOnly = v.Get("island") == "true"
		records, err := st.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []store.MinuteRecord{}
		}
		writeJSON(w, records)
	})
}

// NewSummaryHandler serves the summary record at path via GET /api/summary.
func NewSummaryHandler(path, token string) http.Handler {
	return guard(token, func(w http.ResponseWriter, _ *http.Request) {
		rec, err := export.ReadSummary(path)
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "no summary yet", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, rec)
	})
}

// Register mounts both handlers on mux.
func Register(mux *http.ServeMux, st store.Store, summaryPath, token string) {
	mux.Handle("/api/results", NewResultsHandler(st, token))
	mux.Handle("/api/summary", NewSummaryHandler(summaryPath, token))
}

func guard(token string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	})
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err == nil && n < 0 {
		err = errors.New("negative")
	}
	return n, err
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
