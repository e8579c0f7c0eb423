package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quantumlife/lifeos/internal/audit"
)

// AuditAPI provides read-only access to the audit trail
type AuditAPI struct {
	store *audit.Store
}

// NewAuditAPI creates a new audit API
func NewAuditAPI(store *audit.Store) *AuditAPI {
	return &AuditAPI{store: store}
}

// RegisterRoutes registers audit routes (all read-only)
func (api *AuditAPI) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Get("/", api.handleListEntries)        // GET /api/v1/audit
		r.Get("/summary", api.handleGetSummary)  // GET /api/v1/audit/summary
		r.Get("/verify", api.handleVerifyChain)  // GET /api/v1/audit/verify
		r.Get("/entry/{id}", api.handleGetEntry) // GET /api/v1/audit/entry/{id}
	})
}

// handleListEntries returns entries, newest first, with optional filtering
// GET /api/v1/audit?action=&actor=&entity_type=&entity_id=&limit=&offset=
func (api *AuditAPI) handleListEntries(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	opts := audit.QueryOptions{
		Action:     query.Get("action"),
		Actor:      query.Get("actor"),
		EntityType: query.Get("entity_type"),
		EntityID:   query.Get("entity_id"),
	}

	if limit := query.Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			opts.Limit = l
		}
	} else {
		opts.Limit = 100 // Default limit
	}

	if offset := query.Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil && o >= 0 {
			opts.Offset = o
		}
	}

	entries, err := api.store.Query(opts)
	if err != nil {
		respondFailure(w, err)
		return
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}

	count, _ := api.store.Count()

	response := map[string]interface{}{
		"entries":       entries,
		"count":         len(entries),
		"total_entries": count,
		"limit":         opts.Limit,
		"offset":        opts.Offset,
	}

	respondJSON(w, http.StatusOK, response)
}

// handleGetSummary returns audit statistics
// GET /api/v1/audit/summary
func (api *AuditAPI) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := api.store.GetSummary()
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// handleVerifyChain verifies the integrity of the hash chain
// GET /api/v1/audit/verify
func (api *AuditAPI) handleVerifyChain(w http.ResponseWriter, r *http.Request) {
	err := api.store.VerifyChain()

	result := map[string]interface{}{
		"chain_valid": err == nil,
		"verified_at": time.Now().UTC(),
	}

	if err != nil {
		result["error"] = err.Error()
		var chainErr *audit.ChainError
		if errors.As(err, &chainErr) {
			result["error_type"] = chainErr.Type
			result["entry_num"] = chainErr.EntryNum
			result["entry_id"] = chainErr.EntryID
		}
	}

	count, _ := api.store.Count()
	result["total_entries"] = count

	respondJSON(w, http.StatusOK, result)
}

// handleGetEntry returns a single entry by ID
// GET /api/v1/audit/entry/{id}
func (api *AuditAPI) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing entry ID")
		return
	}

	entry, err := api.store.GetByID(id)
	if err != nil {
		respondFailure(w, err)
		return
	}
	if entry == nil {
		respondError(w, http.StatusNotFound, "entry not found")
		return
	}

	respondJSON(w, http.StatusOK, entry)
}
