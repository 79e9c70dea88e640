package httpapi

import (
	"net/http"
	"strings"
)

type announceRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// handleAnnounce records a community-wide announcement in the audit trail.
// Delivery to residents happens out of band; this endpoint is the durable
// record of who announced what.
func (a *API) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	claims, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	var req announceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, r, http.StatusBadRequest, "title and message are required")
		return
	}

	a.svc.Announce(r.Context(), claims.UserID, req.Title, req.Message, requestMeta(r))
	writeJSON(w, http.StatusOK, map[string]any{"status": "announced"})
}
