package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ejsmile/systech-aidd/internal/text2sql"
)

// AdminQueryRequest is a natural-language question about the stored data.
type AdminQueryRequest struct {
	Query string `json:"query"`
}

// AdminQuery runs the text2sql pipeline: generate SQL, validate, execute
// read-only, interpret. Rejected SQL maps to 400, everything else to 500.
func (h *Handler) AdminQuery(w http.ResponseWriter, r *http.Request) {
	var req AdminQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		h.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.text2sql.Process(r.Context(), req.Query)
	if err != nil {
		var vErr *text2sql.ValidationError
		if errors.As(err, &vErr) {
			h.Error(w, http.StatusBadRequest, vErr.Error())
			return
		}
		h.Error(w, http.StatusInternalServerError, "admin query failed")
		return
	}

	h.JSON(w, http.StatusOK, result)
}
