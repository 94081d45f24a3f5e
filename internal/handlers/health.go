package handlers

import "net/http"

// Health reports service and store health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.JSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "store unreachable",
		})
		return
	}
	h.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
