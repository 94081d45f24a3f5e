package handlers

import (
	"net/http"
	"time"
)

// GetStatistics returns dashboard statistics, optionally bounded by
// start_date/end_date query parameters (RFC 3339).
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	since, err := parseDateParam(r, "start_date")
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid start_date")
		return
	}
	until, err := parseDateParam(r, "end_date")
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid end_date")
		return
	}

	statistics, err := h.stats.GetStatistics(r.Context(), since, until)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to collect statistics")
		return
	}

	h.JSON(w, http.StatusOK, statistics)
}

func parseDateParam(r *http.Request, name string) (*time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		// Accept bare dates too.
		t, err = time.Parse("2006-01-02", value)
		if err != nil {
			return nil, err
		}
	}
	return &t, nil
}
