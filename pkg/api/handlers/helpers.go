package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"messengerdb/pkg/config"
	"messengerdb/pkg/errs"
	"messengerdb/pkg/utils"
)

// writeError maps taxonomy errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalidArgument):
		utils.JSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrTimeout):
		utils.JSONError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, errs.ErrUnavailable):
		utils.JSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// pageSizeParam resolves the page_size query parameter. Omitted means
// the configured default; an explicit non-positive or non-numeric value
// is a request error. Clamping to the maximum happens downstream.
func pageSizeParam(r *http.Request) (int, error) {
	v := r.URL.Query().Get("page_size")
	if v == "" {
		def, _ := config.PageSizeDefaults()
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errs.InvalidArgumentf("page_size must be an integer, got %q", v)
	}
	return n, nil
}

// page is the wire shape for one page of results.
type page struct {
	Data       any    `json:"data"`
	NextCursor string `json:"next_cursor,omitempty"`
}
