package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	curatorerrors "github.com/nodecurio/curator/internal/errors"
	"github.com/nodecurio/curator/internal/logging"
)

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.APIError("encode response failed: %v", err)
	}
}

// errorBody is the JSON shape every failed request gets, keyed the same
// way across the whole surface so clients parse one error contract.
type errorBody struct {
	Error struct {
		Kind    curatorerrors.Kind `json:"kind"`
		Message string             `json:"message"`
	} `json:"error"`
}

// writeError maps err to its indicative HTTP status (spec §7's httpStatus
// table, already built into *curatorerrors.Error) and writes the shared
// error envelope. Non-curatorerrors errors are treated as internal.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var curErr *curatorerrors.Error
	if asErr, ok := err.(*curatorerrors.Error); ok {
		curErr = asErr
		status = curErr.HTTPStatus()
	} else {
		curErr = curatorerrors.Wrap(curatorerrors.KindInternal, err, "unexpected error")
	}

	if status >= 500 {
		logging.APIError("request failed: %v", err)
	} else {
		logging.APIDebug("request failed: %v", err)
	}

	body := errorBody{}
	body.Error.Kind = curErr.Kind
	body.Error.Message = curErr.Message
	writeJSON(w, status, body)
}

func intQueryParam(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
