package admin

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/sitewarden/internal/apperr"
	"github.com/yanizio/sitewarden/internal/lifecycle"
)

// maxBody caps JSON request bodies.
const maxBody = 64 << 10

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Debugw("response encode failed", "err", err)
	}
}

func writeOK(w http.ResponseWriter, status int, fields envelope) {
	body := envelope{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// writeOutcome renders a lifecycle transition.
func writeOutcome(w http.ResponseWriter, out lifecycle.Outcome) {
	writeOK(w, http.StatusOK, envelope{
		"signal":  out.Signal,
		"message": out.Message,
		"result":  out,
	})
}

// writeError maps err onto a status and the error envelope.  Unclassified
// errors are logged and rendered without detail.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.SugaredLogger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.Status(kind)
	if status >= http.StatusInternalServerError && kind != apperr.Unavailable {
		log.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, envelope{
		"ok":    false,
		"error": errorBody{Code: kind.String(), Message: apperr.Message(err)},
	})
}

// decode reads one JSON object into dst.  Unknown fields are rejected.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.InvalidArgument, "request body is empty")
		}
		return apperr.Wrap(apperr.InvalidArgument, err, "malformed JSON body")
	}
	return nil
}

// idParam parses a positive integer route parameter.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.InvalidArgument, "invalid %s", name)
	}
	return id, nil
}
