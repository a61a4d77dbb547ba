package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/huangsam/prosoul/internal/contract"
)

// APIResponse is the envelope of every response. Status is 0 on success and
// the HTTP status code otherwise.
type APIResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
	Data   any    `json:"data,omitempty"`
}

// errBadRequest marks request validation failures.
var errBadRequest = errors.New("bad request")

func renderOK(w http.ResponseWriter, r *http.Request, data any) {
	render.JSON(w, r, APIResponse{Status: 0, Msg: "ok", Data: data})
}

func renderError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	render.Status(r, code)
	render.JSON(w, r, APIResponse{Status: code, Msg: msg})
}

// renderFailure maps err to a status code. data is still sent when set, so
// an empty assessment carries its (empty) result.
func renderFailure(w http.ResponseWriter, r *http.Request, err error, data any) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "status", code, "error", err)
	}
	render.Status(r, code)
	render.JSON(w, r, APIResponse{Status: code, Msg: err.Error(), Data: data})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, contract.ErrUnsupportedBackend):
		return http.StatusBadRequest
	case errors.Is(err, contract.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, contract.ErrEmptyAssessment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case contract.IsStoreError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
