package handler

import (
	"net/http"

	"github.com/sportdesk/walletd/internal/errHandler"
	"github.com/sportdesk/walletd/internal/response"
	"github.com/sportdesk/walletd/internal/version"
)

type healthCheckHandler struct {
	errHandler *errHandler.ErrorHandler
}

func NewHealthCheckHandler(errHandler *errHandler.ErrorHandler) *healthCheckHandler {
	return &healthCheckHandler{
		errHandler: errHandler,
	}
}

func (h *healthCheckHandler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Status":  "OK",
		"Version": version.Get(),
	}

	err := response.JSONOkResponse(w, data, "", nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
