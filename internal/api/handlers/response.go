package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/userhub/engine/internal/api/middleware"
	"github.com/userhub/engine/internal/api/types"
	appErr "github.com/userhub/engine/pkg/errors"
	"github.com/userhub/engine/pkg/logger"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status mapped from the error code. Internal
// causes are logged, never returned to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := appErr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed",
			zap.String("id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, types.FromAppError(err))
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Detail: msg})
}
