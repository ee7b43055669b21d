package http

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/sheetshim/pkg/domain/model"
	"github.com/m-mizutani/sheetshim/pkg/domain/types"
)

// handleHeartbeat answers the platform's liveness probe
func handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	status := &model.HealthStatus{
		Status:  "ok",
		Service: types.ServiceName,
		Version: types.Version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode heartbeat response", "error", err)
	}
}
