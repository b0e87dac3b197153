package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/brojonat/solwatch/service/stream"
)

// statusResponse is the JSON shape of the aggregated status endpoint.
type statusResponse struct {
	Status           string `json:"status"`
	ConnectedWallets int    `json:"connected_wallets"`
	TotalWallets     int    `json:"total_wallets"`
}

// handleListTransactions returns a handler that serves the current display
// window, newest first.
// GET /api/v1/transactions
func handleListTransactions(window *stream.Window, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		txns := window.Snapshot()
		logger.Debug("serving transaction window", "count", len(txns))
		writeJSON(w, txns, http.StatusOK)
	})
}

// handleGetStatus returns a handler that reports the aggregated subscription
// status across all tracked wallets.
// GET /api/v1/status
func handleGetStatus(status StatusReporter, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, connected, total := status.Status()
		writeJSON(w, statusResponse{
			Status:           string(state),
			ConnectedWallets: connected,
			TotalWallets:     total,
		}, http.StatusOK)
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
