package expense

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

type eventRequest struct {
	UserID   string `json:"user_id"`
	Message  string `json:"message"`
	ImageURL string `json:"image_url"`
}

// handleEvent processes one inbound receipt event
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var event eventRequest
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		slog.Error("Error decoding event", "error", err)
		corsError(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if event.UserID == "" {
		corsError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	outcome, err := s.coordinator.Process(r.Context(), event.UserID, event.Message, event.ImageURL)
	if err != nil {
		slog.Error("Error processing event", "user_id", event.UserID, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(outcome); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

type usageResponse struct {
	UserID         string          `json:"user_id"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	OperationCount int             `json:"operation_count"`
	AvgCost        decimal.Decimal `json:"avg_cost_per_operation"`
	Recent         []UsageEntry    `json:"recent"`
}

// handleUsage returns cost analytics for a user. Unknown users get zero
// totals, not an error.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		corsError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	total, err := s.ledger.TotalFor(userID)
	if err != nil {
		slog.Error("Error querying ledger total", "user_id", userID, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	count, err := s.ledger.CountFor(userID)
	if err != nil {
		slog.Error("Error querying ledger count", "user_id", userID, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	recent, err := s.ledger.Recent(userID, 5)
	if err != nil {
		slog.Error("Error querying recent usage", "user_id", userID, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	avg := decimal.Zero
	if count > 0 {
		avg = total.Div(decimal.NewFromInt(int64(count)))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(usageResponse{
		UserID:         userID,
		TotalCost:      total,
		OperationCount: count,
		AvgCost:        avg,
		Recent:         recent,
	}); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleHealth reports the build version
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}
