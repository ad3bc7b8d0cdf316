package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"mailhub/internal/dispatch"
	"mailhub/internal/domain"
	"mailhub/internal/store/sqlite"
)

type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]sqlite.DeliveryRow, error)
}

type API struct {
	Dispatcher *dispatch.Dispatcher
	History    HistoryReader // optional
	StaticDir  string
}

func (a *API) Register(r *mux.Router) {
	r.HandleFunc("/send-email", a.handleSendEmail).Methods(http.MethodPost)
	r.HandleFunc("/get-new-logs", a.handleGetNewLogs).Methods(http.MethodGet)
	r.HandleFunc("/stats", a.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/history", a.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/", a.servePage("email_hub.html")).Methods(http.MethodGet)
	r.HandleFunc("/tool", a.servePage("email_tool.html")).Methods(http.MethodGet)
}

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (a *API) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req domain.SendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "Error", Error: "invalid json"})
		return
	}

	resp, err := a.Dispatcher.Submit(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "Error", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleGetNewLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Dispatcher.Logs())
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.StatsResponse{
		Status:  "Running",
		Tenants: a.Dispatcher.Stats(time.Now()),
	})
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	if a.History == nil {
		writeJSON(w, http.StatusOK, []sqlite.DeliveryRow{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := a.History.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("history query failed", "err", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Status: "Error", Error: "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// servePage is a pass-through file response for the operator UI.
func (a *API) servePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(a.StaticDir, name))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
