package api

import (
	"log/slog"
	"net/http"

	"github.com/rs/cors"
)

// NewRouter assembles the route table and the middleware chain.
func NewRouter(h *Handler, allowedOrigins []string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Health)

	mux.HandleFunc("POST /api/upload", h.Upload)

	mux.HandleFunc("GET /api/transactions", h.ListTransactions)
	mux.HandleFunc("PATCH /api/transactions/{id}/category", h.UpdateCategory)
	mux.HandleFunc("DELETE /api/transactions/{id}", h.DeleteTransaction)
	mux.HandleFunc("DELETE /api/transactions", h.ClearTransactions)

	mux.HandleFunc("GET /api/summary", h.Summary)
	mux.HandleFunc("GET /api/export", h.Export)
	mux.HandleFunc("GET /api/search", h.Search)

	mux.HandleFunc("GET /api/insights/pulse", h.Pulse)
	mux.HandleFunc("POST /api/insights", h.GenerateInsights)
	mux.HandleFunc("POST /api/insights/prediction", h.Predict)

	mux.HandleFunc("DELETE /api/categorization/cache", h.ClearCache)
	mux.HandleFunc("POST /api/categorization/sweep", h.SweepNow)

	mux.HandleFunc("POST /api/debts", h.CreateDebt)
	mux.HandleFunc("GET /api/debts", h.ListDebts)
	mux.HandleFunc("PUT /api/debts/{id}", h.UpdateDebt)
	mux.HandleFunc("DELETE /api/debts/{id}", h.DeleteDebt)

	mux.HandleFunc("POST /api/goals", h.CreateGoal)
	mux.HandleFunc("GET /api/goals", h.ListGoals)
	mux.HandleFunc("PUT /api/goals/{id}", h.UpdateGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", h.DeleteGoal)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		MaxAge:         3600,
	})

	var handler http.Handler = mux
	handler = RequestID(handler)
	handler = Logger(logger)(handler)
	handler = Recovery(logger)(handler)
	return c.Handler(handler)
}
