package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"quiz-ledger-service/internal/app"
	"quiz-ledger-service/internal/domain"
)

// RouterOptions configures the HTTP surface around the ledger.
type RouterOptions struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	Logger             *zap.Logger
}

// Handler serves the ledger's JSON endpoints.
type Handler struct {
	ledger *app.Ledger
	log    *zap.Logger
}

func NewHandler(ledger *app.Ledger, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{ledger: ledger, log: log}
}

// NewRouter wires every endpoint behind CORS and the per-client rate limiter.
func NewRouter(ledger *app.Ledger, opts RouterOptions) http.Handler {
	h := NewHandler(ledger, opts.Logger)
	ws := NewWSHandler(ledger, opts.Logger)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ws/leaderboard", ws.ServeWS).Methods(http.MethodGet)

	api := r.PathPrefix("/").Subrouter()
	if opts.RateLimitPerMinute > 0 {
		api.Use(NewRateLimiter(opts.RateLimitPerMinute).Middleware)
	}
	api.HandleFunc("/quiz-results", h.SettleQuiz).Methods(http.MethodPost)
	api.HandleFunc("/claim-bounty", h.ClaimBounty).Methods(http.MethodPost)
	api.HandleFunc("/place-bet", h.PlaceBet).Methods(http.MethodPost)
	api.HandleFunc("/resolve-bet", h.ResolveBet).Methods(http.MethodPost)
	api.HandleFunc("/duels", h.StartDuel).Methods(http.MethodPost)
	api.HandleFunc("/duels/complete", h.CompleteDuel).Methods(http.MethodPost)
	api.HandleFunc("/leaderboard", h.Leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/accounts", h.CreateAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id}", h.GetAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/transactions", h.History).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/sessions", h.Sessions).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}/bounties", h.Bounties).Methods(http.MethodGet)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the error kind to a status code; persistence failures keep the
// underlying message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: domain.Message(err)})
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindRule:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}
