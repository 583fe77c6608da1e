package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"quiz-ledger-service/internal/app"
	"quiz-ledger-service/internal/domain"
)

type answerRequest struct {
	QuestionID string `json:"questionId"`
	Selected   *int   `json:"selected"`
	IsCorrect  bool   `json:"isCorrect"`
	TimeLeft   int    `json:"timeLeft"`
}

// quizResultRequest carries client-computed rewards. When difficulty is set the
// server recomputes them with the reward formula instead.
type quizResultRequest struct {
	UserID         string          `json:"userId"`
	Subject        string          `json:"subject"`
	TotalQuestions int             `json:"totalQuestions"`
	CorrectAnswers int             `json:"correctAnswers"`
	CoinsEarned    int64           `json:"coinsEarned"`
	XPEarned       int64           `json:"xpEarned"`
	Difficulty     string          `json:"difficulty,omitempty"`
	Blitz          bool            `json:"blitz,omitempty"`
	StreakBonus    bool            `json:"streakBonus,omitempty"`
	Answers        []answerRequest `json:"answers"`
}

type quizResultResponse struct {
	Success     bool             `json:"success"`
	SessionID   string           `json:"sessionId"`
	Profile     domain.Profile   `json:"profile"`
	ResolvedBet *domain.DailyBet `json:"resolvedBet,omitempty"`
}

func (h *Handler) SettleQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizResultRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	coins, xp := req.CoinsEarned, req.XPEarned
	if req.Difficulty != "" {
		reward := domain.QuizReward(domain.Difficulty(req.Difficulty), req.Blitz, req.CorrectAnswers, req.TotalQuestions)
		coins, xp = reward.Coins, reward.XP
	}

	answers := make([]app.AnswerRecord, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, app.AnswerRecord{
			QuestionID: a.QuestionID,
			Selected:   a.Selected,
			IsCorrect:  a.IsCorrect,
			TimeLeft:   a.TimeLeft,
		})
	}

	settlement, err := h.ledger.SettleQuiz(r.Context(), app.QuizResult{
		UserID:         req.UserID,
		Subject:        req.Subject,
		TotalQuestions: req.TotalQuestions,
		CorrectAnswers: req.CorrectAnswers,
		CoinsEarned:    coins,
		XPEarned:       xp,
		StreakBonus:    req.StreakBonus,
		Answers:        answers,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizResultResponse{
		Success:     true,
		SessionID:   settlement.SessionID,
		Profile:     settlement.Profile,
		ResolvedBet: settlement.ResolvedBet,
	})
}

type claimBountyRequest struct {
	UserID   string `json:"userId"`
	BountyID string `json:"bountyId"`
}

type claimBountyResponse struct {
	Success      bool  `json:"success"`
	CoinsAwarded int64 `json:"coinsAwarded"`
	XPAwarded    int64 `json:"xpAwarded"`
}

func (h *Handler) ClaimBounty(w http.ResponseWriter, r *http.Request) {
	var req claimBountyRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.UserID == "" || req.BountyID == "" {
		h.writeError(w, r, domain.ErrInvalidInput)
		return
	}
	claim, err := h.ledger.ClaimBounty(r.Context(), req.UserID, req.BountyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claimBountyResponse{
		Success:      true,
		CoinsAwarded: claim.CoinsAwarded,
		XPAwarded:    claim.XPAwarded,
	})
}

type placeBetRequest struct {
	UserID      string `json:"userId"`
	CoinsStaked int64  `json:"coinsStaked"`
	TargetScore int    `json:"targetScore"`
}

type betResponse struct {
	Success bool            `json:"success"`
	Bet     domain.DailyBet `json:"bet"`
}

func (h *Handler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var req placeBetRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.UserID == "" {
		h.writeError(w, r, domain.ErrInvalidInput)
		return
	}
	bet, err := h.ledger.PlaceBet(r.Context(), req.UserID, req.CoinsStaked, req.TargetScore)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, betResponse{Success: true, Bet: bet})
}

type resolveBetRequest struct {
	UserID  string `json:"userId"`
	Subject string `json:"subject"`
	Score   int    `json:"score"`
}

func (h *Handler) ResolveBet(w http.ResponseWriter, r *http.Request) {
	var req resolveBetRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.UserID == "" {
		h.writeError(w, r, domain.ErrInvalidInput)
		return
	}
	bet, err := h.ledger.ResolveBet(r.Context(), req.UserID, req.Subject, req.Score)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, betResponse{Success: true, Bet: bet})
}

type startDuelRequest struct {
	ChallengerID string `json:"challengerId"`
	OpponentID   string `json:"opponentId"`
	Subject      string `json:"subject"`
	CoinsWagered int64  `json:"coinsWagered"`
}

func (h *Handler) StartDuel(w http.ResponseWriter, r *http.Request) {
	var req startDuelRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	duel, err := h.ledger.StartDuel(r.Context(), app.DuelStart{
		ChallengerID: req.ChallengerID,
		OpponentID:   req.OpponentID,
		Subject:      req.Subject,
		CoinsWagered: req.CoinsWagered,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, duel)
}

// completeDuelRequest mirrors the client payload. winnerId and coinsWagered are
// accepted but the stored duel and the scores decide the outcome.
type completeDuelRequest struct {
	DuelID          string  `json:"duelId"`
	ChallengerID    string  `json:"challengerId"`
	OpponentID      string  `json:"opponentId"`
	ChallengerScore int     `json:"challengerScore"`
	OpponentScore   int     `json:"opponentScore"`
	WinnerID        *string `json:"winnerId"`
	CoinsWagered    int64   `json:"coinsWagered"`
}

type duelResponse struct {
	Success bool        `json:"success"`
	Duel    domain.Duel `json:"duel"`
}

func (h *Handler) CompleteDuel(w http.ResponseWriter, r *http.Request) {
	var req completeDuelRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.DuelID == "" {
		h.writeError(w, r, domain.ErrInvalidInput)
		return
	}
	duel, err := h.ledger.CompleteDuel(r.Context(), app.DuelResult{
		DuelID:          req.DuelID,
		ChallengerID:    req.ChallengerID,
		OpponentID:      req.OpponentID,
		ChallengerScore: req.ChallengerScore,
		OpponentScore:   req.OpponentScore,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, duelResponse{Success: true, Duel: duel})
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.Leaderboard(r.Context(), queryInt(r, "limit"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type createAccountRequest struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// accountResponse adds the derived level to the stored row.
type accountResponse struct {
	domain.Account
	Level int `json:"level"`
}

func newAccountResponse(a domain.Account) accountResponse {
	return accountResponse{Account: a, Level: a.Level()}
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	account, err := h.ledger.CreateAccount(r.Context(), app.NewAccount{
		ID:          req.ID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAccountResponse(account))
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.ledger.GetAccount(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(account))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	txs, err := h.ledger.History(r.Context(), mux.Vars(r)["id"], queryInt(r, "limit"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.ledger.Sessions(r.Context(), mux.Vars(r)["id"], queryInt(r, "limit"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []domain.QuizSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

type bountyView struct {
	domain.Bounty
	Period    string     `json:"period,omitempty"`
	Progress  int        `json:"progress"`
	Completed bool       `json:"completed"`
	Claimed   bool       `json:"claimed"`
	ClaimedAt *time.Time `json:"claimedAt,omitempty"`
}

func (h *Handler) Bounties(w http.ResponseWriter, r *http.Request) {
	progress, err := h.ledger.ListBounties(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	views := make([]bountyView, 0, len(progress))
	for _, p := range progress {
		views = append(views, bountyView{
			Bounty:    p.Bounty,
			Period:    p.Progress.Period,
			Progress:  p.Progress.Progress,
			Completed: p.Progress.Completed,
			Claimed:   p.Progress.Claimed,
			ClaimedAt: p.Progress.ClaimedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
