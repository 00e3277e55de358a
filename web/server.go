package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"contestbet/service"
)

// Server exposes the betting and settlement services over HTTP
type Server struct {
	betting    service.BettingService
	settlement service.SettlementService
	accounts   service.AccountService
	contests   service.ContestService
}

// NewServer creates a new HTTP server over the given services
func NewServer(betting service.BettingService, settlement service.SettlementService, accounts service.AccountService, contests service.ContestService) *Server {
	return &Server{
		betting:    betting,
		settlement: settlement,
		accounts:   accounts,
		contests:   contests,
	}
}

// Router returns the HTTP handler for all endpoints
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bets", s.placeBet)
	mux.HandleFunc("/coefficient", s.coefficient)
	mux.HandleFunc("/candidates", s.listCandidates)
	mux.HandleFunc("/contests/current", s.currentContest)
	// /contests/{id} and /contests/{id}/settle
	mux.HandleFunc("/contests/", s.contestSubroutes)
	// /accounts/{id} and /accounts/{id}/bets
	mux.HandleFunc("/accounts/", s.accountSubroutes)
	return mux
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.AccountID == 0 || req.ContestID == 0 || req.CandidateID == 0 {
		http.Error(w, "account_id, contest_id and candidate_id are required", http.StatusBadRequest)
		return
	}

	bet, err := s.betting.PlaceBet(r.Context(), req.AccountID, req.CandidateID, req.ContestID, req.Amount)
	if err != nil {
		if betErr, ok := service.AsBetError(err); ok {
			writeJSON(w, http.StatusUnprocessableEntity, rejectedOutcome(betErr, req.Amount))
			return
		}
		log.WithError(err).Error("Failed to place bet")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, &BetOutcome{OK: true, Bet: toBetResponse(bet)})
}

func (s *Server) coefficient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	contestID, err1 := strconv.ParseInt(r.URL.Query().Get("contest_id"), 10, 64)
	candidateID, err2 := strconv.ParseInt(r.URL.Query().Get("candidate_id"), 10, 64)
	if err1 != nil || err2 != nil {
		http.Error(w, "contest_id and candidate_id are required", http.StatusBadRequest)
		return
	}

	coefficient, err := s.betting.CurrentCoefficient(r.Context(), contestID, candidateID)
	if err != nil {
		log.WithError(err).Error("Failed to compute coefficient")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, &CoefficientResponse{
		ContestID:   contestID,
		CandidateID: candidateID,
		Coefficient: coefficient.StringFixed(2),
	})
}

func (s *Server) listCandidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	candidates, err := s.contests.GetCandidates(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to get candidates")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	responses := make([]*CandidateResponse, 0, len(candidates))
	for _, candidate := range candidates {
		responses = append(responses, toCandidateResponse(candidate))
	}
	writeJSON(w, http.StatusOK, responses)
}

func (s *Server) currentContest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	contest, err := s.contests.GetCurrentContest(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to get current contest")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if contest == nil {
		http.Error(w, "no contest is currently open", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toContestResponse(contest, time.Now()))
}

// contestSubroutes handles /contests/{id} and /contests/{id}/settle
func (s *Server) contestSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/contests/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	contestID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.Error(w, "invalid contest id", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.getContest(w, r, contestID)
	case len(parts) == 2 && parts[1] == "settle" && r.Method == http.MethodPost:
		s.settleContest(w, r, contestID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) getContest(w http.ResponseWriter, r *http.Request, contestID int64) {
	contest, err := s.contests.GetContest(r.Context(), contestID)
	if err != nil {
		log.WithError(err).Error("Failed to get contest")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if contest == nil {
		http.Error(w, "contest not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toContestResponse(contest, time.Now()))
}

func (s *Server) settleContest(w http.ResponseWriter, r *http.Request, contestID int64) {
	result, err := s.settlement.Settle(r.Context(), contestID)
	if err != nil {
		log.WithError(err).WithField("contest_id", contestID).Error("Failed to settle contest")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementResponse(result))
}

// accountSubroutes handles /accounts/{id} and /accounts/{id}/bets
func (s *Server) accountSubroutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/accounts/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	accountID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.Error(w, "invalid account id", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1:
		s.getAccount(w, r, accountID)
	case len(parts) == 2 && parts[1] == "bets":
		s.getAccountBets(w, r, accountID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request, accountID int64) {
	account, err := s.accounts.GetAccount(r.Context(), accountID)
	if err != nil {
		log.WithError(err).Error("Failed to get account")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if account == nil {
		http.Error(w, "account not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) getAccountBets(w http.ResponseWriter, r *http.Request, accountID int64) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	bets, err := s.betting.GetBetHistory(r.Context(), accountID, limit)
	if err != nil {
		log.WithError(err).Error("Failed to get bet history")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	responses := make([]*BetResponse, 0, len(bets))
	for _, bet := range bets {
		responses = append(responses, toBetResponse(bet))
	}
	writeJSON(w, http.StatusOK, responses)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}
