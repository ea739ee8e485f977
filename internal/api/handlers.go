package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"solana-staking-ledger/internal/auth"
	"solana-staking-ledger/internal/ledger"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.GetHealth(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListPools(w http.ResponseWriter, r *http.Request) {
	pools, err := s.ledger.Pools(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]poolResponse, 0, len(pools))
	for _, p := range pools {
		resp = append(resp, newPoolResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePoolAddress(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	addr, err := s.ledger.PoolAddress(q.Get("authority"), q.Get("staking_mint"), q.Get("reward_mint"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addressResponse{Address: addr})
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	p, err := s.ledger.Pool(r.Context(), chi.URLParam(r, "pool"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPoolResponse(p))
}

func (s *Server) handleVaults(w http.ResponseWriter, r *http.Request) {
	staking, reward, err := s.ledger.Vaults(r.Context(), chi.URLParam(r, "pool"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vaultsResponse{
		Staking: newAccountResponse(staking),
		Reward:  newAccountResponse(reward),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	after, err := parseUintParam(q.Get("after"), 0)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: after: %v", errBadRequest, err))
		return
	}
	limit, err := parseUintParam(q.Get("limit"), 100)
	if err != nil || limit > 1000 {
		writeError(w, r, fmt.Errorf("%w: limit must be between 0 and 1000", errBadRequest))
		return
	}

	list, err := s.ledger.Events(r.Context(), chi.URLParam(r, "pool"), after, int(limit))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEventMessages(list))
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.ledger.Positions(r.Context(), chi.URLParam(r, "pool"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]positionResponse, 0, len(positions))
	for _, p := range positions {
		resp = append(resp, newPositionResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	pos, err := s.ledger.Position(r.Context(), chi.URLParam(r, "pool"), chi.URLParam(r, "owner"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPositionResponse(pos))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.analytics == nil {
		writeError(w, r, fmt.Errorf("%w: analytics store", errNotConfigured))
		return
	}

	q := r.URL.Query()
	from, err := parseIntParam(q.Get("from"), 0)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: from: %v", errBadRequest, err))
		return
	}
	to, err := parseIntParam(q.Get("to"), 1<<62)
	if err != nil || to < from {
		writeError(w, r, fmt.Errorf("%w: to must be an integer not before from", errBadRequest))
		return
	}

	list, err := s.analytics.GetByTimeRange(r.Context(), chi.URLParam(r, "pool"), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEventMessages(list))
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if s.analytics == nil {
		writeError(w, r, fmt.Errorf("%w: analytics store", errNotConfigured))
		return
	}

	pool := chi.URLParam(r, "pool")
	totals, err := s.analytics.TotalsByKind(r.Context(), pool)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := totalsResponse{Pool: pool, Totals: make(map[string]string, len(totals))}
	for kind, total := range totals {
		resp.Totals[kind.String()] = strconv.FormatUint(total, 10)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	report, err := s.auditor.AuditPool(r.Context(), chi.URLParam(r, "pool"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAuditResponse(report))
}

func (s *Server) handleInitializePool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req initializePoolRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	authority := req.Intent.Principal
	poolAddr, err := s.ledger.PoolAddress(authority, req.StakingMint, req.RewardMint)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.Intent.Pool != poolAddr || req.Intent.Amount != req.RewardRate {
		writeError(w, r, fmt.Errorf("%w: intent does not match the requested pool", auth.ErrMalformedIntent))
		return
	}
	if err := s.verify(r, req.Intent, auth.OpInitializePool); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.ledger.InitializePool(ctx, ledger.InitializePoolParams{
		Authority:   authority,
		StakingMint: req.StakingMint,
		RewardMint:  req.RewardMint,
		RewardRate:  req.RewardRate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPoolResponse(p))
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	intent, ok := s.poolIntent(w, r, auth.OpStake)
	if !ok {
		return
	}
	stake, err := s.ledger.Stake(r.Context(), intent.Pool, intent.Principal, intent.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStakeResponse(stake))
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	intent, ok := s.poolIntent(w, r, auth.OpUnstake)
	if !ok {
		return
	}
	stake, err := s.ledger.Unstake(r.Context(), intent.Pool, intent.Principal, intent.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStakeResponse(stake))
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	intent, ok := s.poolIntent(w, r, auth.OpClaim)
	if !ok {
		return
	}
	claimed, err := s.ledger.Claim(r.Context(), intent.Pool, intent.Principal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{Claimed: claimed})
}

func (s *Server) handleFund(w http.ResponseWriter, r *http.Request) {
	intent, ok := s.poolIntent(w, r, auth.OpFundRewards)
	if !ok {
		return
	}
	p, err := s.ledger.FundRewards(r.Context(), intent.Pool, intent.Principal, intent.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPoolResponse(p))
}

func (s *Server) handleTokenAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := s.ledger.TokenAccount(r.Context(), chi.URLParam(r, "owner"), chi.URLParam(r, "mint"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(acct))
}

func (s *Server) handleCreditAccount(w http.ResponseWriter, r *http.Request) {
	if s.adminToken == "" {
		writeError(w, r, fmt.Errorf("%w: admin token", errNotConfigured))
		return
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
		writeError(w, r, fmt.Errorf("%w: admin token", ledger.ErrUnauthorized))
		return
	}

	var req creditAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	acct, err := s.ledger.CreditAccount(r.Context(), req.Owner, req.Mint, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(acct))
}

// poolIntent decodes and verifies a signed intent for op on the pool in the URL.
// On failure the error response has already been written.
func (s *Server) poolIntent(w http.ResponseWriter, r *http.Request, op string) (auth.Intent, bool) {
	var intent auth.Intent
	if err := decodeJSON(r, &intent); err != nil {
		writeError(w, r, err)
		return intent, false
	}
	if intent.Pool != chi.URLParam(r, "pool") {
		writeError(w, r, fmt.Errorf("%w: intent pool does not match the url", auth.ErrMalformedIntent))
		return intent, false
	}
	if err := s.verify(r, intent, op); err != nil {
		writeError(w, r, err)
		return intent, false
	}
	return intent, true
}

func (s *Server) verify(r *http.Request, intent auth.Intent, op string) error {
	now, err := s.clock.Now(r.Context())
	if err != nil {
		return err
	}
	return s.verifier.Verify(intent, op, now)
}

func parseUintParam(v string, def uint64) (uint64, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseUint(v, 10, 64)
}

func parseIntParam(v string, def int64) (int64, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseInt(v, 10, 64)
}
