package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"solana-staking-ledger/internal/ledger"
)

var (
	errBadRequest    = errors.New("bad request")
	errNotConfigured = errors.New("not configured")
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

// writeError maps err to a status code and a stable error label.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := ledger.ErrorKind(err)
	switch {
	case errors.Is(err, errBadRequest):
		kind = "bad_request"
	case errors.Is(err, errNotConfigured):
		kind = "not_configured"
	}

	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Str("kind", kind).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: kind, Message: err.Error()})
}

func statusFor(kind string) int {
	switch kind {
	case "bad_request", "invalid_amount", "invalid_address":
		return http.StatusBadRequest
	case "unauthorized":
		return http.StatusUnauthorized
	case "pool_not_found", "position_not_found", "account_not_found":
		return http.StatusNotFound
	case "pool_exists":
		return http.StatusConflict
	case "insufficient_stake", "no_rewards_to_claim", "arithmetic_overflow",
		"insufficient_funds", "mint_mismatch", "owner_mismatch", "invalid_transfer":
		return http.StatusUnprocessableEntity
	case "not_configured":
		return http.StatusNotImplemented
	case "clock_unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
