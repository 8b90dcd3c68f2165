package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/iho/walletledger/internal/adapter/http/dto"
	"github.com/iho/walletledger/internal/adapter/http/middleware"
	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/infrastructure/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

var errForbidden = errors.New("account does not belong to the caller")

// Retrier re-runs an operation that failed on a transient storage conflict.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, dto.Success(message, data))
}

// writeError writes a failed envelope.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, dto.Failure(message, code))
}

// statusForKind maps ledger error kinds to HTTP status codes.
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidAmount, domain.KindInvalidCurrency, domain.KindPageOutOfRange:
		return http.StatusBadRequest
	case domain.KindAccountNotFound, domain.KindSenderNotFound, domain.KindReceiverNotFound, domain.KindUserNotFound:
		return http.StatusNotFound
	case domain.KindSameAccount, domain.KindInsufficientFunds, domain.KindAccountAlreadyExists, domain.KindUserAlreadyExists:
		return http.StatusConflict
	case domain.KindInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure renders any error returned by a use case or by request validation.
// Storage failures are logged and their cause is not exposed.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var verr *dto.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error(), "InvalidRequest")
		return
	case errors.Is(err, errForbidden):
		writeError(w, http.StatusForbidden, err.Error(), "Forbidden")
		return
	}

	kind := domain.KindOf(err)
	status := statusForKind(kind)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error().Err(err).Msg("request failed")
		message = "internal error"
	} else {
		var de *domain.Error
		if errors.As(err, &de) && de.Msg != "" {
			message = de.Msg
		}
	}
	writeError(w, status, message, kind.String())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "InvalidRequest")
		return false
	}
	return true
}

// callerOwner returns the authenticated owner id or writes 401.
func callerOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing caller identity", "Unauthorized")
	}
	return owner, ok
}

// parseIntQuery parses an integer query parameter with a default value.
// Malformed values yield -1 so that page validation rejects them.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return -1
	}
	return i
}
