package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/iho/walletledger/internal/adapter/http/dto"
)

func reject(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.Failure(message, code))
}
