package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/walletauth/core"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

// errorTable maps domain errors to responses. The first match wins.
var errorTable = []errorMapping{
	{core.ErrInvalidAddress, http.StatusBadRequest, "Invalid Stellar public key"},
	{core.ErrUnsupportedNetwork, http.StatusBadRequest, "Unsupported Stellar network"},
	{core.ErrInvalidAsset, http.StatusBadRequest, "Invalid asset"},
	{core.ErrExceedsPrecision, http.StatusBadRequest, "Amount has too many decimal places"},
	{core.ErrInvalidFormat, http.StatusBadRequest, "Invalid amount"},
	{core.ErrInvalidTransactionHash, http.StatusBadRequest, "Invalid transaction hash"},

	{core.ErrChallengeNotFound, http.StatusUnauthorized, "Challenge not found or already used"},
	{core.ErrChallengeMismatch, http.StatusUnauthorized, "Challenge does not match wallet"},
	{core.ErrChallengeExpired, http.StatusUnauthorized, "Challenge expired"},
	{core.ErrInvalidSignature, http.StatusUnauthorized, "Invalid wallet signature"},
	{core.ErrSessionNotFound, http.StatusUnauthorized, "Wallet session not found"},
	{core.ErrSessionExpired, http.StatusUnauthorized, "Wallet session expired"},

	{core.ErrTransactionNotFound, http.StatusNotFound, "Transaction not found"},
	{core.ErrTransactionUnsuccessful, http.StatusBadRequest, "Transaction was not successful"},
	{core.ErrTransactionMismatch, http.StatusBadRequest, "Transaction does not match the claimed transfer"},
	{core.ErrLedgerUnavailable, http.StatusBadGateway, "Stellar network is unavailable"},
}

func errorResponse(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, "Internal error"
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	status, message := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"status": "error", "message": message})
}
