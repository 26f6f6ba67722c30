package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/logging"
	"github.com/layer-3/walletauth/service"
)

// Handlers contains HTTP handlers for the wallet endpoints
type Handlers struct {
	auth   *service.AuthService
	wallet *service.WalletService
	log    logging.Logger
}

// NewHandlers creates new wallet handlers
func NewHandlers(auth *service.AuthService, wallet *service.WalletService, log logging.Logger) *Handlers {
	return &Handlers{
		auth:   auth,
		wallet: wallet,
		log:    log,
	}
}

type connectRequest struct {
	PublicKey string `json:"publicKey" binding:"required"`
	Network   string `json:"network" binding:"required"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

type transferRequest struct {
	AssetCode       string `json:"assetCode" binding:"required"`
	Issuer          string `json:"issuer"`
	Amount          string `json:"amount" binding:"required"`
	TransactionHash string `json:"transactionHash" binding:"required"`
}

// Connect issues a challenge, or verifies one when nonce and signature are present.
func (h *Handlers) Connect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid request"})
		return
	}

	if (req.Nonce == "") != (req.Signature == "") {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Signature and nonce must be provided together"})
		return
	}

	ctx := c.Request.Context()
	if req.Nonce == "" {
		challenge, err := h.auth.CreateChallenge(ctx, req.PublicKey, req.Network)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "challenge",
			"nonce":     challenge.Nonce,
			"message":   challenge.Message,
			"expiresAt": formatTime(challenge.ExpiresAt),
		})
		return
	}

	session, err := h.auth.VerifyChallenge(ctx, req.PublicKey, req.Network, req.Nonce, req.Signature)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "connected",
		"sessionToken": session.Token,
		"publicKey":    session.Address,
		"network":      session.Network,
		"expiresAt":    formatTime(session.ExpiresAt),
	})
}

func (h *Handlers) Session(c *gin.Context) {
	session := sessionFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"publicKey": session.Address,
		"network":   session.Network,
		"expiresAt": formatTime(session.ExpiresAt),
	})
}

func (h *Handlers) Disconnect(c *gin.Context) {
	if err := h.auth.Disconnect(c.Request.Context(), sessionFrom(c).Token); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

func (h *Handlers) Balances(c *gin.Context) {
	session := sessionFrom(c)
	balances, err := h.wallet.GetBalances(c.Request.Context(), session)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondBalances(c, session, balances)
}

// RefreshBalances answers like Balances but skips the balance cache.
func (h *Handlers) RefreshBalances(c *gin.Context) {
	session := sessionFrom(c)
	balances, err := h.wallet.RefreshBalances(c.Request.Context(), session)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondBalances(c, session, balances)
}

func (h *Handlers) respondBalances(c *gin.Context, session *core.Session, balances []core.Balance) {
	c.JSON(http.StatusOK, gin.H{
		"publicKey": session.Address,
		"network":   session.Network,
		"balances":  balances,
	})
}

func (h *Handlers) Transactions(c *gin.Context) {
	// A limit that is not a number falls back to the default.
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = 0
	}

	history, err := h.wallet.GetHistory(c.Request.Context(), sessionFrom(c), limit, c.Query("cursor"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handlers) Purchase(c *gin.Context) {
	h.recordTransfer(c, core.DirectionIncoming)
}

func (h *Handlers) Spend(c *gin.Context) {
	h.recordTransfer(c, core.DirectionOutgoing)
}

func (h *Handlers) recordTransfer(c *gin.Context, direction core.Direction) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid request"})
		return
	}

	transfer, err := h.wallet.RecordTransfer(c.Request.Context(), sessionFrom(c), core.TransferRequest{
		Direction:       direction,
		AssetCode:       req.AssetCode,
		Issuer:          req.Issuer,
		Amount:          req.Amount,
		TransactionHash: req.TransactionHash,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded", "transaction": transfer})
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
