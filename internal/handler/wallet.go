package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridecore/internal/domain"
	"ridecore/internal/service"
)

// WalletHandler exposes read-only projections of the ledger.
type WalletHandler struct {
	walletService *service.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletService *service.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// WalletResponse is the HTTP projection of a wallet.
type WalletResponse struct {
	OwnerID   string  `json:"owner_id"`
	OwnerType string  `json:"owner_type"`
	Balance   float64 `json:"balance"`
}

// TransactionResponse is the HTTP projection of a ledger entry.
type TransactionResponse struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Amount        float64 `json:"amount"`
	BalanceBefore float64 `json:"balance_before"`
	BalanceAfter  float64 `json:"balance_after"`
	Reason        string  `json:"reason"`
	ReferenceType string  `json:"reference_type,omitempty"`
	ReferenceID   string  `json:"reference_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// GetBalance handles GET /v1/wallets/:ownerType/:ownerId
func (h *WalletHandler) GetBalance(c *gin.Context) {
	ownerType, ok := parseOwnerType(c.Param("ownerType"))
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid owner type"})
		return
	}

	wallet, err := h.walletService.GetBalance(c.Request.Context(), c.Param("ownerId"), ownerType)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, WalletResponse{
		OwnerID:   wallet.OwnerID,
		OwnerType: string(wallet.OwnerType),
		Balance:   wallet.Balance,
	})
}

// GetTransactions handles GET /v1/wallets/:ownerType/:ownerId/transactions
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	ownerType, ok := parseOwnerType(c.Param("ownerType"))
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid owner type"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	txns, err := h.walletService.GetTransactions(c.Request.Context(), c.Param("ownerId"), ownerType, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		resp = append(resp, TransactionResponse{
			ID:            txn.ID,
			Type:          string(txn.Type),
			Amount:        txn.Amount,
			BalanceBefore: txn.BalanceBefore,
			BalanceAfter:  txn.BalanceAfter,
			Reason:        txn.Reason,
			ReferenceType: txn.ReferenceType,
			ReferenceID:   txn.ReferenceID,
			CreatedAt:     formatTime(txn.CreatedAt),
		})
	}

	respondJSON(c, http.StatusOK, resp)
}

func parseOwnerType(raw string) (domain.WalletOwnerType, bool) {
	switch domain.WalletOwnerType(raw) {
	case domain.WalletOwnerRider:
		return domain.WalletOwnerRider, true
	case domain.WalletOwnerDriver:
		return domain.WalletOwnerDriver, true
	default:
		return "", false
	}
}
