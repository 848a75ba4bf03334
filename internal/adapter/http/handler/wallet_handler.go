package handler

import (
	"strconv"
	"time"

	"cointracker/internal/adapter/http/dto"
	"cointracker/internal/core/domain"
	"cointracker/internal/core/ports"
	"cointracker/pkg/apperror"
	"cointracker/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Create handles POST /api/v1/wallets.
func (h *WalletHandler) Create(c *gin.Context) {
	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	wallet, err := h.walletSvc.Create(c.Request.Context(), req.Address)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWalletResponse(&ports.WalletDetail{Wallet: *wallet}))
}

// List handles GET /api/v1/wallets.
func (h *WalletHandler) List(c *gin.Context) {
	details, err := h.walletSvc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.WalletResponse, 0, len(details))
	for i := range details {
		out = append(out, toWalletResponse(&details[i]))
	}
	response.OK(c, out)
}

// Get handles GET /api/v1/wallets/:address.
func (h *WalletHandler) Get(c *gin.Context) {
	detail, err := h.walletSvc.Get(c.Request.Context(), c.Param("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletResponse(detail))
}

// Delete handles DELETE /api/v1/wallets/:address.
func (h *WalletHandler) Delete(c *gin.Context) {
	address := c.Param("address")
	if err := h.walletSvc.Delete(c.Request.Context(), address); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"address": address, "deleted": true})
}

// GetBalance handles GET /api/v1/wallets/:address/balance.
// With ?live=true the balance comes from the provider instead of the
// last completed sync.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	live := c.Query("live") == "true"

	info, err := h.walletSvc.GetBalance(c.Request.Context(), c.Param("address"), live)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		Address:      info.Address,
		Balance:      info.Balance,
		SyncStatus:   string(info.SyncStatus),
		LastSyncedAt: formatTimePtr(info.LastSyncedAt),
		Live:         info.Live,
	})
}

// ListTransactions handles GET /api/v1/wallets/:address/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	limit := intQuery(c, "limit", 0)
	offset := intQuery(c, "offset", 0)

	page, err := h.walletSvc.ListTransactions(c.Request.Context(), c.Param("address"), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(page.Transactions))
	for i := range page.Transactions {
		items = append(items, toTransactionResponse(&page.Transactions[i]))
	}

	response.OK(c, dto.TransactionListResponse{
		Items:  items,
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func toWalletResponse(d *ports.WalletDetail) dto.WalletResponse {
	return dto.WalletResponse{
		ID:               d.ID.String(),
		Address:          d.Address,
		Balance:          d.Balance,
		SyncStatus:       string(d.SyncStatus),
		TransactionCount: d.TransactionCount,
		LastSyncedAt:     formatTimePtr(d.LastSyncedAt),
		CreatedAt:        d.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toTransactionResponse(t *domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		TxID:        t.TxID,
		BlockHeight: t.BlockHeight,
		Timestamp:   formatTimePtr(t.Timestamp),
		Value:       t.Value,
		Direction:   string(t.Direction),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
