package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/storekit/vendra/internal/ledger/domain"
)

type ledgerEntryResponse struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

func (s *Server) ListOrderLedger(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}
	if _, err := s.orderSvc.GetByID(c.Request.Context(), merchantID, orderID); err != nil {
		AbortWithError(c, err)
		return
	}

	entries, err := s.ledgerSvc.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]ledgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, ledgerEntryResponse{
			ID:          entry.ID.String(),
			OrderID:     entry.OrderID.String(),
			Type:        string(entry.Type),
			Amount:      entry.Amount.Int64(),
			Status:      string(entry.Status),
			Description: entry.Description,
			CreatedAt:   entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetEffectiveFeeConfig(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}

	cfg, err := s.feeConfigSvc.Resolve(c.Request.Context(), merchantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{
		"fixed_fee_paise":  cfg.FixedFeePaise.Int64(),
		"variable_fee_bps": cfg.VariableFeeBps,
		"fee_cap_paise":    cfg.FeeCapPaise.Int64(),
		"payout_frequency": string(cfg.PayoutFreq),
		"holdback_bps":     cfg.HoldbackBps,
		"is_payout_hold":   cfg.IsPayoutHold,
	}
	if cfg.SourcePackageID != nil {
		resp["package_id"] = cfg.SourcePackageID.String()
		resp["package_name"] = cfg.SourcePackageName
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SettlementSummary(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}

	status := ledgerdomain.EntryStatus(strings.ToUpper(strings.TrimSpace(c.DefaultQuery("status", string(ledgerdomain.EntryStatusProcessing)))))
	switch status {
	case ledgerdomain.EntryStatusPending, ledgerdomain.EntryStatusProcessing, ledgerdomain.EntryStatusSettled:
	default:
		AbortWithError(c, newValidationError("status", "invalid_status", "unknown ledger status"))
		return
	}

	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return
	}

	now := s.clock.Now()
	windowFrom := now.AddDate(0, -1, 0)
	if from != nil {
		windowFrom = *from
	}
	windowTo := now
	if to != nil {
		windowTo = *to
	}

	total, err := s.ledgerSvc.SettlementTotals(c.Request.Context(), merchantID, status, windowFrom, windowTo)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"status":       string(status),
		"from":         windowFrom.UTC().Format(time.RFC3339),
		"to":           windowTo.UTC().Format(time.RFC3339),
		"payout_paise": total.Int64(),
	}})
}
