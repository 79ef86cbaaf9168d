package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/storekit/vendra/internal/platformbilling/domain"
)

type invoiceResponse struct {
	ID            string             `json:"id"`
	InvoiceNumber string             `json:"invoice_number"`
	MerchantID    string             `json:"merchant_id"`
	PeriodStart   string             `json:"period_start"`
	PeriodEnd     string             `json:"period_end"`
	PlatformFee   int64              `json:"platform_fee"`
	GSTRate       int64              `json:"gst_rate_percent"`
	GSTAmount     int64              `json:"gst_amount"`
	Total         int64              `json:"total"`
	IssuedAt      string             `json:"issued_at"`
	LineItems     []lineItemResponse `json:"line_items"`
}

type lineItemResponse struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

func toInvoiceResponse(invoice billingdomain.PlatformInvoice) invoiceResponse {
	items := make([]lineItemResponse, 0, len(invoice.LineItems))
	for _, item := range invoice.LineItems {
		items = append(items, lineItemResponse{
			Description: item.Description,
			Amount:      item.Amount.Int64(),
		})
	}
	return invoiceResponse{
		ID:            invoice.ID.String(),
		InvoiceNumber: invoice.InvoiceNumber,
		MerchantID:    invoice.MerchantID.String(),
		PeriodStart:   invoice.PeriodStart.UTC().Format(time.RFC3339),
		PeriodEnd:     invoice.PeriodEnd.UTC().Format(time.RFC3339),
		PlatformFee:   invoice.PlatformFee.Int64(),
		GSTRate:       invoice.GSTRatePercent,
		GSTAmount:     invoice.GSTAmount.Int64(),
		Total:         invoice.Total.Int64(),
		IssuedAt:      invoice.IssuedAt.UTC().Format(time.RFC3339),
		LineItems:     items,
	}
}

func (s *Server) ComputePeriodFees(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
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
	if from == nil || to == nil {
		AbortWithError(c, newValidationError("from", "missing_period", "from and to are required"))
		return
	}

	fees, err := s.billingSvc.ComputeFeesForPeriod(c.Request.Context(), merchantID, *from, *to)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"platform_fee": fees.PlatformFee.Int64(),
		"gst_amount":   fees.GSTAmount.Int64(),
		"total":        fees.Total.Int64(),
	}})
}

func (s *Server) ListPlatformInvoices(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}

	invoices, err := s.billingSvc.ListInvoices(c.Request.Context(), merchantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]invoiceResponse, 0, len(invoices))
	for _, invoice := range invoices {
		resp = append(resp, toInvoiceResponse(invoice))
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type openCycleRequest struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

func (s *Server) OpenBillingCycle(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}

	var req openCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "request body is not valid JSON"))
		return
	}
	start, err := time.Parse(time.RFC3339, req.PeriodStart)
	if err != nil {
		AbortWithError(c, newValidationError("period_start", "invalid_time", "expected RFC3339 timestamp"))
		return
	}
	end, err := time.Parse(time.RFC3339, req.PeriodEnd)
	if err != nil {
		AbortWithError(c, newValidationError("period_end", "invalid_time", "expected RFC3339 timestamp"))
		return
	}

	cycle, err := s.billingSvc.OpenCycle(c.Request.Context(), merchantID, start, end)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{
		"id":           cycle.ID.String(),
		"merchant_id":  cycle.MerchantID.String(),
		"period_start": cycle.PeriodStart.UTC().Format(time.RFC3339),
		"period_end":   cycle.PeriodEnd.UTC().Format(time.RFC3339),
		"status":       string(cycle.Status),
	}})
}

func (s *Server) GenerateCycleInvoice(c *gin.Context) {
	if _, ok := requireMerchant(c); !ok {
		return
	}
	cycleID, ok := parseIDParam(c)
	if !ok {
		return
	}

	invoice, err := s.billingSvc.GenerateCycleInvoice(c.Request.Context(), cycleID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": toInvoiceResponse(invoice)})
}
