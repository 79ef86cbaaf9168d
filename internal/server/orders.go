package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/storekit/vendra/internal/money"
	orderdomain "github.com/storekit/vendra/internal/order/domain"
)

type createOrderRequest struct {
	ItemsTotal     int64 `json:"items_total"`
	ShippingFee    int64 `json:"shipping_fee"`
	TaxAmount      int64 `json:"tax_amount"`
	DiscountAmount int64 `json:"discount_amount"`
}

type orderResponse struct {
	ID            string `json:"id"`
	OrderNumber   string `json:"order_number"`
	MerchantID    string `json:"merchant_id"`
	ItemsTotal    int64  `json:"items_total"`
	ShippingFee   int64  `json:"shipping_fee"`
	TaxAmount     int64  `json:"tax_amount"`
	Discount      int64  `json:"discount_amount"`
	GrossAmount   int64  `json:"gross_amount"`
	PlatformFee   int64  `json:"platform_fee"`
	NetPayable    int64  `json:"net_payable"`
	Stage         string `json:"stage"`
	PaymentStatus string `json:"payment_status"`
	CreatedAt     string `json:"created_at"`
}

func toOrderResponse(order orderdomain.Order) orderResponse {
	return orderResponse{
		ID:            order.ID.String(),
		OrderNumber:   order.OrderNumber,
		MerchantID:    order.MerchantID.String(),
		ItemsTotal:    order.ItemsTotal.Int64(),
		ShippingFee:   order.ShippingFee.Int64(),
		TaxAmount:     order.TaxAmount.Int64(),
		Discount:      order.DiscountAmount.Int64(),
		GrossAmount:   order.GrossAmount.Int64(),
		PlatformFee:   order.PlatformFee.Int64(),
		NetPayable:    order.NetPayable.Int64(),
		Stage:         string(order.Stage),
		PaymentStatus: string(order.PaymentStatus),
		CreatedAt:     order.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) CreateOrder(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "request body is not valid JSON"))
		return
	}

	order, err := s.orderSvc.Create(c.Request.Context(), orderdomain.CreateOrderRequest{
		MerchantID:     merchantID,
		ItemsTotal:     money.Paise(req.ItemsTotal),
		ShippingFee:    money.Paise(req.ShippingFee),
		TaxAmount:      money.Paise(req.TaxAmount),
		DiscountAmount: money.Paise(req.DiscountAmount),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": toOrderResponse(order)})
}

func (s *Server) GetOrderByID(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}

	order, err := s.orderSvc.GetByID(c.Request.Context(), merchantID, orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toOrderResponse(order)})
}

func (s *Server) ListOrders(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}

	req := orderdomain.ListOrdersRequest{MerchantID: merchantID}
	if raw := strings.TrimSpace(c.Query("stage")); raw != "" {
		stage := orderdomain.Stage(strings.ToUpper(raw))
		req.Stage = &stage
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a non-negative integer"))
			return
		}
		req.Limit = limit
	}
	if from, ok := parseTimeQuery(c, "from"); ok {
		req.CreatedFrom = from
	} else {
		return
	}
	if to, ok := parseTimeQuery(c, "to"); ok {
		req.CreatedTo = to
	} else {
		return
	}

	orders, err := s.orderSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, toOrderResponse(order))
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) CancelOrder(c *gin.Context) {
	merchantID, ok := requireMerchant(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c)
	if !ok {
		return
	}
	// Ownership check before the state change.
	if _, err := s.orderSvc.GetByID(c.Request.Context(), merchantID, orderID); err != nil {
		AbortWithError(c, err)
		return
	}

	var req cancelOrderRequest
	_ = c.ShouldBindJSON(&req)
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "merchant requested"
	}

	if err := s.orderSvc.Cancel(c.Request.Context(), orderID, reason); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func parseIDParam(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return 0, false
	}
	return id, true
}

// parseTimeQuery reads an optional RFC3339 query parameter. The second
// return is false only when the value is present and malformed; the handler
// has already aborted in that case.
func parseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		AbortWithError(c, newValidationError(name, "invalid_time", "expected RFC3339 timestamp"))
		return nil, false
	}
	return &parsed, true
}
