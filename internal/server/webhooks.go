package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type webhookEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	OrderID string `json:"order_id"`
}

// PaymentWebhook handles payment gateway notifications. Deliveries are
// deduplicated by event ID when the guard is enabled; a failed transition
// releases the claim so the gateway retry gets another attempt.
func (s *Server) PaymentWebhook(c *gin.Context) {
	event, orderID, ok := s.bindWebhookEvent(c)
	if !ok {
		return
	}

	token, fresh, err := s.webhookGuard.Claim(c.Request.Context(), "payment", event.EventID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !fresh {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	switch event.Type {
	case "payment.captured":
		err = s.orderSvc.MarkPaid(c.Request.Context(), orderID)
	case "payment.failed":
		err = s.orderSvc.Cancel(c.Request.Context(), orderID, "payment failed")
	default:
		s.log.Info("ignoring payment webhook event", zap.String("type", event.Type))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if err != nil {
		if releaseErr := s.webhookGuard.Release(c.Request.Context(), "payment", event.EventID, token); releaseErr != nil {
			s.log.Warn("webhook claim release failed", zap.Error(releaseErr))
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

// PayoutWebhook handles settlement notifications from the payout pipeline.
func (s *Server) PayoutWebhook(c *gin.Context) {
	event, orderID, ok := s.bindWebhookEvent(c)
	if !ok {
		return
	}

	token, fresh, err := s.webhookGuard.Claim(c.Request.Context(), "payout", event.EventID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !fresh {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	if event.Type != "payout.settled" {
		s.log.Info("ignoring payout webhook event", zap.String("type", event.Type))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := s.orderSvc.MarkSettled(c.Request.Context(), orderID); err != nil {
		if releaseErr := s.webhookGuard.Release(c.Request.Context(), "payout", event.EventID, token); releaseErr != nil {
			s.log.Warn("webhook claim release failed", zap.Error(releaseErr))
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

func (s *Server) bindWebhookEvent(c *gin.Context) (webhookEvent, snowflake.ID, bool) {
	var event webhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "request body is not valid JSON"))
		return event, 0, false
	}
	if strings.TrimSpace(event.EventID) == "" {
		AbortWithError(c, newValidationError("event_id", "missing_event_id", "event_id is required"))
		return event, 0, false
	}
	orderID, err := snowflake.ParseString(strings.TrimSpace(event.OrderID))
	if err != nil {
		AbortWithError(c, newValidationError("order_id", "invalid_order_id", "invalid order_id"))
		return event, 0, false
	}
	return event, orderID, true
}
