package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	feeconfigdomain "github.com/storekit/vendra/internal/feeconfig/domain"
	"github.com/storekit/vendra/internal/merchantctx"
)

const merchantHeader = "X-Merchant-ID"

// RequestCacheMiddleware installs the per-request fee config memo before any
// handler runs, so every Resolve inside the request shares one view.
func RequestCacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := feeconfigdomain.WithRequestCache(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// MerchantContextMiddleware resolves the acting merchant from the request
// header and stores it in the context. Routes registered behind it can rely
// on requireMerchant.
func MerchantContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(merchantHeader))
		if raw != "" {
			if merchantID, err := snowflake.ParseString(raw); err == nil {
				ctx := merchantctx.WithMerchantID(c.Request.Context(), merchantID)
				c.Request = c.Request.WithContext(ctx)
			}
		}
		c.Next()
	}
}

func requireMerchant(c *gin.Context) (snowflake.ID, bool) {
	merchantID, ok := merchantctx.MerchantIDFromContext(c.Request.Context())
	if !ok || merchantID == 0 {
		AbortWithError(c, newValidationError("merchant_id", "missing_merchant", "merchant header is required"))
		return 0, false
	}
	return merchantID, true
}
