package http

import (
	"net/http"
	"strconv"

	"github.com/fideitec/tokenization/internal/tokenization/application"
	"github.com/fideitec/tokenization/pkg/response"
	"github.com/gin-gonic/gin"
)

// 租户与用户身份由上游网关注入
const (
	headerTenantID = "X-Tenant-ID"
	headerUserID   = "X-User-ID"
)

// rateLimitInfo 429 响应体中的配额信息
type rateLimitInfo struct {
	OperationsUsed int   `json:"operations_used"`
	MaxOperations  int   `json:"max_operations"`
	ResetIn        int64 `json:"reset_in"`
}

// RateLimitMiddleware 敏感操作限流中间件
// 放行前只做判定，业务处理成功（2xx）后才登记，失败的请求不消耗配额
func RateLimitMiddleware(limiter *application.RateLimitService, operation string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader(headerTenantID)
		userID := c.GetHeader(headerUserID)
		if tenantID == "" || userID == "" {
			response.AbortWithStatus(c, http.StatusBadRequest, "tenant and user headers are required", codeInvalidRequest)
			return
		}

		decision := limiter.Check(c.Request.Context(), tenantID, userID, operation)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Admitted {
			c.Header("Retry-After", strconv.Itoa(int(decision.ResetIn.Seconds())))
			response.AbortWithStatusData(c, http.StatusTooManyRequests, "rate limit exceeded for "+operation, codeRateLimitExceeded, rateLimitInfo{
				OperationsUsed: decision.Used,
				MaxOperations:  decision.Max,
				ResetIn:        int64(decision.ResetIn.Seconds()),
			})
			return
		}

		c.Next()

		if c.Writer.Status() >= 200 && c.Writer.Status() < 300 {
			limiter.Register(c.Request.Context(), tenantID, userID, operation, "")
		}
	}
}
