package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/fideitec/tokenization/internal/tokenization/application"
	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/fideitec/tokenization/internal/tokenization/infrastructure/persistence/mysql"
	"github.com/fideitec/tokenization/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newLimitedRouter 构造一条挂了限流中间件的测试路由
func newLimitedRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.RateLimitRecord{}))

	limiter := application.NewRateLimitService(mysql.NewRateLimitRepository(db),
		true, 3, time.Hour, 2*time.Hour, time.Minute)

	engine := gin.New()
	engine.POST("/orders", RateLimitMiddleware(limiter, "order.create"), func(c *gin.Context) {
		response.Success(c, gin.H{"ok": true})
	})
	return engine
}

func TestRateLimitMiddlewareRejectionBody(t *testing.T) {
	engine := newLimitedRouter(t)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set("X-Tenant-ID", "tenant-1")
		req.Header.Set("X-User-ID", "user-1")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 3; i++ {
		w := do()
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, strconv.Itoa(2-i), w.Header().Get("X-RateLimit-Remaining"))
	}

	w := do()
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// 拒绝响应体携带已用次数、配额上限与重置倒计时
	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Data    struct {
			OperationsUsed int   `json:"operations_used"`
			MaxOperations  int   `json:"max_operations"`
			ResetIn        int64 `json:"reset_in"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, codeRateLimitExceeded, envelope.Error)
	assert.Equal(t, 3, envelope.Data.OperationsUsed)
	assert.Equal(t, 3, envelope.Data.MaxOperations)
	assert.Positive(t, envelope.Data.ResetIn)
}

func TestRateLimitMiddlewareRequiresIdentityHeaders(t *testing.T) {
	engine := newLimitedRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
