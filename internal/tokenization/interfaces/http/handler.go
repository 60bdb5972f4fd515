package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/fideitec/tokenization/internal/tokenization/application"
	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/fideitec/tokenization/pkg/response"
	"github.com/fideitec/tokenization/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// rateLimitOperationOrder 订单创建类操作的限流键
const rateLimitOperationOrder = "order.create"

// Handler 通证化 HTTP 处理器
type Handler struct {
	ledger    *application.LedgerService
	orders    *application.OrderService
	certs     *application.CertificateService
	approvals *application.ApprovalService
	anchor    *application.AnchorService
	limiter   *application.RateLimitService

	// autoAnchor 结算后是否自动发起链上锚定
	autoAnchor bool
}

// NewHandler 创建 HTTP 处理器
func NewHandler(
	ledger *application.LedgerService,
	orders *application.OrderService,
	certs *application.CertificateService,
	approvals *application.ApprovalService,
	anchor *application.AnchorService,
	limiter *application.RateLimitService,
	autoAnchor bool,
) *Handler {
	return &Handler{
		ledger:     ledger,
		orders:     orders,
		certs:      certs,
		approvals:  approvals,
		anchor:     anchor,
		limiter:    limiter,
		autoAnchor: autoAnchor,
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1/tokenization")

	assets := v1.Group("/assets")
	{
		assets.POST("", h.TokenizeAsset)
		assets.GET("", h.ListAssets)
		assets.GET("/:id", h.GetAsset)
		assets.POST("/:id/activate", h.ActivateAsset)
		assets.POST("/:id/pause", h.PauseAsset)
		assets.POST("/:id/resume", h.ResumeAsset)
		assets.POST("/:id/close", h.CloseAsset)
		assets.PUT("/:id/price", h.UpdateAssetPrice)
		assets.GET("/:id/holders", h.ListHolders)
		assets.GET("/:id/transactions", h.ListTransactions)
	}

	orders := v1.Group("/orders")
	{
		orders.POST("", RateLimitMiddleware(h.limiter, rateLimitOperationOrder), h.CreateOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/:number", h.GetOrder)
		orders.POST("/:number/start-payment", h.StartPayment)
		orders.POST("/:number/confirm-payment", h.ConfirmPayment)
		orders.POST("/:number/process", h.StartProcessing)
		orders.POST("/:number/complete", h.CompleteOrder)
		orders.POST("/:number/cancel", h.CancelOrder)
		orders.POST("/:number/refund", h.RefundOrder)
	}

	v1.POST("/instant-buy", RateLimitMiddleware(h.limiter, rateLimitOperationOrder), h.InstantBuy)

	certs := v1.Group("/certificates")
	{
		certs.GET("", h.ListCertificates)
		certs.GET("/:id", h.GetCertificate)
		certs.GET("/:id/document", h.RenderCertificate)
		certs.POST("/:id/certify-blockchain", h.AnchorCertificate)
		certs.GET("/verify/:code", h.VerifyCertificate)
	}

	approvals := v1.Group("/approvals")
	{
		approvals.POST("", h.RequestApproval)
		approvals.GET("", h.ListPendingApprovals)
		approvals.GET("/:id", h.GetApproval)
		approvals.GET("/:id/audits", h.ListApprovalAudits)
		approvals.POST("/:id/approve-tenant", h.ApproveTenant)
		approvals.POST("/:id/approve-platform", h.ApprovePlatform)
		approvals.POST("/:id/reject", h.RejectApproval)
		approvals.POST("/:id/execute", h.ExecuteApproval)
	}
}

// pagination 从查询参数解析分页
func pagination(c *gin.Context) *utils.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return utils.NewPagination(page, pageSize, 0)
}

// pagedResult 分页响应结构
type pagedResult struct {
	Items      interface{}       `json:"items"`
	Pagination *utils.Pagination `json:"pagination"`
}

func paged(items interface{}, p *utils.Pagination, total int64) pagedResult {
	return pagedResult{Items: items, Pagination: utils.NewPagination(p.Page, p.PageSize, total)}
}

// ---- 资产 ----

type tokenizeRequest struct {
	SourceType  string `json:"source_type" binding:"required,oneof=ASSET ASSET_UNIT TRUST"`
	SourceID    string `json:"source_id" binding:"required"`
	TokenName   string `json:"token_name" binding:"required"`
	TokenSymbol string `json:"token_symbol" binding:"required"`
	TotalSupply int64  `json:"total_supply" binding:"required,gt=0"`
	TokenPrice  string `json:"token_price" binding:"required"`
	Currency    string `json:"currency" binding:"required,len=3"`
}

// TokenizeAsset 通证化资产
func (h *Handler) TokenizeAsset(c *gin.Context) {
	var req tokenizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), codeInvalidRequest)
		return
	}
	price, err := decimal.NewFromString(req.TokenPrice)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid token_price", codeInvalidRequest)
		return
	}

	asset, err := h.ledger.Tokenize(c.Request.Context(), application.TokenizeCommand{
		TenantID:    c.GetHeader(headerTenantID),
		SourceType:  domain.SourceType(req.SourceType),
		SourceID:    req.SourceID,
		TokenName:   req.TokenName,
		TokenSymbol: req.TokenSymbol,
		TotalSupply: req.TotalSupply,
		TokenPrice:  price,
		Currency:    req.Currency,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, asset)
}

// ListAssets 获取租户资产列表
func (h *Handler) ListAssets(c *gin.Context) {
	p := pagination(c)
	assets, total, err := h.ledger.ListAssets(c.Request.Context(), c.GetHeader(headerTenantID), p.Limit(), p.Offset())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, paged(assets, p, total))
}

// GetAsset 获取资产
func (h *Handler) GetAsset(c *gin.Context) {
	asset, err := h.ledger.GetAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, asset)
}

// ActivateAsset 激活资产
func (h *Handler) ActivateAsset(c *gin.Context) {
	h.changeAssetStatus(c, h.ledger.Activate)
}

// PauseAsset 暂停资产
func (h *Handler) PauseAsset(c *gin.Context) {
	h.changeAssetStatus(c, h.ledger.Pause)
}

// ResumeAsset 恢复资产
func (h *Handler) ResumeAsset(c *gin.Context) {
	h.changeAssetStatus(c, h.ledger.Resume)
}

// CloseAsset 关闭资产
func (h *Handler) CloseAsset(c *gin.Context) {
	h.changeAssetStatus(c, h.ledger.Close)
}

func (h *Handler) changeAssetStatus(c *gin.Context, fn func(ctx context.Context, assetID string) (*domain.TokenizedAsset, error)) {
	asset, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, asset)
}

type updatePriceRequest struct {
	TokenPrice string `json:"token_price" binding:"required"`
}

// UpdateAssetPrice 更新资产单价
func (h *Handler) UpdateAssetPrice(c *gin.Context) {
	var req updatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), codeInvalidRequest)
		return
	}
	price, err := decimal.NewFromString(req.TokenPrice)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid token_price", codeInvalidRequest)
		return
	}
	if err := h.ledger.UpdatePrice(c.Request.Context(), c.Param("id"), price); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMessage(c, "price updated", nil)
}

// ListHolders 获取资产持有人列表
func (h *Handler) ListHolders(c *gin.Context) {
	holders, err := h.ledger.ListHolders(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, holders)
}

// ListTransactions 获取资产台账流水
func (h *Handler) ListTransactions(c *gin.Context) {
	p := pagination(c)
	txns, total, err := h.ledger.ListTransactions(c.Request.Context(), c.Param("id"), p.Limit(), p.Offset())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, paged(txns, p, total))
}
