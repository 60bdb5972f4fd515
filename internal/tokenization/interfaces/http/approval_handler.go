package http

import (
	"net/http"

	"github.com/fideitec/tokenization/internal/tokenization/application"
	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/fideitec/tokenization/pkg/response"
	"github.com/gin-gonic/gin"
)

type requestApprovalRequest struct {
	Operation string `json:"operation" binding:"required,oneof=MINT BURN TRANSFER"`
	AssetID   string `json:"asset_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	FromType  string `json:"from_type"`
	FromID    string `json:"from_id"`
	ToType    string `json:"to_type"`
	ToID      string `json:"to_id"`
	Reason    string `json:"reason" binding:"required"`
}

// RequestApproval 发起双签审批
func (h *Handler) RequestApproval(c *gin.Context) {
	var req requestApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), codeInvalidRequest)
		return
	}

	approval, err := h.approvals.Request(c.Request.Context(), application.RequestApprovalCommand{
		TenantID:    c.GetHeader(headerTenantID),
		RequestedBy: c.GetHeader(headerUserID),
		Operation:   domain.OperationType(req.Operation),
		AssetID:     req.AssetID,
		Amount:      req.Amount,
		FromType:    domain.HolderType(req.FromType),
		FromID:      req.FromID,
		ToType:      domain.HolderType(req.ToType),
		ToID:        req.ToID,
		Reason:      req.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, approval)
}

// ListPendingApprovals 获取租户待处理审批
func (h *Handler) ListPendingApprovals(c *gin.Context) {
	p := pagination(c)
	approvals, total, err := h.approvals.ListPending(c.Request.Context(), c.GetHeader(headerTenantID), p.Limit(), p.Offset())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, paged(approvals, p, total))
}

// GetApproval 获取审批请求
func (h *Handler) GetApproval(c *gin.Context) {
	approval, err := h.approvals.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, approval)
}

// ListApprovalAudits 获取审批轨迹
func (h *Handler) ListApprovalAudits(c *gin.Context) {
	audits, err := h.approvals.ListAudits(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, audits)
}

// ApproveTenant 租户级审批
func (h *Handler) ApproveTenant(c *gin.Context) {
	approval, err := h.approvals.ApproveTenant(c.Request.Context(), c.Param("id"), c.GetHeader(headerUserID))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, approval)
}

// ApprovePlatform 平台级审批
func (h *Handler) ApprovePlatform(c *gin.Context) {
	approval, err := h.approvals.ApprovePlatform(c.Request.Context(), c.Param("id"), c.GetHeader(headerUserID))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, approval)
}

// RejectApproval 拒绝审批
func (h *Handler) RejectApproval(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), codeInvalidRequest)
		return
	}
	approval, err := h.approvals.Reject(c.Request.Context(), c.Param("id"), c.GetHeader(headerUserID), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, approval)
}

// ExecuteApproval 执行已获双签的审批
func (h *Handler) ExecuteApproval(c *gin.Context) {
	approval, err := h.approvals.Execute(c.Request.Context(), c.Param("id"), c.GetHeader(headerUserID))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, approval)
}
