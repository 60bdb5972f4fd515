// Package http 提供通证化服务的 HTTP 接口层
package http

import (
	"errors"
	"net/http"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/fideitec/tokenization/pkg/response"
	"github.com/gin-gonic/gin"
)

// 错误码，客户端据此做分支处理
const (
	codeNotFound            = "NOT_FOUND"
	codeInvalidRequest      = "INVALID_REQUEST"
	codeInvalidAmount       = "INVALID_AMOUNT"
	codeInvalidTransition   = "INVALID_STATE_TRANSITION"
	codeAssetNotActive      = "ASSET_NOT_ACTIVE"
	codeAssetClosed         = "ASSET_CLOSED"
	codeInsufficientBalance = "INSUFFICIENT_BALANCE"
	codeSupplyInvariant     = "SUPPLY_INVARIANT_VIOLATED"
	codeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	codeApprovalNotReady    = "APPROVAL_NOT_EXECUTABLE"
	codeSameApprover        = "SAME_APPROVER"
	codeAnchoringDisabled   = "ANCHORING_DISABLED"
	codeAnchorNotConfirmed  = "ANCHOR_NOT_CONFIRMED"
	codeRendererUnavailable = "RENDERER_UNAVAILABLE"
	codeInternalError       = "INTERNAL_ERROR"
)

// writeError 将领域错误映射为 HTTP 状态码与错误码
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrAssetNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrCertificateNotFound),
		errors.Is(err, domain.ErrApprovalNotFound),
		errors.Is(err, domain.ErrHolderNotFound):
		response.ErrorWithStatus(c, http.StatusNotFound, err.Error(), codeNotFound)
	case errors.Is(err, domain.ErrInvalidAmount):
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), codeInvalidAmount)
	case errors.Is(err, domain.ErrInvalidStateTransition):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), codeInvalidTransition)
	case errors.Is(err, domain.ErrAssetNotActive):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), codeAssetNotActive)
	case errors.Is(err, domain.ErrAssetClosed):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), codeAssetClosed)
	case domain.IsInsufficientBalance(err):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), codeInsufficientBalance)
	case errors.Is(err, domain.ErrSupplyInvariantViolated):
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), codeSupplyInvariant)
	case errors.Is(err, domain.ErrRateLimitExceeded):
		response.ErrorWithStatus(c, http.StatusTooManyRequests, err.Error(), codeRateLimitExceeded)
	case errors.Is(err, domain.ErrApprovalNotExecutable):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), codeApprovalNotReady)
	case errors.Is(err, domain.ErrSameApprover):
		response.ErrorWithStatus(c, http.StatusConflict, err.Error(), codeSameApprover)
	case errors.Is(err, domain.ErrAnchoringDisabled):
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, err.Error(), codeAnchoringDisabled)
	case errors.Is(err, domain.ErrAnchorNotConfirmed):
		response.ErrorWithStatus(c, http.StatusBadGateway, err.Error(), codeAnchorNotConfirmed)
	case errors.Is(err, domain.ErrRendererUnavailable):
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, err.Error(), codeRendererUnavailable)
	default:
		response.ErrorWithStatus(c, http.StatusInternalServerError, "internal server error", codeInternalError)
	}
}
