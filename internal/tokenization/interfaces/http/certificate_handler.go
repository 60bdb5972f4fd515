package http

import (
	"net/http"

	"github.com/fideitec/tokenization/pkg/response"
	"github.com/gin-gonic/gin"
)

// ListCertificates 获取租户证书列表
func (h *Handler) ListCertificates(c *gin.Context) {
	p := pagination(c)
	certs, total, err := h.certs.List(c.Request.Context(), c.GetHeader(headerTenantID), p.Limit(), p.Offset())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, paged(certs, p, total))
}

// GetCertificate 获取证书
func (h *Handler) GetCertificate(c *gin.Context) {
	cert, err := h.certs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, cert)
}

// VerifyCertificate 根据核验码核验证书，公开接口
func (h *Handler) VerifyCertificate(c *gin.Context) {
	cert, err := h.certs.Verify(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, cert)
}

// RenderCertificate 渲染证书文档
func (h *Handler) RenderCertificate(c *gin.Context) {
	doc, err := h.certs.Render(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/pdf", doc)
}

// AnchorCertificate 将证书指纹锚定上链，幂等
func (h *Handler) AnchorCertificate(c *gin.Context) {
	result, err := h.anchor.AnchorCertificate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}
