package application

import (
	"context"
	"time"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/fideitec/tokenization/pkg/logger"
)

// CertificateService 证书应用服务
type CertificateService struct {
	certRepo  domain.CertificateRepository
	renderer  domain.DocumentRenderer
	publisher domain.EventPublisher
	ids       *IDGenerator
}

// NewCertificateService 创建证书应用服务，renderer 可为 nil
func NewCertificateService(
	certRepo domain.CertificateRepository,
	renderer domain.DocumentRenderer,
	publisher domain.EventPublisher,
	ids *IDGenerator,
) *CertificateService {
	return &CertificateService{
		certRepo:  certRepo,
		renderer:  renderer,
		publisher: publisher,
		ids:       ids,
	}
}

// IssueForOrder 为已结算订单签发证书，必须在结算事务内调用
// 证书价值按订单冻结总额固定，签发后永不重算
func (s *CertificateService) IssueForOrder(ctx context.Context, order *domain.Order, beneficiaryName, beneficiaryDocument string) (*domain.Certificate, error) {
	code, err := s.ids.VerificationCode()
	if err != nil {
		return nil, err
	}
	if beneficiaryName == "" {
		beneficiaryName = order.ClientID
	}

	cert := &domain.Certificate{
		CertificateID:       s.ids.CertificateID(),
		CertificateNumber:   s.ids.CertificateNumber(order.TenantID),
		VerificationCode:    code,
		TenantID:            order.TenantID,
		OrderNumber:         order.OrderNumber,
		AssetID:             order.AssetID,
		BeneficiaryName:     beneficiaryName,
		BeneficiaryDocument: beneficiaryDocument,
		TokenAmount:         order.TokenAmount,
		TotalValueAtIssue:   order.TotalAmount,
		Currency:            order.Currency,
		IssuedAt:            time.Now(),
	}
	if err := s.certRepo.Save(ctx, cert); err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, domain.EventTypeCertificateIssued, domain.CertificateEvent{
		CertificateID:     cert.CertificateID,
		CertificateNumber: cert.CertificateNumber,
		TenantID:          cert.TenantID,
		OrderNumber:       cert.OrderNumber,
		AssetID:           cert.AssetID,
		TokenAmount:       cert.TokenAmount,
		OccurredAt:        cert.IssuedAt,
	}); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Certificate issued",
		"certificate_id", cert.CertificateID,
		"certificate_number", cert.CertificateNumber,
		"order_number", order.OrderNumber,
	)
	return cert, nil
}

// Get 获取证书
func (s *CertificateService) Get(ctx context.Context, certificateID string) (*domain.Certificate, error) {
	return s.certRepo.Get(ctx, certificateID)
}

// GetByOrder 根据订单号获取证书
func (s *CertificateService) GetByOrder(ctx context.Context, orderNumber string) (*domain.Certificate, error) {
	return s.certRepo.GetByOrder(ctx, orderNumber)
}

// List 获取租户证书分页列表
func (s *CertificateService) List(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Certificate, int64, error) {
	return s.certRepo.List(ctx, tenantID, limit, offset)
}

// Verify 根据核验码核验证书，第三方无需登录即可验真
func (s *CertificateService) Verify(ctx context.Context, code string) (*domain.Certificate, error) {
	return s.certRepo.GetByVerificationCode(ctx, code)
}

// Render 渲染证书文档
func (s *CertificateService) Render(ctx context.Context, certificateID string) ([]byte, error) {
	cert, err := s.certRepo.Get(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if s.renderer == nil {
		return nil, domain.ErrRendererUnavailable
	}
	return s.renderer.Render(ctx, cert)
}
