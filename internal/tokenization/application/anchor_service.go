package application

import (
	"context"
	"fmt"
	"time"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/fideitec/tokenization/pkg/logger"
	"github.com/fideitec/tokenization/pkg/utils"
)

// submitAttempts 锚定提交重试次数
const submitAttempts = 3

// AnchorService 证书链上锚定应用服务
// 锚定在业务事务提交之后进行；交易哈希与认证标记仅在链上确认落块后写入，
// 提交或确认失败时证书保持未认证状态，可随时重试
type AnchorService struct {
	certRepo       domain.CertificateRepository
	chain          domain.ChainClient
	publisher      domain.EventPublisher
	submitTimeout  time.Duration
	confirmTimeout time.Duration
}

// NewAnchorService 创建锚定服务，chain 为 nil 时锚定不可用
func NewAnchorService(certRepo domain.CertificateRepository, chain domain.ChainClient, publisher domain.EventPublisher, submitTimeout, confirmTimeout time.Duration) *AnchorService {
	return &AnchorService{
		certRepo:       certRepo,
		chain:          chain,
		publisher:      publisher,
		submitTimeout:  submitTimeout,
		confirmTimeout: confirmTimeout,
	}
}

// Enabled 锚定是否可用
func (s *AnchorService) Enabled() bool {
	return s.chain != nil
}

// AnchorCertificate 将证书指纹锚定上链，幂等：已锚定的证书直接返回现有哈希
func (s *AnchorService) AnchorCertificate(ctx context.Context, certificateID string) (*domain.AnchorResult, error) {
	if s.chain == nil {
		return nil, domain.ErrAnchoringDisabled
	}

	cert, err := s.certRepo.Get(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if cert.IsBlockchainCertified {
		return &domain.AnchorResult{TxHash: cert.BlockchainTxHash}, nil
	}

	digest := utils.SHA256Hash(cert.Fingerprint())

	var result *domain.AnchorResult
	submitErr := utils.RetryWithBackoff(submitAttempts, 500*time.Millisecond, 5*time.Second, func() error {
		submitCtx, cancel := context.WithTimeout(ctx, s.submitTimeout)
		defer cancel()

		r, err := s.chain.SubmitAnchor(submitCtx, []byte(digest))
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if submitErr != nil {
		logger.Error(ctx, "Certificate anchoring failed",
			"certificate_id", certificateID,
			"error", submitErr,
		)
		return nil, submitErr
	}

	// 确认落块后才算锚定成功，回滚或超时的交易不得写入证书
	confirmCtx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()
	confirmed, err := s.chain.ConfirmTransaction(confirmCtx, result.TxHash)
	if err != nil {
		logger.Warn(ctx, "Anchor confirmation failed, certificate remains unanchored",
			"certificate_id", certificateID,
			"tx_hash", result.TxHash,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrAnchorNotConfirmed, err)
	}
	if !confirmed {
		logger.Error(ctx, "Anchor transaction reverted on chain",
			"certificate_id", certificateID,
			"tx_hash", result.TxHash,
		)
		return nil, domain.ErrAnchorNotConfirmed
	}

	attached, err := s.certRepo.AttachTxHash(ctx, certificateID, result.TxHash)
	if err != nil {
		return nil, err
	}
	if !attached {
		// 并发锚定先到一步，以落库结果为准
		existing, err := s.certRepo.Get(ctx, certificateID)
		if err != nil {
			return nil, err
		}
		return &domain.AnchorResult{TxHash: existing.BlockchainTxHash}, nil
	}

	if err := s.publisher.Publish(ctx, domain.EventTypeCertificateAnchored, domain.CertificateEvent{
		CertificateID:     cert.CertificateID,
		CertificateNumber: cert.CertificateNumber,
		TenantID:          cert.TenantID,
		OrderNumber:       cert.OrderNumber,
		AssetID:           cert.AssetID,
		TokenAmount:       cert.TokenAmount,
		BlockchainTxHash:  result.TxHash,
		OccurredAt:        time.Now(),
	}); err != nil {
		logger.Warn(ctx, "Failed to publish anchor event", "certificate_id", certificateID, "error", err)
	}

	logger.Info(ctx, "Certificate anchored",
		"certificate_id", certificateID,
		"tx_hash", result.TxHash,
	)
	return result, nil
}

// TryAnchor 尽力而为的锚定，用于结算后的自动锚定路径
// 任何失败只记日志，绝不向调用方传播
func (s *AnchorService) TryAnchor(ctx context.Context, certificateID string) {
	if s.chain == nil {
		return
	}
	if _, err := s.AnchorCertificate(ctx, certificateID); err != nil {
		logger.Warn(ctx, "Best-effort anchoring failed, certificate remains valid",
			"certificate_id", certificateID,
			"error", err,
		)
	}
}
