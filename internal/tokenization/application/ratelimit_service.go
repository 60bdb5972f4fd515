package application

import (
	"context"
	"time"

	"github.com/fideitec/tokenization/internal/tokenization/domain"
	"github.com/fideitec/tokenization/pkg/logger"
)

// RateLimitService 敏感操作滑动窗口限流
// 判定与登记都落在数据库记录上，多实例共享同一窗口；任何存储故障
// 一律放行（fail-open），限流器自身不能成为结算通道的故障点
type RateLimitService struct {
	repo      domain.RateLimitRepository
	enabled   bool
	maxOps    int
	window    time.Duration
	retention time.Duration
	sweepTick time.Duration
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewRateLimitService 创建限流服务
func NewRateLimitService(repo domain.RateLimitRepository, enabled bool, maxOps int, window, retention, sweepTick time.Duration) *RateLimitService {
	return &RateLimitService{
		repo:      repo,
		enabled:   enabled,
		maxOps:    maxOps,
		window:    window,
		retention: retention,
		sweepTick: sweepTick,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Check 判定是否放行，不登记
func (s *RateLimitService) Check(ctx context.Context, tenantID, userID, operation string) *domain.RateLimitDecision {
	if !s.enabled {
		return &domain.RateLimitDecision{Admitted: true, Max: s.maxOps, Remaining: s.maxOps}
	}

	since := time.Now().Add(-s.window)
	count, err := s.repo.CountInWindow(ctx, tenantID, userID, operation, since)
	if err != nil {
		// fail-open：统计失败时放行
		logger.Warn(ctx, "Rate limit check failed, admitting",
			"tenant_id", tenantID,
			"user_id", userID,
			"operation", operation,
			"error", err,
		)
		return &domain.RateLimitDecision{Admitted: true, Max: s.maxOps, Remaining: s.maxOps}
	}

	used := int(count)
	if used < s.maxOps {
		// 剩余配额按本次放行计入
		remaining := s.maxOps - used - 1
		if remaining < 0 {
			remaining = 0
		}
		return &domain.RateLimitDecision{Admitted: true, Used: used, Max: s.maxOps, Remaining: remaining}
	}

	resetIn := s.window
	if oldest, err := s.repo.OldestInWindow(ctx, tenantID, userID, operation, since); err == nil && !oldest.IsZero() {
		resetIn = time.Until(oldest.Add(s.window))
		if resetIn < 0 {
			resetIn = 0
		}
	}
	return &domain.RateLimitDecision{Admitted: false, Used: used, Max: s.maxOps, Remaining: 0, ResetIn: resetIn}
}

// Register 登记一次已放行的操作；登记失败只记日志，不影响业务结果
func (s *RateLimitService) Register(ctx context.Context, tenantID, userID, operation, targetID string) {
	if !s.enabled {
		return
	}
	record := &domain.RateLimitRecord{
		TenantID:  tenantID,
		UserID:    userID,
		Operation: operation,
		TargetID:  targetID,
	}
	if err := s.repo.Append(ctx, record); err != nil {
		logger.Warn(ctx, "Failed to register rate limit record",
			"tenant_id", tenantID,
			"user_id", userID,
			"operation", operation,
			"error", err,
		)
	}
}

// StartSweeper 启动后台清理，滑出保留期的记录定期删除
func (s *RateLimitService) StartSweeper() {
	if !s.enabled {
		close(s.doneCh)
		return
	}
	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(s.sweepTick)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				ctx := context.Background()
				deleted, err := s.repo.DeleteOlderThan(ctx, time.Now().Add(-s.retention))
				if err != nil {
					logger.Warn(ctx, "Rate limit sweep failed", "error", err)
					continue
				}
				if deleted > 0 {
					logger.Debug(ctx, "Rate limit records swept", "deleted", deleted)
				}
			}
		}
	}()
}

// StopSweeper 停止后台清理
func (s *RateLimitService) StopSweeper() {
	close(s.stopCh)
	<-s.doneCh
}
