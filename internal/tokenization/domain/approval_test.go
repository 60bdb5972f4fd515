package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApprovalStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    ApprovalStatus
		to      ApprovalStatus
		allowed bool
	}{
		{"requested to tenant approved", ApprovalStatusRequested, ApprovalStatusTenantApproved, true},
		{"requested to rejected", ApprovalStatusRequested, ApprovalStatusRejected, true},
		{"requested skips to fully approved", ApprovalStatusRequested, ApprovalStatusFullyApproved, false},
		{"requested skips to executed", ApprovalStatusRequested, ApprovalStatusExecuted, false},
		{"tenant approved to fully approved", ApprovalStatusTenantApproved, ApprovalStatusFullyApproved, true},
		{"tenant approved to rejected", ApprovalStatusTenantApproved, ApprovalStatusRejected, true},
		{"fully approved to executed", ApprovalStatusFullyApproved, ApprovalStatusExecuted, true},
		{"fully approved cannot be rejected", ApprovalStatusFullyApproved, ApprovalStatusRejected, false},
		{"rejected is terminal", ApprovalStatusRejected, ApprovalStatusTenantApproved, false},
		{"executed is terminal", ApprovalStatusExecuted, ApprovalStatusFullyApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestApprovalExecutable(t *testing.T) {
	req := NewApprovalRequest("APR-1", "tenant-1", "user-1", OperationTypeMint, "TKN-1", 100, "capital increase")
	assert.Equal(t, ApprovalStatusRequested, req.Status)
	assert.False(t, req.IsExecutable())

	req.Status = ApprovalStatusFullyApproved
	assert.True(t, req.IsExecutable())

	req.Status = ApprovalStatusExecuted
	assert.False(t, req.IsExecutable())
}
