package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func buildCertificate() *Certificate {
	return &Certificate{
		CertificateID:     "CRT-1",
		CertificateNumber: "CERT-tenant-1-42",
		VerificationCode:  "a3f9c2",
		TenantID:          "tenant-1",
		OrderNumber:       "ORD-42",
		AssetID:           "TKN-1",
		TokenAmount:       10,
		TotalValueAtIssue: decimal.RequireFromString("1000.00"),
		Currency:          "USD",
		IssuedAt:          time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestCertificateFingerprintDeterministic(t *testing.T) {
	a := buildCertificate()
	b := buildCertificate()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestCertificateFingerprintSensitivity(t *testing.T) {
	base := buildCertificate().Fingerprint()

	mutated := buildCertificate()
	mutated.TokenAmount = 11
	assert.NotEqual(t, base, mutated.Fingerprint())

	mutated = buildCertificate()
	mutated.TotalValueAtIssue = decimal.RequireFromString("1000.01")
	assert.NotEqual(t, base, mutated.Fingerprint())

	mutated = buildCertificate()
	mutated.OrderNumber = "ORD-43"
	assert.NotEqual(t, base, mutated.Fingerprint())
}
