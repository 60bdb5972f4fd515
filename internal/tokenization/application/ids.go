// Package application 实现通证化资产台账与订单结算的应用服务
package application

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/fideitec/tokenization/pkg/utils"
)

// IDGenerator 业务 ID 生成器，雪花 ID 加业务前缀
type IDGenerator struct {
	snowflake *utils.SnowflakeID
}

// NewIDGenerator 创建业务 ID 生成器
func NewIDGenerator(nodeID int64) *IDGenerator {
	return &IDGenerator{snowflake: utils.NewSnowflakeID(nodeID)}
}

// AssetID 生成资产 ID
func (g *IDGenerator) AssetID() string {
	return "TKN-" + strconv.FormatInt(g.snowflake.Generate(), 10)
}

// OrderNumber 生成订单号
func (g *IDGenerator) OrderNumber() string {
	return "ORD-" + strconv.FormatInt(g.snowflake.Generate(), 10)
}

// CertificateID 生成证书 ID
func (g *IDGenerator) CertificateID() string {
	return "CRT-" + strconv.FormatInt(g.snowflake.Generate(), 10)
}

// CertificateNumber 生成证书编号
func (g *IDGenerator) CertificateNumber(tenantID string) string {
	return fmt.Sprintf("CERT-%s-%d", tenantID, g.snowflake.Generate())
}

// TransactionID 生成台账流水 ID
func (g *IDGenerator) TransactionID() string {
	return "TXN-" + strconv.FormatInt(g.snowflake.Generate(), 10)
}

// ApprovalID 生成审批 ID
func (g *IDGenerator) ApprovalID() string {
	return "APR-" + strconv.FormatInt(g.snowflake.Generate(), 10)
}

// VerificationCode 生成证书核验码，128 位加密随机数
// 核验码与证书编号无关，不可从编号推测
func (g *IDGenerator) VerificationCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
