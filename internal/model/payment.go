package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentStatus 支付状态
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
)

// IsSettled 已结清（成功或已退款）的支付不可再发起
func (s PaymentStatus) IsSettled() bool {
	return s == PaymentCompleted || s == PaymentRefunded
}

// PaymentMethod 支付方式
type PaymentMethod string

const (
	PaymentVNPay        PaymentMethod = "VNPAY"
	PaymentMoMo         PaymentMethod = "MOMO"
	PaymentCash         PaymentMethod = "CASH"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// Payment 支付表 — 对应 payments
// 每个预约至多一条支付记录；PaymentID 同时作为网关交易参考号
type Payment struct {
	PaymentID       string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"payment_id"`
	AppointmentID   string           `gorm:"type:uuid;not null;uniqueIndex"                 json:"appointment_id"`
	PatientID       string           `gorm:"type:uuid;not null"                             json:"patient_id"`
	Amount          decimal.Decimal  `gorm:"type:numeric(15,2);not null"                    json:"amount"`
	Method          PaymentMethod    `gorm:"type:varchar(20);not null"                      json:"method"`
	Status          PaymentStatus    `gorm:"type:varchar(20);not null;default:'PENDING'"    json:"status"`
	TransactionID   string           `gorm:"type:varchar(100)"                              json:"transaction_id,omitempty"`
	GatewayResponse datatypes.JSON   `gorm:"type:jsonb"                                     json:"gateway_response,omitempty"` // 回调原始参数
	PaidAt          *time.Time       `json:"paid_at,omitempty"`
	RefundedAt      *time.Time       `json:"refunded_at,omitempty"`
	RefundAmount    *decimal.Decimal `gorm:"type:numeric(15,2)"                             json:"refund_amount,omitempty"`
	VersionedModel
}

func (Payment) TableName() string { return "payments" }
