package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-booking/backend/internal/model"
	pkgerrors "clinic-booking/backend/pkg/errors"
)

// PaymentRepository 支付数据访问接口
type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id string) (*model.Payment, error)
	// GetByIDForUpdate 加行锁读取支付，回调并发到达时串行处理
	GetByIDForUpdate(ctx context.Context, id string) (*model.Payment, error)
	GetByAppointmentID(ctx context.Context, appointmentID string) (*model.Payment, error)
	// Update 基于 version 的乐观锁更新
	Update(ctx context.Context, p *model.Payment) error
}

type paymentRepo struct {
	db *gorm.DB
}

// NewPaymentRepo 创建 PaymentRepository 实例
func NewPaymentRepo(db *gorm.DB) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) Create(ctx context.Context, p *model.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *paymentRepo) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).Where("payment_id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payment_id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) GetByAppointmentID(ctx context.Context, appointmentID string) (*model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).Where("appointment_id = ?", appointmentID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) Update(ctx context.Context, p *model.Payment) error {
	oldVersion := p.Version
	result := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("payment_id = ? AND version = ?", p.PaymentID, oldVersion).
		Updates(map[string]interface{}{
			"amount":           p.Amount,
			"method":           p.Method,
			"status":           p.Status,
			"transaction_id":   p.TransactionID,
			"gateway_response": p.GatewayResponse,
			"paid_at":          p.PaidAt,
			"refunded_at":      p.RefundedAt,
			"refund_amount":    p.RefundAmount,
			"version":          oldVersion + 1,
			"updated_at":       gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	p.Version = oldVersion + 1
	return nil
}
