package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"clinic-booking/backend/config"
	"clinic-booking/backend/internal/dto"
	"clinic-booking/backend/internal/model"
	"clinic-booking/backend/internal/repository"
	pkgerrors "clinic-booking/backend/pkg/errors"
	"clinic-booking/backend/pkg/vnpay"
)

// CallbackResult 网关回调处理结果
type CallbackResult struct {
	PaymentID    string
	Status       model.PaymentStatus
	ResponseCode string
	// AlreadySettled 支付此前已结清，本次回调未改变状态
	AlreadySettled bool
}

// PaymentService 支付对账业务接口
type PaymentService interface {
	// BuildPaymentRequest 创建（或复用）PENDING 支付并返回签名后的网关跳转地址
	BuildPaymentRequest(ctx context.Context, actor Actor, appointmentID, clientIP string) (*dto.PaymentURLResponse, error)
	// HandleCallback 验签并落地网关回调；验签失败不改变任何状态
	HandleCallback(ctx context.Context, query url.Values) (*CallbackResult, error)
	Refund(ctx context.Context, actor Actor, paymentID string, amount decimal.Decimal) (*dto.PaymentResponse, error)
	GetByAppointment(ctx context.Context, actor Actor, appointmentID string) (*dto.PaymentResponse, error)
}

type paymentService struct {
	cfg    *config.PaymentConfig
	repo   *repository.Repository
	signer *vnpay.Signer
	owner  ownership
	logger *zap.Logger
	now    func() time.Time
}

// NewPaymentService 创建 PaymentService 实例
func NewPaymentService(cfg *config.PaymentConfig, repo *repository.Repository, signer *vnpay.Signer, logger *zap.Logger) PaymentService {
	return &paymentService{
		cfg:    cfg,
		repo:   repo,
		signer: signer,
		owner:  ownership{repo: repo, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

var minorUnits = decimal.NewFromInt(100)

// toMinorUnits 网关金额以最小货币单位（×100）传输
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnits).IntPart()
}

// ────────────────────── Outbound ──────────────────────

func (s *paymentService) BuildPaymentRequest(ctx context.Context, actor Actor, appointmentID, clientIP string) (*dto.PaymentURLResponse, error) {
	appt, err := s.repo.Appointment.GetByID(ctx, appointmentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("查询预约失败", zap.String("id", appointmentID), zap.Error(err))
		return nil, err
	}

	ok, err := s.owner.isPatientOwner(ctx, actor, appt.PatientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotOwner
	}
	if appt.Status == model.AppointmentCancelled {
		return nil, ErrAppointmentCancelled
	}

	doctor := appt.Doctor
	if doctor == nil {
		if doctor, err = s.repo.Catalog.GetDoctor(ctx, appt.DoctorID); err != nil {
			if repository.IsNotFound(err) {
				return nil, ErrDoctorNotFound
			}
			return nil, err
		}
	}
	fee := doctor.ConsultationFee
	if !fee.IsPositive() {
		return nil, ErrFeeNotConfigured
	}

	var (
		payment *model.Payment
		ref     string
	)
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		existing, err := txRepo.Payment.GetByAppointmentID(ctx, appointmentID)
		switch {
		case err == nil:
			if existing.Status.IsSettled() {
				return ErrPaymentAlreadySettled
			}
			// 一个预约只保留一条支付记录，未成功的重新置为 PENDING 复用
			existing.Status = model.PaymentPending
			existing.Amount = fee
			existing.Method = model.PaymentVNPay
			existing.TransactionID = ""
			existing.PaidAt = nil
			payment = existing
			if err := txRepo.Payment.Update(ctx, existing); err != nil {
				return err
			}
			ref = txnRef(existing.PaymentID, existing.Version)
			return nil
		case repository.IsNotFound(err):
			payment = &model.Payment{
				AppointmentID: appt.AppointmentID,
				PatientID:     appt.PatientID,
				Amount:        fee,
				Method:        model.PaymentVNPay,
				Status:        model.PaymentPending,
			}
			if err := txRepo.Payment.Create(ctx, payment); err != nil {
				if repository.IsUniqueViolation(err) {
					return pkgerrors.ErrOptimisticLock
				}
				return err
			}
			ref = payment.PaymentID
			return nil
		default:
			return err
		}
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("创建支付记录失败", zap.String("appointment_id", appointmentID), zap.Error(err))
		}
		return nil, err
	}

	params := s.requestParams(payment, ref, appt, clientIP)
	payURL := s.signer.BuildURL(s.cfg.PayURL, params)

	s.logger.Info("已生成支付链接",
		zap.String("payment_id", payment.PaymentID),
		zap.String("txn_ref", ref),
		zap.String("appointment_id", appointmentID),
		zap.String("amount", fee.String()))

	return &dto.PaymentURLResponse{
		PaymentID:  payment.PaymentID,
		PaymentURL: payURL,
		Amount:     fee.String(),
	}, nil
}

// txnRef 网关交易参考号。首次发起即支付记录 ID；复用记录重新发起时追加版本号，
// 网关不接受重复的参考号
func txnRef(paymentID string, version int) string {
	return fmt.Sprintf("%s-%d", paymentID, version)
}

// paymentIDFromRef 从参考号中取出支付记录 ID
func paymentIDFromRef(ref string) (string, error) {
	const idLen = 36
	if len(ref) > idLen && ref[idLen] == '-' {
		if _, err := strconv.Atoi(ref[idLen+1:]); err != nil {
			return "", err
		}
		ref = ref[:idLen]
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// requestParams 组装网关请求参数
func (s *paymentService) requestParams(p *model.Payment, ref string, appt *model.Appointment, clientIP string) map[string]string {
	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	created := s.now().In(loc)

	params := map[string]string{
		"vnp_Version":        s.cfg.Version,
		"vnp_Command":        s.cfg.Command,
		"vnp_TmnCode":        s.cfg.TmnCode,
		vnpay.ParamAmount:    strconv.FormatInt(toMinorUnits(p.Amount), 10),
		"vnp_CurrCode":       s.cfg.CurrCode,
		vnpay.ParamTxnRef:    ref,
		vnpay.ParamOrderInfo: fmt.Sprintf("Thanh toan lich hen %s", appt.AppointmentID),
		"vnp_OrderType":      s.cfg.OrderType,
		"vnp_Locale":         s.cfg.Locale,
		"vnp_ReturnUrl":      s.cfg.ReturnURL,
		"vnp_IpAddr":         clientIP,
		"vnp_CreateDate":     created.Format(vnpay.TimeLayout),
	}
	if s.cfg.ExpireAfter > 0 {
		params["vnp_ExpireDate"] = created.Add(s.cfg.ExpireAfter).Format(vnpay.TimeLayout)
	}
	return params
}

// ────────────────────── Inbound ──────────────────────

func (s *paymentService) HandleCallback(ctx context.Context, query url.Values) (*CallbackResult, error) {
	params, ok := s.signer.VerifyCallback(query)
	if !ok {
		s.logger.Warn("支付回调验签失败", zap.String("txn_ref", params[vnpay.ParamTxnRef]))
		return nil, ErrInvalidSignature
	}

	ref := params[vnpay.ParamTxnRef]
	paymentID, err := paymentIDFromRef(ref)
	if err != nil {
		return nil, ErrPaymentNotFound
	}
	code := params[vnpay.ParamResponseCode]

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	// 验签通过的回调无论结果如何都归档，金额不一致在提交后再返回错误
	var amountMismatch bool
	result := &CallbackResult{PaymentID: paymentID, ResponseCode: code}
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		p, err := txRepo.Payment.GetByIDForUpdate(ctx, paymentID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrPaymentNotFound
			}
			return err
		}
		p.GatewayResponse = datatypes.JSON(raw)

		switch {
		case params[vnpay.ParamAmount] != strconv.FormatInt(toMinorUnits(p.Amount), 10):
			s.logger.Warn("支付回调金额不一致",
				zap.String("payment_id", paymentID),
				zap.String("callback_amount", params[vnpay.ParamAmount]),
				zap.String("amount", p.Amount.String()))
			amountMismatch = true
		case p.Status.IsSettled():
			// 已结清的支付不被后续回调覆盖，重复的成功回调保留首次 paidAt
			result.AlreadySettled = true
		case code == s.cfg.SuccessCode:
			now := s.now()
			p.Status = model.PaymentCompleted
			p.PaidAt = &now
			p.TransactionID = params[vnpay.ParamTransactionNo]
		default:
			p.Status = model.PaymentFailed
		}
		result.Status = p.Status
		return txRepo.Payment.Update(ctx, p)
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("处理支付回调失败", zap.String("payment_id", paymentID), zap.Error(err))
		}
		return nil, err
	}
	if amountMismatch {
		return nil, ErrAmountMismatch
	}

	s.logger.Info("支付回调已处理",
		zap.String("payment_id", paymentID),
		zap.String("txn_ref", ref),
		zap.String("response_code", code),
		zap.String("status", string(result.Status)),
		zap.Bool("already_settled", result.AlreadySettled))

	return result, nil
}

// ────────────────────── Refund ──────────────────────

func (s *paymentService) Refund(ctx context.Context, actor Actor, paymentID string, amount decimal.Decimal) (*dto.PaymentResponse, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotOwner
	}

	var payment *model.Payment
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		p, err := txRepo.Payment.GetByIDForUpdate(ctx, paymentID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrPaymentNotFound
			}
			return err
		}
		if p.Status != model.PaymentCompleted {
			return fmt.Errorf("%w: 只有已支付的记录可以退款", ErrInvalidRefund)
		}
		if !amount.IsPositive() || amount.GreaterThan(p.Amount) {
			return fmt.Errorf("%w: 退款金额须大于 0 且不超过 %s", ErrInvalidRefund, p.Amount.String())
		}

		now := s.now()
		refund := amount
		p.Status = model.PaymentRefunded
		p.RefundedAt = &now
		p.RefundAmount = &refund
		payment = p
		return txRepo.Payment.Update(ctx, p)
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error("退款失败", zap.String("payment_id", paymentID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("支付已退款",
		zap.String("payment_id", paymentID),
		zap.String("amount", amount.String()),
		zap.String("operator", actor.UserID))

	resp := toPaymentResponse(payment)
	return &resp, nil
}

// ────────────────────── Read ──────────────────────

func (s *paymentService) GetByAppointment(ctx context.Context, actor Actor, appointmentID string) (*dto.PaymentResponse, error) {
	appt, err := s.repo.Appointment.GetByID(ctx, appointmentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	if err := s.owner.canAccessAppointment(ctx, actor, appt, true); err != nil {
		return nil, err
	}

	p, err := s.repo.Payment.GetByAppointmentID(ctx, appointmentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrPaymentNotFound
		}
		s.logger.Error("查询支付记录失败", zap.String("appointment_id", appointmentID), zap.Error(err))
		return nil, err
	}

	resp := toPaymentResponse(p)
	return &resp, nil
}

func toPaymentResponse(p *model.Payment) dto.PaymentResponse {
	resp := dto.PaymentResponse{
		ID:            p.PaymentID,
		AppointmentID: p.AppointmentID,
		PatientID:     p.PatientID,
		Amount:        p.Amount.String(),
		Method:        string(p.Method),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		PaidAt:        dto.FormatTimePtr(p.PaidAt),
		RefundedAt:    dto.FormatTimePtr(p.RefundedAt),
		CreatedAt:     dto.FormatTime(p.CreatedAt),
	}
	if p.RefundAmount != nil {
		s := p.RefundAmount.String()
		resp.RefundAmount = &s
	}
	return resp
}
