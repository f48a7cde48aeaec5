package service

import (
	"errors"
	"fmt"

	pkgerrors "clinic-booking/backend/pkg/errors"
)

// ── 业务错误 ──
// 每个错误都包装 pkg/errors 中的一个分类，handler 可以按具体错误或按分类匹配

var (
	ErrDoctorNotFound      = fmt.Errorf("%w: 医生不存在", pkgerrors.ErrNotFound)
	ErrPatientNotFound     = fmt.Errorf("%w: 患者不存在", pkgerrors.ErrNotFound)
	ErrSpecialtyNotFound   = fmt.Errorf("%w: 专科不存在", pkgerrors.ErrNotFound)
	ErrTimeSlotNotFound    = fmt.Errorf("%w: 时段不存在", pkgerrors.ErrNotFound)
	ErrAppointmentNotFound = fmt.Errorf("%w: 预约不存在", pkgerrors.ErrNotFound)
	ErrPaymentNotFound     = fmt.Errorf("%w: 支付记录不存在", pkgerrors.ErrNotFound)
)

var (
	// ErrSlotTaken 时段已被占用
	ErrSlotTaken = pkgerrors.ErrSlotTaken
	// ErrCancelForbidden 已完成 / 爽约的预约不可取消
	ErrCancelForbidden = pkgerrors.ErrCancelForbidden
	// ErrInvalidTransition 状态流转不合法
	ErrInvalidTransition = pkgerrors.ErrInvalidTransition
	// ErrNotOwner 调用方不是该资源的患者 / 医生本人，也不是管理员
	ErrNotOwner = fmt.Errorf("%w: 只能操作本人相关的预约", pkgerrors.ErrForbidden)
	// ErrInvalidSignature 支付回调签名不匹配
	ErrInvalidSignature = fmt.Errorf("%w: 支付回调签名无效", pkgerrors.ErrAuthentication)
	// ErrPaymentAlreadySettled 支付已完成或已退款，不能再次发起
	ErrPaymentAlreadySettled = errors.New("该预约的支付已完成")
)

var (
	ErrSlotUnavailable      = fmt.Errorf("%w: 该时段当天不可预约", pkgerrors.ErrValidation)
	ErrPastDate             = fmt.Errorf("%w: 不能预约过去的日期", pkgerrors.ErrValidation)
	ErrPatientRequired      = fmt.Errorf("%w: 代为预约时必须指定患者", pkgerrors.ErrValidation)
	ErrRecordExists         = fmt.Errorf("%w: 该预约已有就诊记录", pkgerrors.ErrValidation)
	ErrAppointmentCancelled = fmt.Errorf("%w: 预约已取消", pkgerrors.ErrValidation)
	ErrAmountMismatch       = fmt.Errorf("%w: 回调金额与支付金额不一致", pkgerrors.ErrValidation)
	ErrInvalidRefund        = fmt.Errorf("%w: 退款金额或状态不合法", pkgerrors.ErrValidation)
	ErrFeeNotConfigured     = fmt.Errorf("%w: 医生诊费未配置", pkgerrors.ErrValidation)
)

// validationError 构造带说明的参数错误
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", pkgerrors.ErrValidation, fmt.Sprintf(format, args...))
}
