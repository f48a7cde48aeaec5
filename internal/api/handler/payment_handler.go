package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"clinic-booking/backend/internal/dto"
	"clinic-booking/backend/internal/service"
	pkgerrors "clinic-booking/backend/pkg/errors"
	"clinic-booking/backend/pkg/response"
)

// IPN 应答码，由网关约定
const (
	ipnOK             = "00"
	ipnNotFound       = "01"
	ipnAlreadySettled = "02"
	ipnInvalidAmount  = "04"
	ipnBadSignature   = "97"
	ipnUnknown        = "99"
)

// PaymentHandler 支付模块 HTTP 处理器
type PaymentHandler struct {
	paymentSvc service.PaymentService
	logger     *zap.Logger
}

// NewPaymentHandler 创建 PaymentHandler
func NewPaymentHandler(paymentSvc service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc, logger: logger}
}

// CreateURL 发起支付，返回网关跳转地址
// POST /api/v1/payments/create-url
func (h *PaymentHandler) CreateURL(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	result, err := h.paymentSvc.BuildPaymentRequest(c.Request.Context(), actor, req.AppointmentID, c.ClientIP())
	if err != nil {
		h.handlePaymentError(c, err)
		return
	}

	response.OK(c, result)
}

// GetByAppointment 查询预约的支付记录
// GET /api/v1/payments/appointment/:id
func (h *PaymentHandler) GetByAppointment(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	id, ok := MustGetPathID(c, 13001)
	if !ok {
		return
	}
	payment, err := h.paymentSvc.GetByAppointment(c.Request.Context(), actor, id)
	if err != nil {
		h.handlePaymentError(c, err)
		return
	}

	response.OK(c, payment)
}

// Refund 退款（管理员）
// POST /api/v1/payments/:id/refund
func (h *PaymentHandler) Refund(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.BadRequest(c, 13001, "退款金额格式无效")
		return
	}

	id, ok := MustGetPathID(c, 13001)
	if !ok {
		return
	}
	payment, err := h.paymentSvc.Refund(c.Request.Context(), actor, id, amount)
	if err != nil {
		h.handlePaymentError(c, err)
		return
	}

	response.OK(c, payment)
}

// VNPayReturn 浏览器回跳地址，落地结果并返回给前端展示
// GET /api/v1/payments/vnpay-callback
func (h *PaymentHandler) VNPayReturn(c *gin.Context) {
	result, err := h.paymentSvc.HandleCallback(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		h.handlePaymentError(c, err)
		return
	}

	response.OK(c, dto.PaymentResultResponse{
		PaymentID:    result.PaymentID,
		Status:       string(result.Status),
		ResponseCode: result.ResponseCode,
	})
}

// VNPayIPN 网关服务端通知，始终以 200 + RspCode 应答
// GET /api/v1/payments/vnpay-ipn
func (h *PaymentHandler) VNPayIPN(c *gin.Context) {
	result, err := h.paymentSvc.HandleCallback(c.Request.Context(), c.Request.URL.Query())

	var resp dto.IPNResponse
	switch {
	case err == nil && result.AlreadySettled:
		resp = dto.IPNResponse{RspCode: ipnAlreadySettled, Message: "Order already confirmed"}
	case err == nil:
		resp = dto.IPNResponse{RspCode: ipnOK, Message: "Confirm Success"}
	case errors.Is(err, service.ErrInvalidSignature):
		resp = dto.IPNResponse{RspCode: ipnBadSignature, Message: "Invalid signature"}
	case errors.Is(err, service.ErrPaymentNotFound):
		resp = dto.IPNResponse{RspCode: ipnNotFound, Message: "Order not found"}
	case errors.Is(err, service.ErrAmountMismatch):
		resp = dto.IPNResponse{RspCode: ipnInvalidAmount, Message: "Invalid amount"}
	default:
		h.logger.Error("IPN 处理失败", zap.Error(err))
		resp = dto.IPNResponse{RspCode: ipnUnknown, Message: "Unknown error"}
	}

	c.JSON(http.StatusOK, resp)
}

// handlePaymentError 统一处理支付模块业务错误
func (h *PaymentHandler) handlePaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPaymentNotFound):
		response.NotFound(c, 13101, "支付记录不存在")
	case errors.Is(err, service.ErrAppointmentNotFound):
		response.NotFound(c, 13102, "预约不存在")
	case errors.Is(err, service.ErrDoctorNotFound):
		response.NotFound(c, 13103, "医生不存在")
	case errors.Is(err, service.ErrPaymentAlreadySettled):
		response.Conflict(c, 13201, "该预约的支付已完成")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 13202, "支付记录已被其他操作修改，请刷新后重试")
	case errors.Is(err, service.ErrNotOwner):
		response.Forbidden(c, 13301, "无权操作该支付")
	case errors.Is(err, service.ErrInvalidSignature):
		response.Unauthorized(c, 13401, "支付回调签名无效")
	case errors.Is(err, service.ErrAppointmentCancelled):
		response.BadRequest(c, 13402, "预约已取消")
	case errors.Is(err, service.ErrFeeNotConfigured):
		response.BadRequest(c, 13403, "医生诊费未配置")
	case errors.Is(err, service.ErrInvalidRefund):
		response.ErrorWithDetails(c, http.StatusBadRequest, 13404, "退款金额或状态不合法", err.Error())
	case errors.Is(err, service.ErrAmountMismatch):
		response.BadRequest(c, 13405, "回调金额与支付金额不一致")
	case errors.Is(err, pkgerrors.ErrValidation):
		response.ErrorWithDetails(c, http.StatusBadRequest, 13001, "参数校验失败", err.Error())
	default:
		response.InternalError(c)
	}
}
