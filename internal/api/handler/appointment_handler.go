package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clinic-booking/backend/internal/dto"
	"clinic-booking/backend/internal/model"
	"clinic-booking/backend/internal/service"
	pkgerrors "clinic-booking/backend/pkg/errors"
	"clinic-booking/backend/pkg/response"
)

// AppointmentHandler 预约模块 HTTP 处理器
type AppointmentHandler struct {
	appointmentSvc  service.AppointmentService
	availabilitySvc service.AvailabilityService
	calendarSvc     service.CalendarService
}

// NewAppointmentHandler 创建 AppointmentHandler
func NewAppointmentHandler(
	appointmentSvc service.AppointmentService,
	availabilitySvc service.AvailabilityService,
	calendarSvc service.CalendarService,
) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentSvc:  appointmentSvc,
		availabilitySvc: availabilitySvc,
		calendarSvc:     calendarSvc,
	}
}

// AvailableSlots 查询医生某日可预约时段
// GET /api/v1/appointments/available-slots?doctor_id=xxx&date=2026-10-19
func (h *AppointmentHandler) AvailableSlots(c *gin.Context) {
	var req dto.AvailableSlotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 12001, "doctor_id 与 date 不能为空")
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		response.BadRequest(c, 12001, "日期格式应为 YYYY-MM-DD")
		return
	}

	slots, err := h.availabilitySvc.GetAvailableSlots(c.Request.Context(), req.DoctorID, date)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": slots})
}

// Create 创建预约
// POST /api/v1/appointments
func (h *AppointmentHandler) Create(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	appt, err := h.appointmentSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.Created(c, appt)
}

// ListMine 我的预约
// GET /api/v1/appointments/me
func (h *AppointmentHandler) ListMine(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.AppointmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	list, total, err := h.appointmentSvc.ListMine(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OKPage(c, list, total, pageOf(req), pageSizeOf(req))
}

// Calendar 导出我的预约日历
// GET /api/v1/appointments/me/calendar.ics?from=2026-10-01&to=2026-12-31
func (h *AppointmentHandler) Calendar(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}
	from, err := optionalDate(req.From)
	if err != nil {
		response.BadRequest(c, 12001, "from 格式应为 YYYY-MM-DD")
		return
	}
	to, err := optionalDate(req.To)
	if err != nil {
		response.BadRequest(c, 12001, "to 格式应为 YYYY-MM-DD")
		return
	}

	data, err := h.calendarSvc.ExportCalendar(c.Request.Context(), actor, from, to)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="appointments.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(data))
}

// Get 预约详情
// GET /api/v1/appointments/:id
func (h *AppointmentHandler) Get(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	id, ok := MustGetPathID(c, 12001)
	if !ok {
		return
	}
	appt, err := h.appointmentSvc.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, appt)
}

// UpdateStatus 变更预约状态
// PUT /api/v1/appointments/:id/status
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	id, ok := MustGetPathID(c, 12001)
	if !ok {
		return
	}
	appt, err := h.appointmentSvc.UpdateStatus(c.Request.Context(), actor, id, model.AppointmentStatus(req.Status))
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, appt)
}

// Cancel 取消预约
// PUT /api/v1/appointments/:id/cancel
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	// 请求体可省略
	var req dto.CancelAppointmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 12001, "参数校验失败")
			return
		}
	}

	id, ok := MustGetPathID(c, 12001)
	if !ok {
		return
	}
	appt, err := h.appointmentSvc.Cancel(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OK(c, appt)
}

// MedicalRecord 填写就诊记录并完成预约
// POST /api/v1/appointments/:id/medical-record
func (h *AppointmentHandler) MedicalRecord(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.MedicalRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	id, ok := MustGetPathID(c, 12001)
	if !ok {
		return
	}
	rec, err := h.appointmentSvc.CompleteWithRecord(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.Created(c, rec)
}

// AdminList 管理员查询全部预约
// GET /api/v1/admin/appointments
func (h *AppointmentHandler) AdminList(c *gin.Context) {
	var req dto.AppointmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	list, total, err := h.appointmentSvc.ListForAdmin(c.Request.Context(), &req)
	if err != nil {
		h.handleAppointmentError(c, err)
		return
	}

	response.OKPage(c, list, total, pageOf(req), pageSizeOf(req))
}

// handleAppointmentError 统一处理预约模块业务错误
func (h *AppointmentHandler) handleAppointmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAppointmentNotFound):
		response.NotFound(c, 12101, "预约不存在")
	case errors.Is(err, service.ErrDoctorNotFound):
		response.NotFound(c, 12102, "医生不存在")
	case errors.Is(err, service.ErrPatientNotFound):
		response.NotFound(c, 12103, "患者不存在")
	case errors.Is(err, service.ErrTimeSlotNotFound):
		response.NotFound(c, 12104, "时段不存在")
	case errors.Is(err, service.ErrSpecialtyNotFound):
		response.NotFound(c, 12105, "专科不存在")
	case errors.Is(err, service.ErrSlotTaken):
		response.Conflict(c, 12201, "该时段已被预约")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 12202, "预约已被其他操作修改，请刷新后重试")
	case errors.Is(err, service.ErrCancelForbidden):
		response.Forbidden(c, 12301, "已完成或爽约的预约不可取消")
	case errors.Is(err, service.ErrNotOwner):
		response.Forbidden(c, 12302, "只能操作本人相关的预约")
	case errors.Is(err, service.ErrInvalidTransition):
		response.ErrorWithDetails(c, http.StatusBadRequest, 12401, "预约状态流转不合法", err.Error())
	case errors.Is(err, service.ErrSlotUnavailable):
		response.BadRequest(c, 12402, "该时段当天不可预约")
	case errors.Is(err, service.ErrPastDate):
		response.BadRequest(c, 12403, "不能预约过去的日期")
	case errors.Is(err, service.ErrPatientRequired):
		response.BadRequest(c, 12404, "代为预约时必须指定患者")
	case errors.Is(err, service.ErrRecordExists):
		response.BadRequest(c, 12405, "该预约已有就诊记录")
	case errors.Is(err, pkgerrors.ErrValidation):
		response.ErrorWithDetails(c, http.StatusBadRequest, 12001, "参数校验失败", err.Error())
	default:
		response.InternalError(c)
	}
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func pageOf(req dto.AppointmentListRequest) int {
	if req.Page < 1 {
		return 1
	}
	return req.Page
}

func pageSizeOf(req dto.AppointmentListRequest) int {
	if req.PageSize < 1 {
		return 20
	}
	return req.PageSize
}
