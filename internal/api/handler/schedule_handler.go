package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-booking/backend/internal/dto"
	"clinic-booking/backend/internal/service"
	pkgerrors "clinic-booking/backend/pkg/errors"
	"clinic-booking/backend/pkg/response"
)

// ScheduleHandler 出诊安排 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// GetDoctorSchedule 获取医生全部出诊安排
// GET /api/v1/doctors/:id/schedule
func (h *ScheduleHandler) GetDoctorSchedule(c *gin.Context) {
	doctorID, ok := MustGetPathID(c, 11001)
	if !ok {
		return
	}

	entries, err := h.scheduleSvc.GetDoctorSchedule(c.Request.Context(), doctorID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": entries})
}

// UpdateDoctorSchedule 发布医生出诊安排
// PUT /api/v1/doctors/:id/schedule
func (h *ScheduleHandler) UpdateDoctorSchedule(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	doctorID, ok := MustGetPathID(c, 11001)
	if !ok {
		return
	}

	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 11001, "参数校验失败")
		return
	}

	entries, err := h.scheduleSvc.UpdateDoctorSchedule(c.Request.Context(), actor, doctorID, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": entries})
}

// handleScheduleError 统一处理出诊安排模块业务错误
func (h *ScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDoctorNotFound):
		response.NotFound(c, 11101, "医生不存在")
	case errors.Is(err, service.ErrNotOwner):
		response.Forbidden(c, 11102, "只能修改本人的出诊安排")
	case errors.Is(err, pkgerrors.ErrValidation):
		response.ErrorWithDetails(c, http.StatusBadRequest, 11001, "参数校验失败", err.Error())
	default:
		response.InternalError(c)
	}
}
