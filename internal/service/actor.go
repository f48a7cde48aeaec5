package service

import (
	"context"

	"go.uber.org/zap"

	"clinic-booking/backend/internal/model"
	"clinic-booking/backend/internal/repository"
)

// Actor 调用方身份
// 由 handler 根据已校验的 token 构建，显式传入每个需要鉴权的业务操作
type Actor struct {
	UserID string
	Role   model.Role
}

// IsAdmin 是否管理员
func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// ownership 判断调用方与患者 / 医生档案的归属关系
type ownership struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// patientIDOf 调用方对应的患者档案 ID，没有档案时返回空串
func (o ownership) patientIDOf(ctx context.Context, actor Actor) (string, error) {
	if actor.Role != model.RolePatient {
		return "", nil
	}
	p, err := o.repo.Catalog.GetPatientByUserID(ctx, actor.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", nil
		}
		o.logger.Error("查询患者档案失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return "", err
	}
	return p.PatientID, nil
}

// doctorIDOf 调用方对应的医生档案 ID，没有档案时返回空串
func (o ownership) doctorIDOf(ctx context.Context, actor Actor) (string, error) {
	if actor.Role != model.RoleDoctor {
		return "", nil
	}
	d, err := o.repo.Catalog.GetDoctorByUserID(ctx, actor.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", nil
		}
		o.logger.Error("查询医生档案失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return "", err
	}
	return d.DoctorID, nil
}

// isDoctorOwner 调用方是否为该医生本人或管理员
func (o ownership) isDoctorOwner(ctx context.Context, actor Actor, doctorID string) (bool, error) {
	switch actor.Role {
	case model.RoleAdmin:
		return true, nil
	case model.RoleDoctor:
		id, err := o.doctorIDOf(ctx, actor)
		return err == nil && id != "" && id == doctorID, err
	case model.RolePatient:
		return false, nil
	default:
		return false, ErrNotOwner
	}
}

// isPatientOwner 调用方是否为该患者本人或管理员
func (o ownership) isPatientOwner(ctx context.Context, actor Actor, patientID string) (bool, error) {
	switch actor.Role {
	case model.RoleAdmin:
		return true, nil
	case model.RolePatient:
		id, err := o.patientIDOf(ctx, actor)
		return err == nil && id != "" && id == patientID, err
	case model.RoleDoctor:
		return false, nil
	default:
		return false, ErrNotOwner
	}
}

// canAccessAppointment 管理员、预约的患者本人、预约的医生本人可访问
func (o ownership) canAccessAppointment(ctx context.Context, actor Actor, a *model.Appointment, allowPatient bool) error {
	ok, err := o.isDoctorOwner(ctx, actor, a.DoctorID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if allowPatient {
		ok, err = o.isPatientOwner(ctx, actor, a.PatientID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return ErrNotOwner
}
