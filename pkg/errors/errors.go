package errors

import "errors"

// ── 领域错误分类 ──
// 各 Service 定义的业务错误均包装其中之一，调用方可用 errors.Is 按类别或按具体错误匹配。

var (
	// ErrNotFound 预约 / 时段 / 支付等记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrSlotTaken 该时段已被占用（并发预约失败的一方）
	ErrSlotTaken = errors.New("该时段已被预约")
	// ErrCancelForbidden 已完成的预约不可取消
	ErrCancelForbidden = errors.New("当前状态不允许取消预约")
	// ErrAuthentication 支付回调签名校验失败
	ErrAuthentication = errors.New("签名校验失败")
	// ErrValidation 请求参数不合法
	ErrValidation = errors.New("参数校验失败")
	// ErrForbidden 调用方不是资源所有者
	ErrForbidden = errors.New("无权限操作该资源")
	// ErrInvalidTransition 预约状态流转不合法
	ErrInvalidTransition = errors.New("预约状态流转不合法")
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
