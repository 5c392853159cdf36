package coordinator

import "github.com/ceyewan/leaf/xerrors"

var (
	// ErrClockRegressionOnRestart 注册中心记录的上次心跳时间晚于本机当前时间，拒绝启动
	ErrClockRegressionOnRestart = xerrors.New("coordinator: clock is behind last reported timestamp")

	// ErrCoordinationUnavailable 注册中心不可达或操作失败
	ErrCoordinationUnavailable = xerrors.New("coordinator: coordination service unavailable")

	// ErrBoundsViolation 分配到的 worker ID 不在 [0, 1023]
	ErrBoundsViolation = xerrors.New("coordinator: worker id out of range")

	// ErrNodeNotFound 注册中心中不存在该节点
	ErrNodeNotFound = xerrors.New("coordinator: node not found")

	// ErrCacheMissing 本地 worker ID 缓存文件不存在或内容无效
	ErrCacheMissing = xerrors.New("coordinator: local worker id cache unavailable")
)
