package config

import "github.com/ceyewan/leaf/xerrors"

var (
	// ErrValidationFailed 配置校验失败
	ErrValidationFailed = xerrors.New("config: validation failed")

	// ErrNotFound 找不到配置文件
	ErrNotFound = xerrors.New("config: file not found")
)

// IsNotFound 检查错误是否为配置文件不存在
func IsNotFound(err error) bool {
	return xerrors.Is(err, ErrNotFound)
}
