package store

import "github.com/ceyewan/leaf/xerrors"

var (
	// ErrTagNotFound store 中不存在该 tag
	ErrTagNotFound = xerrors.New("store: tag not found")

	// ErrInvalidTag tag 为空或超过 128 字节
	ErrInvalidTag = xerrors.New("store: invalid tag")

	// ErrInvalidStep step 必须大于 0
	ErrInvalidStep = xerrors.New("store: step must be positive")

	// ErrOpenState 熔断器打开，请求被快速拒绝
	ErrOpenState = xerrors.New("store: circuit breaker is open")
)

const maxTagLength = 128

func validateTag(tag string) error {
	if tag == "" || len(tag) > maxTagLength {
		return xerrors.Wrapf(ErrInvalidTag, "%q", tag)
	}
	return nil
}
