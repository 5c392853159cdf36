package snowflake

import "github.com/ceyewan/leaf/xerrors"

var (
	// ErrClockRegression 时钟回拨在容忍范围内但等待后仍未追上，或时钟停止前进
	ErrClockRegression = xerrors.New("snowflake: clock moved backwards")

	// ErrClockRegressionSevere 时钟回拨超过阈值，直接拒绝
	ErrClockRegressionSevere = xerrors.New("snowflake: clock moved backwards beyond threshold")

	// ErrBoundsViolation worker ID 不在 [0, 1023]
	ErrBoundsViolation = xerrors.New("snowflake: worker id out of range")
)
