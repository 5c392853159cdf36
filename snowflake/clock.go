package snowflake

import "time"

// Clock 毫秒时钟，测试中可替换
type Clock interface {
	// Now 当前 Unix 毫秒
	Now() int64
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() int64 {
	return time.Now().UnixMilli()
}

func (systemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// SystemClock 基于 time.Now 的时钟
func SystemClock() Clock {
	return systemClock{}
}
