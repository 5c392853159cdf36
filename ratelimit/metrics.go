package ratelimit

const (
	// MetricDecisionsTotal 限流判定次数，result 为 allowed 或 denied
	MetricDecisionsTotal = "leaf_ratelimit_decisions_total"

	// MetricLimiters 当前持有的令牌桶数量
	MetricLimiters = "leaf_ratelimit_limiters"
)
