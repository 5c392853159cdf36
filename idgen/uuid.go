package idgen

import "github.com/google/uuid"

// NewUUIDV7 生成时间有序的 UUID v7，用作请求 ID
func NewUUIDV7() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return v7.String()
}
