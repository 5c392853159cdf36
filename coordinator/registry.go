package coordinator

import "context"

// Registry 协调服务的最小能力集合
//
// 节点路径使用 "/" 分隔的层级结构，Children 只返回直接子节点的名称。
type Registry interface {
	Exists(ctx context.Context, path string) (bool, error)

	// CreateSequential 在 prefix 后追加 10 位递增序号创建持久节点，返回完整路径
	CreateSequential(ctx context.Context, prefix string, data []byte) (string, error)

	// Get 节点不存在时返回 ErrNodeNotFound
	Get(ctx context.Context, path string) ([]byte, error)
	Put(ctx context.Context, path string, data []byte) error
	Children(ctx context.Context, parent string) ([]string, error)

	// EnsureParent 确保 path 存在，已存在时不做任何事
	EnsureParent(ctx context.Context, path string) error
}
