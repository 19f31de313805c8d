package repository

import (
	"context"

	"tether-data/internal/domain"
)

// TethersRepository 标签记录Repository接口
type TethersRepository interface {
	// GetTether 根据 tether_id 获取记录；不存在返回 domain.ErrNotFound（即 unbound 状态）
	GetTether(ctx context.Context, tetherID string) (*domain.Tether, error)

	// CreateTether 写入新记录
	// 注意：并发分配同一 unbound tether 是 last-write-wins（upsert 语义），
	// 设计上接受此竞争，不做检测
	CreateTether(ctx context.Context, tether *domain.Tether) error

	// SetLocked 翻转 locked 标志；不存在返回 domain.ErrNotFound
	SetLocked(ctx context.Context, tetherID string, locked bool) error

	// DeleteTether 删除记录（reset 的第一步，级联由 Service 层编排）
	DeleteTether(ctx context.Context, tetherID string) error

	// ListTethers 列出所有记录（管理端概览和 usage 统计）
	ListTethers(ctx context.Context) ([]*domain.Tether, error)

	// ListAllTethers / ReplaceAllTethers 管理端导出/导入
	ListAllTethers(ctx context.Context) (map[string]*domain.Tether, error)
	ReplaceAllTethers(ctx context.Context, tethers map[string]*domain.Tether) error
}
