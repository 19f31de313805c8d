package repository

import (
	"context"

	"tether-data/internal/domain"
)

// ReferenceRepository 参考内容Repository接口（每个 aura tether 至多一条）
type ReferenceRepository interface {
	// GetContent 不存在返回 domain.ErrNotFound
	GetContent(ctx context.Context, tetherID string) (*domain.ReferenceContent, error)

	// UpsertContent 创建或整体更新
	UpsertContent(ctx context.Context, content *domain.ReferenceContent) error

	// DeleteContent 删除（tether reset 级联，或管理端显式删除）
	DeleteContent(ctx context.Context, tetherID string) error

	// 管理端导出/导入
	ListAllContent(ctx context.Context) (map[string]*domain.ReferenceContent, error)
	ReplaceAllContent(ctx context.Context, content map[string]*domain.ReferenceContent) error
}
