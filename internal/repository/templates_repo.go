package repository

import (
	"context"

	"tether-data/internal/domain"
)

// TemplatesRepository 模板Repository接口
// 使用强类型领域模型；schema 校验在 Service 层完成，Repository 只负责数据访问
type TemplatesRepository interface {
	// CreateTemplate 写入新模板（template_id 由 Service 生成）
	CreateTemplate(ctx context.Context, tpl *domain.Template) error

	// GetTemplate 根据 template_id 获取模板；不存在返回 domain.ErrNotFound
	GetTemplate(ctx context.Context, templateID string) (*domain.Template, error)

	// ListTemplates 列出模板（scope 为空表示不过滤），按创建时间倒序
	ListTemplates(ctx context.Context, scope domain.Scope) ([]*domain.Template, error)

	// DeleteTemplate 删除模板
	// 注意：不级联处理引用它的 tether——悬挂引用由读路径按 TemplateMissing 降级
	DeleteTemplate(ctx context.Context, templateID string) error

	// ListAllTemplates / ReplaceAllTemplates 管理端导出/导入（整个集合替换，不支持合并）
	ListAllTemplates(ctx context.Context) (map[string]*domain.Template, error)
	ReplaceAllTemplates(ctx context.Context, templates map[string]*domain.Template) error
}
