package service

import (
	"context"
	"fmt"
	"time"

	"tether-data/internal/domain"
	"tether-data/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TemplateService 模板注册表服务
type TemplateService struct {
	templates repository.TemplatesRepository
	logger    *zap.Logger
}

// NewTemplateService 创建模板服务
func NewTemplateService(templates repository.TemplatesRepository, logger *zap.Logger) *TemplateService {
	return &TemplateService{templates: templates, logger: logger}
}

// CreateTemplateRequest 新建模板请求
type CreateTemplateRequest struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Scope         domain.Scope   `json:"scope"`
	StaticFields  []domain.Field `json:"static_fields"`
	DynamicFields []domain.Field `json:"dynamic_fields"`
}

// CreateTemplate 管理员新建模板；schema 非法返回 ValidationError
func (s *TemplateService) CreateTemplate(ctx context.Context, p domain.Principal, req CreateTemplateRequest) (string, error) {
	if !p.IsAdmin() {
		return "", domain.ErrAuthorization
	}

	tpl := &domain.Template{
		TemplateID:    uuid.NewString(),
		Name:          req.Name,
		Description:   req.Description,
		Scope:         req.Scope,
		StaticFields:  req.StaticFields,
		DynamicFields: req.DynamicFields,
		Created:       time.Now().UTC(),
		CreatedBy:     p.UserID,
	}
	if err := tpl.Validate(); err != nil {
		return "", err
	}

	if err := s.templates.CreateTemplate(ctx, tpl); err != nil {
		return "", fmt.Errorf("failed to create template: %w", err)
	}

	s.logger.Info("template created",
		zap.String("template_id", tpl.TemplateID),
		zap.String("name", tpl.Name),
		zap.String("scope", string(tpl.Scope)),
		zap.String("created_by", p.UserID),
	)
	return tpl.TemplateID, nil
}

// GetTemplate 按 id 读取；不存在返回 domain.ErrNotFound
func (s *TemplateService) GetTemplate(ctx context.Context, templateID string) (*domain.Template, error) {
	return s.templates.GetTemplate(ctx, templateID)
}

// ListTemplates scope 为空表示全部；按创建时间倒序
func (s *TemplateService) ListTemplates(ctx context.Context, scope domain.Scope) ([]*domain.Template, error) {
	if scope != "" && !scope.Valid() {
		return nil, domain.NewValidationError("scope", "scope must be terra or aura")
	}
	return s.templates.ListTemplates(ctx, scope)
}

// DeleteTemplate 管理员删除模板
// 注意：不级联到引用它的 tether——它们保留悬挂引用，读路径按 TemplateMissing 降级渲染
func (s *TemplateService) DeleteTemplate(ctx context.Context, p domain.Principal, templateID string) error {
	if !p.IsAdmin() {
		return domain.ErrAuthorization
	}
	if err := s.templates.DeleteTemplate(ctx, templateID); err != nil {
		return err
	}
	s.logger.Info("template deleted",
		zap.String("template_id", templateID),
		zap.String("deleted_by", p.UserID),
	)
	return nil
}
