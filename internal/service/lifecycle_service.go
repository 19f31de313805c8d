package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tether-data/internal/domain"
	"tether-data/internal/repository"

	"go.uber.org/zap"
)

// LifecycleService tether 生命周期状态机
// unbound → active ⇄ locked；reset 从任意状态回到 unbound（无终止状态，可无限重置）
// 所有改写 Tag Record 的操作（Assign/Lock/Unlock/Reset）都在这里，视图层不复制业务逻辑
type LifecycleService struct {
	tethers   repository.TethersRepository
	templates repository.TemplatesRepository
	logs      repository.LogsRepository
	reference repository.ReferenceRepository
	logger    *zap.Logger
}

// NewLifecycleService 创建生命周期服务
func NewLifecycleService(
	tethers repository.TethersRepository,
	templates repository.TemplatesRepository,
	logs repository.LogsRepository,
	reference repository.ReferenceRepository,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		tethers:   tethers,
		templates: templates,
		logs:      logs,
		reference: reference,
		logger:    logger,
	}
}

// TetherState Lookup 的结果
// TemplateMissing：tether 存在但引用的模板已被删除（悬挂引用），
// 页面渲染 "template not found" 降级态而不是报错
type TetherState struct {
	Status          domain.TetherStatus `json:"status"`
	Tether          *domain.Tether      `json:"tether,omitempty"`
	Template        *domain.Template    `json:"template,omitempty"`
	TemplateMissing bool                `json:"template_missing,omitempty"`
}

// Lookup 读取 tether 状态；记录不存在即 unbound
func (s *LifecycleService) Lookup(ctx context.Context, tetherID string) (*TetherState, error) {
	tether, err := s.tethers.GetTether(ctx, tetherID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &TetherState{Status: domain.TetherUnbound}, nil
		}
		return nil, fmt.Errorf("failed to look up tether: %w", err)
	}

	state := &TetherState{Status: tether.Status(), Tether: tether}
	tpl, err := s.templates.GetTemplate(ctx, tether.TemplateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			state.TemplateMissing = true
			return state, nil
		}
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	state.Template = tpl
	return state, nil
}

// Assign unbound → active
// 校验模板存在（选择到提交之间模板可能被删除——重新取一次，消失则硬失败要求重选）
// 以及 static_values 键与模板 static_fields 匹配；未提交的键补空串
func (s *LifecycleService) Assign(ctx context.Context, p domain.Principal, tetherID, templateID string, staticValues map[string]string) (*domain.Tether, error) {
	if tetherID == "" {
		return nil, domain.NewValidationError("tether_id", "tether id is required")
	}

	if _, err := s.tethers.GetTether(ctx, tetherID); err == nil {
		return nil, domain.ErrTetherExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to check tether: %w", err)
	}

	tpl, err := s.templates.GetTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTemplateMissing
		}
		return nil, fmt.Errorf("failed to load template: %w", err)
	}

	values := make(map[string]string, len(tpl.StaticFields))
	for _, f := range tpl.StaticFields {
		values[f.Name] = staticValues[f.Name]
	}
	for name := range staticValues {
		if _, ok := values[name]; !ok {
			return nil, domain.NewValidationError("static_values", "unknown static field: "+name)
		}
	}

	tether := &domain.Tether{
		TetherID:     tetherID,
		TemplateID:   tpl.TemplateID,
		Scope:        tpl.Scope,
		StaticValues: values,
		Locked:       false,
		Created:      time.Now().UTC(),
		CreatedBy:    p.SubmitterID(),
	}
	if err := s.tethers.CreateTether(ctx, tether); err != nil {
		return nil, fmt.Errorf("failed to assign template: %w", err)
	}

	s.logger.Info("tether assigned",
		zap.String("tether_id", tetherID),
		zap.String("template_id", tpl.TemplateID),
		zap.String("scope", string(tpl.Scope)),
		zap.String("created_by", tether.CreatedBy),
	)
	return tether, nil
}

// Lock active → locked（管理员专属；不影响既有日志条目）
func (s *LifecycleService) Lock(ctx context.Context, p domain.Principal, tetherID string) error {
	return s.setLocked(ctx, p, tetherID, true)
}

// Unlock locked → active（管理员专属）
func (s *LifecycleService) Unlock(ctx context.Context, p domain.Principal, tetherID string) error {
	return s.setLocked(ctx, p, tetherID, false)
}

func (s *LifecycleService) setLocked(ctx context.Context, p domain.Principal, tetherID string, locked bool) error {
	if !p.IsAdmin() {
		return domain.ErrAuthorization
	}
	if err := s.tethers.SetLocked(ctx, tetherID, locked); err != nil {
		return err
	}
	s.logger.Info("tether lock toggled",
		zap.String("tether_id", tetherID),
		zap.Bool("locked", locked),
		zap.String("by", p.UserID),
	)
	return nil
}

// Reset 任意状态 → unbound，不可逆
// 级联删除：Tag Record、共享日志、参考内容
// 明确保留：aura（按用户）日志条目、厂商联系人、模板本身
// confirm 必须为 true（破坏性操作的显式确认，不是系统不变量）
func (s *LifecycleService) Reset(ctx context.Context, p domain.Principal, tetherID string, confirm bool) error {
	if !p.IsAdmin() {
		return domain.ErrAuthorization
	}
	if !confirm {
		return domain.ErrConfirmRequired
	}

	if err := s.tethers.DeleteTether(ctx, tetherID); err != nil {
		return fmt.Errorf("failed to delete tether: %w", err)
	}
	if err := s.logs.DeleteSharedEntries(ctx, tetherID); err != nil {
		return fmt.Errorf("failed to delete shared logs: %w", err)
	}
	if err := s.reference.DeleteContent(ctx, tetherID); err != nil {
		return fmt.Errorf("failed to delete reference content: %w", err)
	}

	s.logger.Info("tether reset",
		zap.String("tether_id", tetherID),
		zap.String("by", p.UserID),
	)
	return nil
}
