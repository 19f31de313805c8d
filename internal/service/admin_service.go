package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"tether-data/internal/domain"
	"tether-data/internal/repository"

	"go.uber.org/zap"
)

// ExportVersion 导出格式版本号，导入时校验
const ExportVersion = "1"

// 数据库分区名（原样出现在导出 JSON 的顶层键和 raw 接口的路径上）
const (
	SectionTethers          = "tethers"
	SectionGlobalTemplates  = "global_templates"
	SectionSharedLogs       = "shared_logs"
	SectionReferenceContent = "reference_content"
	SectionUsers            = "users"
	SectionVendorContacts   = "vendor_contacts"
)

// ExportMetadata 导出元信息
type ExportMetadata struct {
	ExportDate time.Time `json:"exportDate"`
	ExportedBy string    `json:"exportedBy"`
	Version    string    `json:"version"`
}

// ExportBundle 全量数据集快照（备份/恢复的载体）
// users 按 user_id 分区存放各用户的 aura 日志
type ExportBundle struct {
	Metadata         *ExportMetadata                              `json:"_metadata,omitempty"`
	Tethers          map[string]*domain.Tether                    `json:"tethers"`
	GlobalTemplates  map[string]*domain.Template                  `json:"global_templates"`
	SharedLogs       repository.SharedLogs                        `json:"shared_logs"`
	ReferenceContent map[string]*domain.ReferenceContent          `json:"reference_content"`
	Users            repository.UserLogs                          `json:"users"`
	VendorContacts   map[string]map[string]*domain.VendorContact  `json:"vendor_contacts"`
}

// TemplateUsage 单个模板的使用统计
type TemplateUsage struct {
	TemplateID   string       `json:"template_id"`
	TemplateName string       `json:"template_name"`
	Scope        domain.Scope `json:"scope"`
	TetherCount  int          `json:"tether_count"`
	EntryCount   int          `json:"entry_count"` // 共享条目数（aura 条目不进入全局统计）
}

// UsageReport 管理端 usage 视图
type UsageReport struct {
	TetherCount   int             `json:"tether_count"`
	TemplateCount int             `json:"template_count"`
	EntryCount    int             `json:"entry_count"`
	Templates     []TemplateUsage `json:"templates"`
}

// AdminService 管理端数据集服务：全量导出/导入、raw 分区读写、usage 统计
// 所有操作要求管理员身份
type AdminService struct {
	tethers   repository.TethersRepository
	templates repository.TemplatesRepository
	logs      repository.LogsRepository
	reference repository.ReferenceRepository
	contacts  repository.ContactsRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewAdminService 创建管理服务
func NewAdminService(
	tethers repository.TethersRepository,
	templates repository.TemplatesRepository,
	logs repository.LogsRepository,
	reference repository.ReferenceRepository,
	contacts repository.ContactsRepository,
	logger *zap.Logger,
) *AdminService {
	return &AdminService{
		tethers:   tethers,
		templates: templates,
		logs:      logs,
		reference: reference,
		contacts:  contacts,
		logger:    logger,
		now:       time.Now,
	}
}

// Export 导出全量数据集快照
func (s *AdminService) Export(ctx context.Context, p domain.Principal) (*ExportBundle, error) {
	if !p.IsAdmin() {
		return nil, domain.ErrAuthorization
	}

	bundle := &ExportBundle{
		Metadata: &ExportMetadata{
			ExportDate: s.now().UTC(),
			ExportedBy: p.UserID,
			Version:    ExportVersion,
		},
	}

	var err error
	if bundle.Tethers, err = s.tethers.ListAllTethers(ctx); err != nil {
		return nil, fmt.Errorf("export tethers: %w", err)
	}
	if bundle.GlobalTemplates, err = s.templates.ListAllTemplates(ctx); err != nil {
		return nil, fmt.Errorf("export templates: %w", err)
	}
	if bundle.SharedLogs, err = s.logs.ListAllShared(ctx); err != nil {
		return nil, fmt.Errorf("export shared logs: %w", err)
	}
	if bundle.ReferenceContent, err = s.reference.ListAllContent(ctx); err != nil {
		return nil, fmt.Errorf("export reference content: %w", err)
	}
	if bundle.Users, err = s.logs.ListAllUserLogs(ctx); err != nil {
		return nil, fmt.Errorf("export user logs: %w", err)
	}
	if bundle.VendorContacts, err = s.contacts.ListAllContacts(ctx); err != nil {
		return nil, fmt.Errorf("export vendor contacts: %w", err)
	}

	s.logger.Info("dataset exported", zap.String("by", p.UserID),
		zap.Int("tethers", len(bundle.Tethers)), zap.Int("templates", len(bundle.GlobalTemplates)))
	return bundle, nil
}

// Import 整体导入数据集：每个分区全量替换，未出现的分区清空
// 顶层出现未知键即拒绝，避免拼错分区名导致数据静默丢失
func (s *AdminService) Import(ctx context.Context, p domain.Principal, raw []byte) error {
	if !p.IsAdmin() {
		return domain.ErrAuthorization
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var bundle ExportBundle
	if err := dec.Decode(&bundle); err != nil {
		return domain.NewValidationError("import", "malformed export bundle: "+err.Error())
	}
	if bundle.Metadata != nil && bundle.Metadata.Version != "" && bundle.Metadata.Version != ExportVersion {
		return domain.NewValidationError("_metadata.version", "unsupported export version: "+bundle.Metadata.Version)
	}

	// 导入前过一遍模板校验，坏数据整体拒绝而不是写了一半
	for id, tpl := range bundle.GlobalTemplates {
		if tpl == nil {
			return domain.NewValidationError(SectionGlobalTemplates, "null template: "+id)
		}
		if err := tpl.Validate(); err != nil {
			return fmt.Errorf("template %s: %w", id, err)
		}
	}

	if err := s.templates.ReplaceAllTemplates(ctx, bundle.GlobalTemplates); err != nil {
		return fmt.Errorf("import templates: %w", err)
	}
	if err := s.tethers.ReplaceAllTethers(ctx, bundle.Tethers); err != nil {
		return fmt.Errorf("import tethers: %w", err)
	}
	if err := s.logs.ReplaceAllShared(ctx, bundle.SharedLogs); err != nil {
		return fmt.Errorf("import shared logs: %w", err)
	}
	if err := s.logs.ReplaceAllUserLogs(ctx, bundle.Users); err != nil {
		return fmt.Errorf("import user logs: %w", err)
	}
	if err := s.reference.ReplaceAllContent(ctx, bundle.ReferenceContent); err != nil {
		return fmt.Errorf("import reference content: %w", err)
	}
	if err := s.contacts.ReplaceAllContacts(ctx, bundle.VendorContacts); err != nil {
		return fmt.Errorf("import vendor contacts: %w", err)
	}

	s.logger.Info("dataset imported", zap.String("by", p.UserID))
	return nil
}

// GetSection raw 视图：按分区名读取一棵子树
func (s *AdminService) GetSection(ctx context.Context, p domain.Principal, section string) (any, error) {
	if !p.IsAdmin() {
		return nil, domain.ErrAuthorization
	}

	switch section {
	case SectionTethers:
		return s.tethers.ListAllTethers(ctx)
	case SectionGlobalTemplates:
		return s.templates.ListAllTemplates(ctx)
	case SectionSharedLogs:
		return s.logs.ListAllShared(ctx)
	case SectionReferenceContent:
		return s.reference.ListAllContent(ctx)
	case SectionUsers:
		return s.logs.ListAllUserLogs(ctx)
	case SectionVendorContacts:
		return s.contacts.ListAllContacts(ctx)
	default:
		return nil, domain.NewValidationError("section", "unknown section: "+section)
	}
}

// PutSection raw 视图：整体替换一棵子树
func (s *AdminService) PutSection(ctx context.Context, p domain.Principal, section string, raw []byte) error {
	if !p.IsAdmin() {
		return domain.ErrAuthorization
	}

	switch section {
	case SectionTethers:
		var v map[string]*domain.Tether
		if err := decodeSection(section, raw, &v); err != nil {
			return err
		}
		return s.tethers.ReplaceAllTethers(ctx, v)
	case SectionGlobalTemplates:
		var v map[string]*domain.Template
		if err := decodeSection(section, raw, &v); err != nil {
			return err
		}
		for id, tpl := range v {
			if tpl == nil {
				return domain.NewValidationError(section, "null template: "+id)
			}
			if err := tpl.Validate(); err != nil {
				return fmt.Errorf("template %s: %w", id, err)
			}
		}
		return s.templates.ReplaceAllTemplates(ctx, v)
	case SectionSharedLogs:
		var v repository.SharedLogs
		if err := decodeSection(section, raw, &v); err != nil {
			return err
		}
		return s.logs.ReplaceAllShared(ctx, v)
	case SectionReferenceContent:
		var v map[string]*domain.ReferenceContent
		if err := decodeSection(section, raw, &v); err != nil {
			return err
		}
		return s.reference.ReplaceAllContent(ctx, v)
	case SectionUsers:
		var v repository.UserLogs
		if err := decodeSection(section, raw, &v); err != nil {
			return err
		}
		return s.logs.ReplaceAllUserLogs(ctx, v)
	case SectionVendorContacts:
		var v map[string]map[string]*domain.VendorContact
		if err := decodeSection(section, raw, &v); err != nil {
			return err
		}
		return s.contacts.ReplaceAllContacts(ctx, v)
	default:
		return domain.NewValidationError("section", "unknown section: "+section)
	}
}

func decodeSection(section string, raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.NewValidationError(section, "malformed payload: "+err.Error())
	}
	return nil
}

// Usage 按模板聚合的使用统计（tether 绑定数、共享条目数）
// 模板已删除但仍有 tether 引用的，以 template_id 占位显示
func (s *AdminService) Usage(ctx context.Context, p domain.Principal) (*UsageReport, error) {
	if !p.IsAdmin() {
		return nil, domain.ErrAuthorization
	}

	templates, err := s.templates.ListTemplates(ctx, "")
	if err != nil {
		return nil, err
	}
	tethers, err := s.tethers.ListTethers(ctx)
	if err != nil {
		return nil, err
	}
	entryCounts, err := s.logs.CountSharedByTether(ctx)
	if err != nil {
		return nil, err
	}

	byTemplate := make(map[string]*TemplateUsage)
	for _, tpl := range templates {
		byTemplate[tpl.TemplateID] = &TemplateUsage{
			TemplateID:   tpl.TemplateID,
			TemplateName: tpl.Name,
			Scope:        tpl.Scope,
		}
	}

	report := &UsageReport{TemplateCount: len(templates), TetherCount: len(tethers)}
	for _, t := range tethers {
		u, ok := byTemplate[t.TemplateID]
		if !ok {
			u = &TemplateUsage{TemplateID: t.TemplateID, TemplateName: t.TemplateID, Scope: t.Scope}
			byTemplate[t.TemplateID] = u
		}
		u.TetherCount++
		u.EntryCount += entryCounts[t.TetherID]
		report.EntryCount += entryCounts[t.TetherID]
	}

	for _, u := range byTemplate {
		report.Templates = append(report.Templates, *u)
	}
	sort.Slice(report.Templates, func(i, j int) bool {
		return report.Templates[i].TemplateName < report.Templates[j].TemplateName
	})
	return report, nil
}
