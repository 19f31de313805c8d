package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tether-data/internal/domain"
	"tether-data/internal/repository"
	"tether-data/internal/store"

	"go.uber.org/zap"
)

// Coordinates 客户端上报的地理坐标
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// StreamOverview My Aura 概览里的单条流摘要
type StreamOverview struct {
	TetherID     string           `json:"tether_id"`
	TemplateName string           `json:"template_name,omitempty"`
	EntryCount   int              `json:"entry_count"`
	LastEntry    *domain.LogEntry `json:"last_entry,omitempty"`
}

// AuraSummary 认证用户的私有日志汇总
type AuraSummary struct {
	TetherCount    int              `json:"tether_count"`
	EntryCount     int              `json:"entry_count"`
	EntriesInMonth int              `json:"entries_in_month"` // 本自然月（UTC）提交数
	Streams        []StreamOverview `json:"streams"`
}

// EntryService 日志条目服务
// 写入路径：lock 检查 → 表单校验 → scope 解析 → push id → 地理编码 → append
// 条目一经写入不可改不可删（共享流的 reset 级联除外）
type EntryService struct {
	tethers   repository.TethersRepository
	templates repository.TemplatesRepository
	logs      repository.LogsRepository
	resolver  *ScopeResolver
	forms     *FormService
	geocoder  Geocoder
	ids       *store.PushIDGenerator
	logger    *zap.Logger
	now       func() time.Time
}

// NewEntryService 创建条目服务；geocoder 可为 nil（降级为坐标字符串）
func NewEntryService(
	tethers repository.TethersRepository,
	templates repository.TemplatesRepository,
	logs repository.LogsRepository,
	resolver *ScopeResolver,
	forms *FormService,
	geocoder Geocoder,
	ids *store.PushIDGenerator,
	logger *zap.Logger,
) *EntryService {
	return &EntryService{
		tethers:   tethers,
		templates: templates,
		logs:      logs,
		resolver:  resolver,
		forms:     forms,
		geocoder:  geocoder,
		ids:       ids,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit 提交一条普通表单条目
// locked tether 拒绝写入（ErrLocked）；校验失败不产生任何写入
func (s *EntryService) Submit(ctx context.Context, p domain.Principal, tetherID string, values map[string]string, coords *Coordinates) (*domain.LogEntry, error) {
	tether, tpl, err := s.loadBound(ctx, tetherID)
	if err != nil {
		return nil, err
	}
	if tether.Locked {
		return nil, domain.ErrLocked
	}

	fields, err := s.forms.ValidateSubmission(tpl, values)
	if err != nil {
		return nil, err
	}
	return s.append(ctx, p, tether, fields, coords)
}

// SubmitStopwatch 结束秒表会话并落一条合成条目
// Start/End/Duration 由会话推导，optionalValues 为辅助表的可选字段
func (s *EntryService) SubmitStopwatch(ctx context.Context, p domain.Principal, tetherID string, optionalValues map[string]string, coords *Coordinates) (*domain.LogEntry, error) {
	tether, tpl, err := s.loadBound(ctx, tetherID)
	if err != nil {
		return nil, err
	}
	if tether.Locked {
		return nil, domain.ErrLocked
	}
	if !tpl.HasStopwatch() {
		return nil, domain.NewValidationError("stopwatch", "template has no timestamp field")
	}

	fields, err := s.forms.StopStopwatch(ctx, p, tetherID, tpl, optionalValues)
	if err != nil {
		return nil, err
	}
	return s.append(ctx, p, tether, fields, coords)
}

// ListEntries 读取一个 tether 的日志流（按 entry_id 升序，即提交顺序）
// scope 来自 tether 记录本身：terra 任何人可读，aura 需要认证属主
func (s *EntryService) ListEntries(ctx context.Context, p domain.Principal, tetherID string) ([]*domain.LogEntry, error) {
	tether, _, err := s.loadBound(ctx, tetherID)
	if err != nil {
		return nil, err
	}
	stream, err := s.resolver.ResolveRead(tether.Scope, tetherID, p)
	if err != nil {
		return nil, err
	}
	return s.logs.ListEntries(ctx, stream)
}

// Summary 认证用户的 My Aura 汇总视图
func (s *EntryService) Summary(ctx context.Context, p domain.Principal) (*AuraSummary, error) {
	if p.IsAnonymous() {
		return nil, domain.ErrSignInRequired
	}

	tetherIDs, err := s.logs.ListUserTetherIDs(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	monthStart := startOfMonth(s.now().UTC())
	summary := &AuraSummary{TetherCount: len(tetherIDs), Streams: []StreamOverview{}}
	for _, tetherID := range tetherIDs {
		stream := domain.LogStream{Scope: domain.ScopeAura, TetherID: tetherID, OwnerID: p.UserID}
		entries, err := s.logs.ListEntries(ctx, stream)
		if err != nil {
			return nil, err
		}

		ov := StreamOverview{TetherID: tetherID, EntryCount: len(entries)}
		if len(entries) > 0 {
			ov.LastEntry = entries[len(entries)-1]
		}
		// tether 或模板可能已被 reset/删除，摘要里名称留空即可
		if tether, err := s.tethers.GetTether(ctx, tetherID); err == nil {
			if tpl, err := s.templates.GetTemplate(ctx, tether.TemplateID); err == nil {
				ov.TemplateName = tpl.Name
			}
		}

		summary.EntryCount += len(entries)
		for _, e := range entries {
			if !e.Timestamp.Before(monthStart) {
				summary.EntriesInMonth++
			}
		}
		summary.Streams = append(summary.Streams, ov)
	}
	return summary, nil
}

// Streams 认证用户的私有流列表
func (s *EntryService) Streams(ctx context.Context, p domain.Principal) ([]StreamOverview, error) {
	summary, err := s.Summary(ctx, p)
	if err != nil {
		return nil, err
	}
	return summary.Streams, nil
}

// loadBound 加载已绑定的 tether 及其模板
// 未绑定 → ErrNotFound；模板悬空 → ErrTemplateMissing
func (s *EntryService) loadBound(ctx context.Context, tetherID string) (*domain.Tether, *domain.Template, error) {
	tether, err := s.tethers.GetTether(ctx, tetherID)
	if err != nil {
		return nil, nil, err
	}
	tpl, err := s.templates.GetTemplate(ctx, tether.TemplateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrTemplateMissing
		}
		return nil, nil, err
	}
	return tether, tpl, nil
}

func (s *EntryService) append(ctx context.Context, p domain.Principal, tether *domain.Tether, fields map[string]domain.Value, coords *Coordinates) (*domain.LogEntry, error) {
	stream, err := s.resolver.ResolveWrite(tether.Scope, tether.TetherID, p)
	if err != nil {
		return nil, err
	}

	entry := &domain.LogEntry{
		EntryID:     s.ids.Next(),
		TetherID:    tether.TetherID,
		Timestamp:   s.now().UTC(),
		SubmittedBy: p.SubmitterID(),
		Location:    s.resolveLocation(ctx, coords),
		Fields:      fields,
	}
	if err := s.logs.AppendEntry(ctx, stream, entry); err != nil {
		return nil, err
	}

	s.logger.Info("log entry appended",
		zap.String("tether_id", tether.TetherID),
		zap.String("entry_id", entry.EntryID),
		zap.String("scope", string(tether.Scope)),
		zap.String("submitted_by", entry.SubmittedBy))
	return entry, nil
}

// resolveLocation 坐标转可读地名
// 地理编码是尽力而为的增强：失败降级为坐标字符串，无坐标则省略
func (s *EntryService) resolveLocation(ctx context.Context, coords *Coordinates) string {
	if coords == nil {
		return ""
	}
	if s.geocoder != nil {
		name, err := s.geocoder.ReverseGeocode(ctx, coords.Lat, coords.Lng)
		if err == nil && name != "" {
			return name
		}
		if err != nil {
			s.logger.Warn("reverse geocoding failed", zap.Error(err))
		}
	}
	return fmt.Sprintf("%.5f, %.5f", coords.Lat, coords.Lng)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
