package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"strconv"
	"time"

	"tether-data/internal/domain"
	"tether-data/internal/store"

	"go.uber.org/zap"
)

// 秒表合成条目的固定字段名
const (
	StopwatchStartField    = "Start Time"
	StopwatchEndField      = "End Time"
	StopwatchDurationField = "Duration (minutes)"
)

// ControlKind 表单控件类型
type ControlKind string

const (
	ControlInput     ControlKind = "input"    // 单行输入（text/number/date/email/url）
	ControlTextarea  ControlKind = "textarea" // 多行输入
	ControlSelect    ControlKind = "select"   // 封闭选项（首项为禁用占位符）
	ControlStopwatch ControlKind = "stopwatch"
)

// Control 单个表单控件描述
type Control struct {
	Name        string           `json:"name"`
	Kind        ControlKind      `json:"kind"`
	InputType   domain.FieldType `json:"input_type,omitempty"` // kind=input 时的具体类型
	Options     []string         `json:"options,omitempty"`    // kind=select
	Placeholder string           `json:"placeholder,omitempty"`
	Required    bool             `json:"required"`
}

// FormDescriptor 由模板 dynamic_fields 推导出的表单描述
// Stopwatch=true 时主表单被 Start/Stop 控件对取代，
// OptionalControls 为辅助可选字段表（非 timestamp 的动态字段）
type FormDescriptor struct {
	Stopwatch        bool      `json:"stopwatch"`
	Controls         []Control `json:"controls,omitempty"`
	OptionalControls []Control `json:"optional_controls,omitempty"`
}

// StopwatchStatus 秒表会话状态
type StopwatchStatus struct {
	Running        bool      `json:"running"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	ElapsedSeconds int64     `json:"elapsed_seconds"` // 1 秒粒度的已计时长
}

// FormService 动态表单渲染器
// 给定 schema 产出控件描述、校验提交值、管理秒表会话
// 秒表的开始时刻持久化在 KV（键按 (提交者, tether) 唯一），页面刷新不丢、
// 且天然保证同一 tether 同时只有一个进行中的会话
type FormService struct {
	kv     store.KV
	logger *zap.Logger
	now    func() time.Time
}

// NewFormService 创建表单服务
func NewFormService(kv store.KV, logger *zap.Logger) *FormService {
	return &FormService{kv: kv, logger: logger, now: time.Now}
}

// NewFormServiceAt 测试用：注入时钟
func NewFormServiceAt(kv store.KV, logger *zap.Logger, now func() time.Time) *FormService {
	return &FormService{kv: kv, logger: logger, now: now}
}

// BuildForm 由模板动态字段推导表单描述
// 任一字段为 timestamp 类型即切换整张表为秒表模式：
// 该字段不再渲染直接输入，其余字段归入辅助可选表
func (s *FormService) BuildForm(tpl *domain.Template) FormDescriptor {
	if tpl.HasStopwatch() {
		desc := FormDescriptor{Stopwatch: true}
		for _, f := range tpl.DynamicFields {
			if f.Type == domain.FieldTypeTimestamp {
				continue
			}
			desc.OptionalControls = append(desc.OptionalControls, controlFor(f))
		}
		return desc
	}

	desc := FormDescriptor{}
	for _, f := range tpl.DynamicFields {
		desc.Controls = append(desc.Controls, controlFor(f))
	}
	return desc
}

func controlFor(f domain.Field) Control {
	c := Control{
		Name:        f.Name,
		Placeholder: f.Placeholder,
		Required:    f.Required,
	}
	switch f.Type {
	case domain.FieldTypeTextarea:
		c.Kind = ControlTextarea
	case domain.FieldTypeDropdown:
		c.Kind = ControlSelect
		c.Options = f.Options
		if c.Placeholder == "" {
			c.Placeholder = "Select " + f.Name
		}
	case domain.FieldTypeTimestamp:
		c.Kind = ControlStopwatch
	default:
		// text/number/date/email/url 映射为同类单行输入
		c.Kind = ControlInput
		c.InputType = f.Type
	}
	return c
}

// ValidateSubmission 校验并强类型化一次普通表单提交
// - required 字段为空（或 dropdown 停留在占位符）→ ValidationError，不产生任何写入
// - 未知字段名拒绝
// - timestamp 字段不接受直接提交（只能走秒表）
// 非必填且为空的字段不写入条目（fields 为模板动态字段名的子集）
func (s *FormService) ValidateSubmission(tpl *domain.Template, values map[string]string) (map[string]domain.Value, error) {
	for name := range values {
		if _, ok := tpl.DynamicField(name); !ok {
			return nil, domain.NewValidationError(name, "unknown field")
		}
	}

	fields := make(map[string]domain.Value)
	for _, f := range tpl.DynamicFields {
		raw := values[f.Name]
		if raw == "" {
			if f.Required && f.Type != domain.FieldTypeTimestamp {
				return nil, domain.NewValidationError(f.Name, "required field is empty")
			}
			continue
		}
		v, err := coerceValue(f, raw)
		if err != nil {
			return nil, err
		}
		fields[f.Name] = v
	}
	return fields, nil
}

func coerceValue(f domain.Field, raw string) (domain.Value, error) {
	switch f.Type {
	case domain.FieldTypeText, domain.FieldTypeTextarea:
		return domain.StringValue(raw), nil
	case domain.FieldTypeNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.Value{}, domain.NewValidationError(f.Name, "not a number: "+raw)
		}
		return domain.NumberValue(n), nil
	case domain.FieldTypeDate:
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return domain.Value{}, domain.NewValidationError(f.Name, "not a date (YYYY-MM-DD): "+raw)
		}
		return domain.TimeValue(t), nil
	case domain.FieldTypeDropdown:
		// 占位符不是合法提交值：值必须命中 options 之一
		if !f.HasOption(raw) {
			return domain.Value{}, domain.NewValidationError(f.Name, "not one of the allowed options: "+raw)
		}
		return domain.StringValue(raw), nil
	case domain.FieldTypeEmail:
		if _, err := mail.ParseAddress(raw); err != nil {
			return domain.Value{}, domain.NewValidationError(f.Name, "invalid email address")
		}
		return domain.StringValue(raw), nil
	case domain.FieldTypeURL:
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return domain.Value{}, domain.NewValidationError(f.Name, "invalid url")
		}
		return domain.StringValue(raw), nil
	case domain.FieldTypeTimestamp:
		return domain.Value{}, domain.NewValidationError(f.Name, "timestamp fields are captured via the stopwatch")
	default:
		return domain.Value{}, domain.NewValidationError(f.Name, "unknown field type")
	}
}

func stopwatchKey(p domain.Principal, tetherID string) string {
	return fmt.Sprintf("stopwatch:%s:%s", p.SubmitterID(), tetherID)
}

// StartStopwatch 开始秒表会话
// 已在运行 → ValidationError（控件侧 Start 在运行中本就隐藏，这里兜底）
func (s *FormService) StartStopwatch(ctx context.Context, p domain.Principal, tetherID string) (*StopwatchStatus, error) {
	key := stopwatchKey(p, tetherID)
	if _, err := s.kv.Get(ctx, key); err == nil {
		return nil, domain.NewValidationError("stopwatch", "a stopwatch session is already running")
	} else if !errors.Is(err, store.ErrMiss) {
		return nil, &domain.ExternalServiceError{Service: "session store", Err: err}
	}

	start := s.now().UTC()
	if err := s.kv.Set(ctx, key, start.Format(time.RFC3339Nano), 0); err != nil {
		return nil, &domain.ExternalServiceError{Service: "session store", Err: err}
	}
	return &StopwatchStatus{Running: true, StartedAt: start}, nil
}

// GetStopwatch 读取会话状态（页面刷新后恢复计时显示）
func (s *FormService) GetStopwatch(ctx context.Context, p domain.Principal, tetherID string) (*StopwatchStatus, error) {
	start, err := s.readStart(ctx, p, tetherID)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return &StopwatchStatus{Running: false}, nil
		}
		return nil, err
	}
	return &StopwatchStatus{
		Running:        true,
		StartedAt:      start,
		ElapsedSeconds: int64(s.now().UTC().Sub(start) / time.Second),
	}, nil
}

// StopStopwatch 结束会话并合成条目字段
// durationMinutes = round((stop − start) / 60000)；随后清除持久化的开始标记
// optionalValues 为辅助表提交的非 timestamp 字段，校验规则同普通提交
func (s *FormService) StopStopwatch(ctx context.Context, p domain.Principal, tetherID string, tpl *domain.Template, optionalValues map[string]string) (map[string]domain.Value, error) {
	start, err := s.readStart(ctx, p, tetherID)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, domain.NewValidationError("stopwatch", "no stopwatch session is running")
		}
		return nil, err
	}

	stop := s.now().UTC()
	durationMinutes := math.Round(float64(stop.Sub(start).Milliseconds()) / 60000)

	fields := map[string]domain.Value{
		StopwatchStartField:    domain.TimeValue(start),
		StopwatchEndField:      domain.TimeValue(stop),
		StopwatchDurationField: domain.NumberValue(durationMinutes),
	}

	for name, raw := range optionalValues {
		f, ok := tpl.DynamicField(name)
		if !ok {
			return nil, domain.NewValidationError(name, "unknown field")
		}
		if f.Type == domain.FieldTypeTimestamp || raw == "" {
			continue
		}
		v, err := coerceValue(f, raw)
		if err != nil {
			return nil, err
		}
		fields[name] = v
	}

	if err := s.kv.Del(ctx, stopwatchKey(p, tetherID)); err != nil {
		// 标记清不掉只会让下一次 Start 误报运行中，记日志不拦截本次条目
		s.logger.Warn("failed to clear stopwatch marker",
			zap.String("tether_id", tetherID), zap.Error(err))
	}
	return fields, nil
}

func (s *FormService) readStart(ctx context.Context, p domain.Principal, tetherID string) (time.Time, error) {
	raw, err := s.kv.Get(ctx, stopwatchKey(p, tetherID))
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return time.Time{}, err
		}
		return time.Time{}, &domain.ExternalServiceError{Service: "session store", Err: err}
	}
	start, perr := time.Parse(time.RFC3339Nano, raw)
	if perr != nil {
		return time.Time{}, fmt.Errorf("corrupt stopwatch marker: %w", perr)
	}
	return start, nil
}
