package service

import (
	"context"
	"testing"
	"time"

	"tether-data/internal/domain"
	"tether-data/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeKV struct {
	data map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeKV) Del(ctx context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeKV) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	// for tests, return all keys regardless of pattern
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func plainTemplate() *domain.Template {
	return &domain.Template{
		TemplateID: "tpl-plain",
		Name:       "Site Visit",
		Scope:      domain.ScopeTerra,
		DynamicFields: []domain.Field{
			{Name: "Inspector", Type: domain.FieldTypeText, Required: true},
			{Name: "Score", Type: domain.FieldTypeNumber},
			{Name: "Visit Date", Type: domain.FieldTypeDate},
			{Name: "Condition", Type: domain.FieldTypeDropdown, Options: []string{"Good", "Fair", "Poor"}},
			{Name: "Notes", Type: domain.FieldTypeTextarea},
		},
	}
}

func stopwatchTemplate() *domain.Template {
	return &domain.Template{
		TemplateID: "tpl-sw",
		Name:       "Work Session",
		Scope:      domain.ScopeAura,
		DynamicFields: []domain.Field{
			{Name: "Session", Type: domain.FieldTypeTimestamp},
			{Name: "Notes", Type: domain.FieldTypeTextarea},
		},
	}
}

func TestBuildForm_PlainControls(t *testing.T) {
	s := NewFormService(newFakeKV(), zap.NewNop())

	desc := s.BuildForm(plainTemplate())
	require.False(t, desc.Stopwatch)
	require.Len(t, desc.Controls, 5)

	require.Equal(t, ControlInput, desc.Controls[0].Kind)
	require.Equal(t, domain.FieldTypeText, desc.Controls[0].InputType)
	require.True(t, desc.Controls[0].Required)

	sel := desc.Controls[3]
	require.Equal(t, ControlSelect, sel.Kind)
	require.Equal(t, []string{"Good", "Fair", "Poor"}, sel.Options)
	require.Equal(t, "Select Condition", sel.Placeholder)

	require.Equal(t, ControlTextarea, desc.Controls[4].Kind)
}

func TestBuildForm_StopwatchMode(t *testing.T) {
	s := NewFormService(newFakeKV(), zap.NewNop())

	desc := s.BuildForm(stopwatchTemplate())
	require.True(t, desc.Stopwatch)
	require.Empty(t, desc.Controls)
	// timestamp 字段不出现在辅助表里
	require.Len(t, desc.OptionalControls, 1)
	require.Equal(t, "Notes", desc.OptionalControls[0].Name)
}

func TestValidateSubmission_RequiredEmpty(t *testing.T) {
	s := NewFormService(newFakeKV(), zap.NewNop())

	_, err := s.ValidateSubmission(plainTemplate(), map[string]string{"Notes": "ok"})
	require.Error(t, err)
	require.True(t, domain.IsValidation(err))
}

func TestValidateSubmission_UnknownField(t *testing.T) {
	s := NewFormService(newFakeKV(), zap.NewNop())

	_, err := s.ValidateSubmission(plainTemplate(), map[string]string{
		"Inspector": "Kim",
		"Severity":  "high",
	})
	require.Error(t, err)
}

func TestValidateSubmission_DropdownRejectsNonOption(t *testing.T) {
	s := NewFormService(newFakeKV(), zap.NewNop())

	_, err := s.ValidateSubmission(plainTemplate(), map[string]string{
		"Inspector": "Kim",
		"Condition": "Select Condition", // 占位符不是合法值
	})
	require.Error(t, err)
}

func TestValidateSubmission_CoercesTypes(t *testing.T) {
	s := NewFormService(newFakeKV(), zap.NewNop())

	fields, err := s.ValidateSubmission(plainTemplate(), map[string]string{
		"Inspector":  "Kim",
		"Score":      "87.5",
		"Visit Date": "2026-08-28",
		"Condition":  "Good",
	})
	require.NoError(t, err)

	require.Equal(t, domain.ValueString, fields["Inspector"].Kind)
	require.Equal(t, domain.ValueNumber, fields["Score"].Kind)
	require.Equal(t, 87.5, fields["Score"].Num)
	require.Equal(t, domain.ValueTime, fields["Visit Date"].Kind)
	// 非必填且为空的字段不出现
	_, ok := fields["Notes"]
	require.False(t, ok)
}

func TestValidateSubmission_BadNumber(t *testing.T) {
	s := NewFormService(newFakeKV(), zap.NewNop())

	_, err := s.ValidateSubmission(plainTemplate(), map[string]string{
		"Inspector": "Kim",
		"Score":     "eighty",
	})
	require.Error(t, err)
}

func TestStopwatch_FullSession(t *testing.T) {
	start := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	clock := start
	s := NewFormServiceAt(newFakeKV(), zap.NewNop(), func() time.Time { return clock })
	p := domain.Principal{UserID: "u1", Kind: domain.PrincipalAuthenticated}
	ctx := context.Background()

	status, err := s.StartStopwatch(ctx, p, "tag-1")
	require.NoError(t, err)
	require.True(t, status.Running)

	// 重复 Start 被拒绝
	_, err = s.StartStopwatch(ctx, p, "tag-1")
	require.Error(t, err)

	// 125 秒后：状态可恢复，Stop 换算为 2 分钟
	clock = start.Add(125 * time.Second)
	status, err = s.GetStopwatch(ctx, p, "tag-1")
	require.NoError(t, err)
	require.True(t, status.Running)
	require.Equal(t, int64(125), status.ElapsedSeconds)

	fields, err := s.StopStopwatch(ctx, p, "tag-1", stopwatchTemplate(), map[string]string{"Notes": "done"})
	require.NoError(t, err)
	require.Equal(t, 2.0, fields[StopwatchDurationField].Num)
	require.Equal(t, start, fields[StopwatchStartField].Time)
	require.Equal(t, clock, fields[StopwatchEndField].Time)
	require.Equal(t, "done", fields["Notes"].Str)

	// 会话已清除
	status, err = s.GetStopwatch(ctx, p, "tag-1")
	require.NoError(t, err)
	require.False(t, status.Running)
}

func TestStopwatch_StopWithoutStart(t *testing.T) {
	s := NewFormService(newFakeKV(), zap.NewNop())
	p := domain.Anonymous()

	_, err := s.StopStopwatch(context.Background(), p, "tag-1", stopwatchTemplate(), nil)
	require.Error(t, err)
}

func TestStopwatch_SessionsPartitionedByPrincipal(t *testing.T) {
	s := NewFormService(newFakeKV(), zap.NewNop())
	ctx := context.Background()

	_, err := s.StartStopwatch(ctx, domain.Principal{UserID: "u1", Kind: domain.PrincipalAuthenticated}, "tag-1")
	require.NoError(t, err)

	// 另一主体在同一 tether 上有独立会话
	_, err = s.StartStopwatch(ctx, domain.Principal{UserID: "u2", Kind: domain.PrincipalAuthenticated}, "tag-1")
	require.NoError(t, err)
}
