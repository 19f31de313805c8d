package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validTemplate() *Template {
	return &Template{
		TemplateID: "tpl-1",
		Name:       "Site Visit",
		Scope:      ScopeTerra,
		StaticFields: []Field{
			{Name: "Site Name", Type: FieldTypeText, Required: true},
		},
		DynamicFields: []Field{
			{Name: "Notes", Type: FieldTypeTextarea},
			{Name: "Condition", Type: FieldTypeDropdown, Options: []string{"Good", "Fair", "Poor"}},
		},
	}
}

func TestTemplateValidate_OK(t *testing.T) {
	require.NoError(t, validTemplate().Validate())
}

func TestTemplateValidate_EmptyName(t *testing.T) {
	tpl := validTemplate()
	tpl.Name = "   "
	require.Error(t, tpl.Validate())
}

func TestTemplateValidate_InvalidScope(t *testing.T) {
	tpl := validTemplate()
	tpl.Scope = "global"
	require.Error(t, tpl.Validate())
}

func TestTemplateValidate_DuplicateFieldNames(t *testing.T) {
	tpl := validTemplate()
	// 字段名唯一性跨 static/dynamic 两个分组
	tpl.DynamicFields = append(tpl.DynamicFields, Field{Name: "Site Name", Type: FieldTypeText})
	err := tpl.Validate()
	require.Error(t, err)
	require.True(t, IsValidation(err))
}

func TestTemplateValidate_DropdownNeedsOptions(t *testing.T) {
	tpl := validTemplate()
	tpl.DynamicFields = []Field{{Name: "Condition", Type: FieldTypeDropdown}}
	require.Error(t, tpl.Validate())
}

func TestTemplateValidate_OptionsOnlyForDropdown(t *testing.T) {
	tpl := validTemplate()
	tpl.DynamicFields = []Field{{Name: "Notes", Type: FieldTypeText, Options: []string{"x"}}}
	require.Error(t, tpl.Validate())
}

func TestTemplateHasStopwatch(t *testing.T) {
	tpl := validTemplate()
	require.False(t, tpl.HasStopwatch())

	tpl.DynamicFields = append(tpl.DynamicFields, Field{Name: "Session", Type: FieldTypeTimestamp})
	require.True(t, tpl.HasStopwatch())
}
