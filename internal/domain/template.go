package domain

import "time"

// Template 模板领域模型（对应 global_templates 表）
// 管理员定义的字段 schema：static_fields 在分配 tether 时一次性填写，
// dynamic_fields 每条日志重新采集
type Template struct {
	TemplateID    string    `db:"template_id" json:"template_id"`
	Name          string    `db:"name" json:"name"`
	Description   string    `db:"description" json:"description,omitempty"`
	Scope         Scope     `db:"scope" json:"scope"`
	StaticFields  []Field   `db:"static_fields" json:"static_fields"`   // JSONB
	DynamicFields []Field   `db:"dynamic_fields" json:"dynamic_fields"` // JSONB
	Created       time.Time `db:"created" json:"created"`
	CreatedBy     string    `db:"created_by" json:"created_by"`
}

// StaticFieldNames 返回 static_fields 的字段名列表（保持定义顺序）
func (t *Template) StaticFieldNames() []string {
	names := make([]string, 0, len(t.StaticFields))
	for _, f := range t.StaticFields {
		names = append(names, f.Name)
	}
	return names
}

// DynamicField 按名称查找动态字段
func (t *Template) DynamicField(name string) (Field, bool) {
	for _, f := range t.DynamicFields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// HasStopwatch 任一动态字段为 timestamp 类型即进入秒表模式
func (t *Template) HasStopwatch() bool {
	for _, f := range t.DynamicFields {
		if f.Type == FieldTypeTimestamp {
			return true
		}
	}
	return false
}

// Validate 校验模板 schema：
// - 模板名非空
// - scope 合法
// - 字段名在各自列表内唯一且非空，类型合法
// - dropdown 必须携带非空 options，非 dropdown 不允许 options
func (t *Template) Validate() error {
	if t.Name == "" {
		return NewValidationError("name", "template name is required")
	}
	if !t.Scope.Valid() {
		return NewValidationError("scope", "scope must be terra or aura")
	}
	if err := validateFieldList("static_fields", t.StaticFields); err != nil {
		return err
	}
	if err := validateFieldList("dynamic_fields", t.DynamicFields); err != nil {
		return err
	}
	return nil
}

func validateFieldList(list string, fields []Field) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return NewValidationError(list, "field name is required")
		}
		if _, dup := seen[f.Name]; dup {
			return NewValidationError(list, "duplicate field name: "+f.Name)
		}
		seen[f.Name] = struct{}{}
		if !f.Type.Valid() {
			return NewValidationError(list, "unknown field type for "+f.Name+": "+string(f.Type))
		}
		if f.Type == FieldTypeDropdown && len(f.Options) == 0 {
			return NewValidationError(list, "dropdown field "+f.Name+" requires options")
		}
		if f.Type != FieldTypeDropdown && len(f.Options) > 0 {
			return NewValidationError(list, "field "+f.Name+" does not accept options")
		}
	}
	return nil
}
