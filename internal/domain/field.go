package domain

// FieldType 字段类型（封闭枚举，渲染和校验时穷举匹配）
type FieldType string

const (
	FieldTypeText      FieldType = "text"
	FieldTypeNumber    FieldType = "number"
	FieldTypeDate      FieldType = "date"
	FieldTypeDropdown  FieldType = "dropdown"
	FieldTypeTextarea  FieldType = "textarea"
	FieldTypeTimestamp FieldType = "timestamp"
	FieldTypeEmail     FieldType = "email"
	FieldTypeURL       FieldType = "url"
)

// Valid 判断字段类型是否为合法取值
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeNumber, FieldTypeDate, FieldTypeDropdown,
		FieldTypeTextarea, FieldTypeTimestamp, FieldTypeEmail, FieldTypeURL:
		return true
	}
	return false
}

// Field 模板字段定义
// name 在所属列表（static_fields 或 dynamic_fields）内唯一
// dropdown 类型必须携带非空 options；timestamp 类型触发秒表模式（见 FormService）
type Field struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Options     []string  `json:"options,omitempty"`     // 仅 dropdown 使用
	Placeholder string    `json:"placeholder,omitempty"` // 可选的输入提示
	Required    bool      `json:"required"`
}

// HasOption 判断 value 是否为 dropdown 的合法选项
func (f Field) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt == value {
			return true
		}
	}
	return false
}
