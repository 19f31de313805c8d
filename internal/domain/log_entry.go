package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ValueKind 日志字段值的类型标签
type ValueKind string

const (
	ValueString ValueKind = "string"
	ValueNumber ValueKind = "number"
	ValueTime   ValueKind = "time"
	ValueNull   ValueKind = "null"
)

// Value 日志字段值（封闭变体：string | number | time | null）
// 字段集合由模板驱动、编译期未知，但每个值本身是强类型的
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Time time.Time
}

func StringValue(s string) Value    { return Value{Kind: ValueString, Str: s} }
func NumberValue(n float64) Value   { return Value{Kind: ValueNumber, Num: n} }
func TimeValue(t time.Time) Value   { return Value{Kind: ValueTime, Time: t} }
func NullValue() Value              { return Value{Kind: ValueNull} }

// IsEmpty required 校验视 null 和空字符串为未填写
func (v Value) IsEmpty() bool {
	return v.Kind == ValueNull || (v.Kind == ValueString && v.Str == "")
}

// Display 用于日志历史展示和 Excel 导出的字符串形式
func (v Value) Display() string {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueNumber:
		// 整数值不带小数尾巴
		if v.Num == float64(int64(v.Num)) {
			return fmt.Sprintf("%d", int64(v.Num))
		}
		return fmt.Sprintf("%g", v.Num)
	case ValueTime:
		return v.Time.Format(time.RFC3339)
	default:
		return ""
	}
}

// MarshalJSON 按变体输出原生 JSON 类型（时间输出 RFC3339 字符串）
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueString:
		return json.Marshal(v.Str)
	case ValueNumber:
		return json.Marshal(v.Num)
	case ValueTime:
		return json.Marshal(v.Time.Format(time.RFC3339))
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON 字符串优先按 RFC3339 时间解析，失败则保留为字符串
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = NullValue()
	case float64:
		*v = NumberValue(x)
	case string:
		if t, err := time.Parse(time.RFC3339, x); err == nil {
			*v = TimeValue(t)
		} else {
			*v = StringValue(x)
		}
	default:
		return fmt.Errorf("unsupported log value type %T", raw)
	}
	return nil
}

// LogEntry 日志条目领域模型（append-only，只增不改）
// entry_id 为单调可排序的 push id；共享条目随 tether reset 级联删除，
// aura 条目属于用户本人，reset 时保留
type LogEntry struct {
	EntryID     string           `db:"entry_id" json:"entry_id"`
	TetherID    string           `db:"tether_id" json:"tether_id"`
	Timestamp   time.Time        `db:"ts" json:"timestamp"`
	SubmittedBy string           `db:"submitted_by" json:"submitted_by"` // user id 或 "anonymous"
	Location    string           `db:"location" json:"location,omitempty"`
	Fields      map[string]Value `db:"fields" json:"fields"` // JSONB，键为模板 dynamic_fields 名的子集
}
