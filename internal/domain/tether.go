package domain

import "time"

// TetherStatus tether 生命周期状态
// unbound（无记录）→ active ⇄ locked；reset 从任意状态回到 unbound
type TetherStatus string

const (
	TetherUnbound TetherStatus = "unbound"
	TetherActive  TetherStatus = "active"
	TetherLocked  TetherStatus = "locked"
)

// Tether 标签记录领域模型（对应 tethers 表）
// 模板引用字段的规范命名统一为 template_id（源端草稿在 template/template_id 之间摇摆）
type Tether struct {
	TetherID     string            `db:"tether_id" json:"tether_id"` // 调用方提供的不透明字符串（QR/NFC 写入的 id）
	TemplateID   string            `db:"template_id" json:"template_id"`
	Scope        Scope             `db:"scope" json:"scope"`
	StaticValues map[string]string `db:"static_values" json:"static_values"` // JSONB，键恰为模板 static_fields 的字段名
	Locked       bool              `db:"locked" json:"locked"`
	Created      time.Time         `db:"created" json:"created"`
	CreatedBy    string            `db:"created_by" json:"created_by"`
}

// Status locked 标志映射到生命周期状态（记录存在即非 unbound）
func (t *Tether) Status() TetherStatus {
	if t == nil {
		return TetherUnbound
	}
	if t.Locked {
		return TetherLocked
	}
	return TetherActive
}
