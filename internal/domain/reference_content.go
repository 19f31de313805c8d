package domain

import "time"

// ReferenceContent 参考内容领域模型（对应 reference_content 表，仅 aura tether）
// 每个 aura tether 至多一条，由管理端创建/更新，访问用户只读
type ReferenceContent struct {
	TetherID    string    `db:"tether_id" json:"tether_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	ImageURL    string    `db:"image_url" json:"image_url,omitempty"`
	Updated     time.Time `db:"updated" json:"updated"`
	UpdatedBy   string    `db:"updated_by" json:"updated_by"`
}
