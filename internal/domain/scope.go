package domain

// Scope 日志可见范围（log_scope 的规范命名：统一使用 "scope"）
// - terra: 共享范围，一个 tether 对应一条共享日志流，任何访客可读写
// - aura: 私有范围，日志流按 (user_id, tether_id) 分区，仅提交者本人可见
type Scope string

const (
	ScopeTerra Scope = "terra"
	ScopeAura  Scope = "aura"
)

// Valid 判断 scope 取值是否合法
func (s Scope) Valid() bool {
	return s == ScopeTerra || s == ScopeAura
}

// Shared terra 范围的日志对所有访客共享
func (s Scope) Shared() bool {
	return s == ScopeTerra
}

// LogStream 由 ScopeResolver 解析出的日志流定位
// terra：OwnerID 为空，对应共享集合 shared_logs/{tether_id}
// aura：OwnerID 为提交者 user id，对应 users/{user_id}/logs/{tether_id}
type LogStream struct {
	Scope    Scope
	TetherID string
	OwnerID  string
}

