package service

import (
	"tether-data/internal/domain"
)

// ScopeResolver 访问范围解析
// 每次读取既有日志、每次写入新日志都先经过这里；解析器本身从不改数据
// - terra：共享流，任何持有 tether id 的访客可读，匿名可写
// - aura：按 (user, tether) 分区的私有流，仅认证属主可读写
type ScopeResolver struct{}

func NewScopeResolver() *ScopeResolver { return &ScopeResolver{} }

// ResolveRead 解析读取路径
// aura + 匿名：返回 ErrSignInRequired（页面以此触发登录升级提示）
func (r *ScopeResolver) ResolveRead(scope domain.Scope, tetherID string, p domain.Principal) (domain.LogStream, error) {
	switch scope {
	case domain.ScopeTerra:
		return domain.LogStream{Scope: scope, TetherID: tetherID}, nil
	case domain.ScopeAura:
		if p.IsAnonymous() {
			return domain.LogStream{}, domain.ErrSignInRequired
		}
		return domain.LogStream{Scope: scope, TetherID: tetherID, OwnerID: p.UserID}, nil
	default:
		return domain.LogStream{}, domain.NewValidationError("scope", "unknown scope: "+string(scope))
	}
}

// ResolveWrite 解析写入路径（与读取规则一致：terra 允许匿名提交）
func (r *ScopeResolver) ResolveWrite(scope domain.Scope, tetherID string, p domain.Principal) (domain.LogStream, error) {
	return r.ResolveRead(scope, tetherID, p)
}
