package domain

// PrincipalKind 身份三态：外部认证提供方产出的不透明 user id + 等级
type PrincipalKind string

const (
	PrincipalAnonymous     PrincipalKind = "anonymous"
	PrincipalAuthenticated PrincipalKind = "authenticated"
	PrincipalAdmin         PrincipalKind = "admin"
)

// Principal 当前请求的已解析身份
// 显式构造、逐层传入（不做全局可变的 current-user 状态）
type Principal struct {
	UserID  string        `json:"user_id"`
	Display string        `json:"display,omitempty"`
	Kind    PrincipalKind `json:"kind"`
}

// Anonymous 匿名访客（SubmittedBy 记为 "anonymous"）
func Anonymous() Principal {
	return Principal{UserID: "anonymous", Kind: PrincipalAnonymous}
}

func (p Principal) IsAnonymous() bool { return p.Kind == PrincipalAnonymous }
func (p Principal) IsAdmin() bool     { return p.Kind == PrincipalAdmin }

// SubmitterID 写入日志条目 submitted_by 的值
func (p Principal) SubmitterID() string {
	if p.IsAnonymous() {
		return "anonymous"
	}
	return p.UserID
}
