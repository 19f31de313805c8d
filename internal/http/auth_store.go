package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"tether-data/internal/domain"

	"github.com/google/uuid"
)

// AuthUser 账号记录
type AuthUser struct {
	UserID       string
	Account      string
	Display      string
	PasswordHash string
	Admin        bool
}

// UserStore 内存账号库
// - passwordHash = sha256(lower(account) + ":" + password)
// 账号按小写归一化；管理员账号由启动时配置播种
type UserStore struct {
	mu        sync.RWMutex
	byAccount map[string]AuthUser
}

func NewUserStore() *UserStore {
	return &UserStore{byAccount: map[string]AuthUser{}}
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func normalizeAccount(account string) string {
	return strings.TrimSpace(strings.ToLower(account))
}

func HashAccountPassword(account, password string) string {
	return sha256Hex(normalizeAccount(account) + ":" + password)
}

// Upsert 创建或覆盖账号；display 为空时用 account 本身
func (s *UserStore) Upsert(account, display, password string, admin bool) AuthUser {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeAccount(account)
	if display == "" {
		display = account
	}
	u, ok := s.byAccount[key]
	if !ok {
		u = AuthUser{UserID: uuid.NewString()}
	}
	u.Account = account
	u.Display = display
	u.PasswordHash = HashAccountPassword(account, password)
	u.Admin = admin
	s.byAccount[key] = u
	return u
}

// Exists 账号是否已注册
func (s *UserStore) Exists(account string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byAccount[normalizeAccount(account)]
	return ok
}

// Authenticate 账号口令校验
func (s *UserStore) Authenticate(account, password string) (AuthUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byAccount[normalizeAccount(account)]
	if !ok || u.PasswordHash != HashAccountPassword(account, password) {
		return AuthUser{}, false
	}
	return u, true
}

// ListUsers 账号快照，按 account 排序（管理端概览）
func (s *UserStore) ListUsers() []AuthUser {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]AuthUser, 0, len(s.byAccount))
	for _, u := range s.byAccount {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out
}

// Principal 账号到访问主体的映射
func (u AuthUser) Principal() domain.Principal {
	kind := domain.PrincipalAuthenticated
	if u.Admin {
		kind = domain.PrincipalAdmin
	}
	return domain.Principal{UserID: u.UserID, Display: u.Display, Kind: kind}
}
