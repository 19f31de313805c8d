package repository

import (
	"context"

	"tether-data/internal/domain"
)

// SharedLogs 共享日志集合的导出形状：tether_id → entry_id → entry
type SharedLogs map[string]map[string]*domain.LogEntry

// UserLogs 按用户分区的日志集合：user_id → tether_id → entry_id → entry
type UserLogs map[string]map[string]map[string]*domain.LogEntry

// LogsRepository 日志条目Repository接口
// 条目 append-only：只有 AppendEntry 一个写入口；删除仅发生在 tether reset
// 级联（且仅共享流），aura 条目归用户所有、reset 保留
type LogsRepository interface {
	// AppendEntry 追加一条日志（entry_id 为 Service 生成的 push id）
	AppendEntry(ctx context.Context, stream domain.LogStream, entry *domain.LogEntry) error

	// ListEntries 按 entry_id 升序读取一条流（push id 字典序即插入序）
	ListEntries(ctx context.Context, stream domain.LogStream) ([]*domain.LogEntry, error)

	// DeleteSharedEntries 删除一个 tether 的全部共享条目（reset 级联）
	DeleteSharedEntries(ctx context.Context, tetherID string) error

	// CountSharedByTether usage 统计：tether_id → 共享条目数
	CountSharedByTether(ctx context.Context) (map[string]int, error)

	// ListUserTetherIDs 某用户拥有 aura 条目的 tether 列表（My Aura 概览）
	ListUserTetherIDs(ctx context.Context, userID string) ([]string, error)

	// 管理端导出/导入
	ListAllShared(ctx context.Context) (SharedLogs, error)
	ReplaceAllShared(ctx context.Context, logs SharedLogs) error
	ListAllUserLogs(ctx context.Context) (UserLogs, error)
	ReplaceAllUserLogs(ctx context.Context, logs UserLogs) error
}
