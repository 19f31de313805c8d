package repository

import (
	"context"

	"tether-data/internal/domain"
)

// ContactsRepository 厂商联系人Repository接口
// 通讯录独立于日志条目，tether reset 不触碰
type ContactsRepository interface {
	// GetContact 不存在返回 domain.ErrNotFound
	GetContact(ctx context.Context, tetherID, contactID string) (*domain.VendorContact, error)

	// ListContacts 某 tether 的联系人，按创建时间倒序
	ListContacts(ctx context.Context, tetherID string) ([]*domain.VendorContact, error)

	// CreateContact contact_id 由 Service 生成（UUID）
	CreateContact(ctx context.Context, contact *domain.VendorContact) error

	// UpdateContact 整体更新；不存在返回 domain.ErrNotFound
	UpdateContact(ctx context.Context, contact *domain.VendorContact) error

	// DeleteContact 删除单条
	DeleteContact(ctx context.Context, tetherID, contactID string) error

	// 管理端导出/导入（tether_id → contact_id → contact）
	ListAllContacts(ctx context.Context) (map[string]map[string]*domain.VendorContact, error)
	ReplaceAllContacts(ctx context.Context, contacts map[string]map[string]*domain.VendorContact) error
}
