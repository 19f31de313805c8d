package service

import (
	"context"
	"strings"
	"time"

	"tether-data/internal/domain"
	"tether-data/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContentService 参考内容与厂商通讯录服务
// 读取对任何持有 tether id 的访问者开放；写入要求管理员
type ContentService struct {
	reference repository.ReferenceRepository
	contacts  repository.ContactsRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewContentService 创建内容服务
func NewContentService(reference repository.ReferenceRepository, contacts repository.ContactsRepository, logger *zap.Logger) *ContentService {
	return &ContentService{reference: reference, contacts: contacts, logger: logger, now: time.Now}
}

// GetReference 读取参考内容；不存在返回 domain.ErrNotFound
func (s *ContentService) GetReference(ctx context.Context, tetherID string) (*domain.ReferenceContent, error) {
	return s.reference.GetContent(ctx, tetherID)
}

// PutReference 管理员创建或整体更新一个 tether 的参考内容
func (s *ContentService) PutReference(ctx context.Context, p domain.Principal, tetherID, title, description, imageURL string) (*domain.ReferenceContent, error) {
	if !p.IsAdmin() {
		return nil, domain.ErrAuthorization
	}
	if strings.TrimSpace(title) == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}

	content := &domain.ReferenceContent{
		TetherID:    tetherID,
		Title:       title,
		Description: description,
		ImageURL:    imageURL,
		Updated:     s.now().UTC(),
		UpdatedBy:   p.UserID,
	}
	if err := s.reference.UpsertContent(ctx, content); err != nil {
		return nil, err
	}
	s.logger.Info("reference content updated", zap.String("tether_id", tetherID), zap.String("by", p.UserID))
	return content, nil
}

// DeleteReference 管理员删除参考内容
func (s *ContentService) DeleteReference(ctx context.Context, p domain.Principal, tetherID string) error {
	if !p.IsAdmin() {
		return domain.ErrAuthorization
	}
	return s.reference.DeleteContent(ctx, tetherID)
}

// ListContacts 某 tether 的联系人列表
func (s *ContentService) ListContacts(ctx context.Context, tetherID string) ([]*domain.VendorContact, error) {
	return s.contacts.ListContacts(ctx, tetherID)
}

// CreateContact 管理员新增联系人（contact_id 服务端生成）
func (s *ContentService) CreateContact(ctx context.Context, p domain.Principal, contact *domain.VendorContact) (*domain.VendorContact, error) {
	if !p.IsAdmin() {
		return nil, domain.ErrAuthorization
	}

	contact.ContactID = uuid.NewString()
	contact.Created = s.now().UTC()
	contact.CreatedBy = p.UserID
	contact.Updated = nil
	if err := contact.Validate(); err != nil {
		return nil, err
	}
	if err := s.contacts.CreateContact(ctx, contact); err != nil {
		return nil, err
	}
	s.logger.Info("vendor contact created",
		zap.String("tether_id", contact.TetherID), zap.String("contact_id", contact.ContactID))
	return contact, nil
}

// UpdateContact 管理员整体更新联系人；保留原 created/created_by
func (s *ContentService) UpdateContact(ctx context.Context, p domain.Principal, contact *domain.VendorContact) (*domain.VendorContact, error) {
	if !p.IsAdmin() {
		return nil, domain.ErrAuthorization
	}

	existing, err := s.contacts.GetContact(ctx, contact.TetherID, contact.ContactID)
	if err != nil {
		return nil, err
	}
	contact.Created = existing.Created
	contact.CreatedBy = existing.CreatedBy
	updated := s.now().UTC()
	contact.Updated = &updated
	if err := contact.Validate(); err != nil {
		return nil, err
	}
	if err := s.contacts.UpdateContact(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// DeleteContact 管理员删除单条联系人
func (s *ContentService) DeleteContact(ctx context.Context, p domain.Principal, tetherID, contactID string) error {
	if !p.IsAdmin() {
		return domain.ErrAuthorization
	}
	return s.contacts.DeleteContact(ctx, tetherID, contactID)
}
