package domain

import (
	"regexp"
	"time"
)

// ContactType 联系人类型
type ContactType string

const (
	ContactVendor       ContactType = "vendor"
	ContactManufacturer ContactType = "manufacturer"
	ContactService      ContactType = "service"
	ContactSupport      ContactType = "support"
	ContactOther        ContactType = "other"
)

// Valid 判断联系人类型是否合法
func (t ContactType) Valid() bool {
	switch t {
	case ContactVendor, ContactManufacturer, ContactService, ContactSupport, ContactOther:
		return true
	}
	return false
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// VendorContact 厂商联系人领域模型（对应 vendor_contacts 表）
// 按 tether 维护的通讯录，独立于日志条目，reset 时保留
type VendorContact struct {
	ContactID string      `db:"contact_id" json:"contact_id"` // UUID
	TetherID  string      `db:"tether_id" json:"tether_id"`
	Type      ContactType `db:"contact_type" json:"type"`
	Name      string      `db:"name" json:"name"`
	Phone     string      `db:"phone" json:"phone,omitempty"`
	Email     string      `db:"email" json:"email,omitempty"`
	Website   string      `db:"website" json:"website,omitempty"`
	Address   string      `db:"address" json:"address,omitempty"`
	Notes     string      `db:"notes" json:"notes,omitempty"`
	Created   time.Time   `db:"created" json:"created"`
	CreatedBy string      `db:"created_by" json:"created_by"`
	Updated   *time.Time  `db:"updated" json:"updated,omitempty"`
}

// Validate type 和 name 必填，email 需符合格式
func (c *VendorContact) Validate() error {
	if !c.Type.Valid() {
		return NewValidationError("type", "contact type is required")
	}
	if c.Name == "" {
		return NewValidationError("name", "contact name is required")
	}
	if c.Email != "" && !emailPattern.MatchString(c.Email) {
		return NewValidationError("email", "invalid email address")
	}
	return nil
}
