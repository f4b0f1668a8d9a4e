package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// Granular permissions for client portal users. A primary contact implicitly
// holds every permission regardless of its explicit set.
const (
	PermShipmentsView   = "shipments.view"
	PermShipmentsCreate = "shipments.create"
	PermInvoicesView    = "invoices.view"
	PermPaymentsCreate  = "payments.create"
	PermPoliciesView    = "policies.view"
)

// User is a credential-holding principal. Role never changes after creation;
// only admins may flip the Active flag.
type User struct {
	ID               uint   `gorm:"primarykey"`
	Username         string `gorm:"uniqueIndex;size:32;not null"`
	FullName         string `gorm:"size:64;not null"`
	Email            string `gorm:"uniqueIndex;size:256;not null"`
	Password         string `gorm:"size:64;not null"`
	Role             string `gorm:"size:16;not null"`
	Active           bool   `gorm:"default:true;not null"`
	ClientID         uint   `gorm:"index"` // zero for admins
	IsPrimaryContact bool   `gorm:"default:false;not null"`
	Permissions      string `gorm:"size:512;not null"` // comma-separated permission names
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == 0 {
		u.ID = GenerateID()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasPermission reports whether the user may perform a client-scoped action.
// The primary-contact check must come first so primary contacts keep access
// when new permissions are added to the enum.
func (u *User) HasPermission(perm string) bool {
	if u.IsPrimaryContact {
		return true
	}
	for _, granted := range strings.Split(u.Permissions, ",") {
		if strings.TrimSpace(granted) == perm {
			return true
		}
	}
	return false
}

func (u *User) PermissionList() []string {
	if u.Permissions == "" {
		return nil
	}
	perms := strings.Split(u.Permissions, ",")
	for i := range perms {
		perms[i] = strings.TrimSpace(perms[i])
	}
	return perms
}
