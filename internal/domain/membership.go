package domain

import (
	"time"

	"github.com/google/uuid"
)

type MembershipRole string

const (
	MembershipRoleMember MembershipRole = "member"
	MembershipRoleStaff  MembershipRole = "staff"
	MembershipRoleOwner  MembershipRole = "owner"
)

type MembershipStatus string

const (
	MembershipStatusActive    MembershipStatus = "active"
	MembershipStatusPaused    MembershipStatus = "paused"
	MembershipStatusCancelled MembershipStatus = "cancelled"
)

type Membership struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	UserID         uuid.UUID        `db:"user_account_id" json:"user_id"`
	OrganizationID uuid.UUID        `db:"organization_id" json:"organization_id"`
	Role           MembershipRole   `db:"role" json:"role"`
	Status         MembershipStatus `db:"status" json:"status"`
	JoinedAt       time.Time        `db:"joined_at" json:"joined_at"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// CanManageOrg reports whether the membership grants staff-level access to
// its organization.
func (m *Membership) CanManageOrg() bool {
	return m.Role == MembershipRoleStaff || m.Role == MembershipRoleOwner
}
