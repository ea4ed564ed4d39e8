package models

import (
	"strings"
	"time"
)

const (
	RoleParent = "parent"
	RoleChild  = "child"
)

type User struct {
	ID             uint       `json:"id" gorm:"primary_key"`
	Username       string     `json:"username" gorm:"size:100;uniqueIndex"`
	Email          string     `json:"email" gorm:"size:200"`
	DisplayName    string     `json:"display_name" gorm:"size:100"`
	Password       string     `json:"-"` // bcrypt hash
	AuthProvider   string     `json:"auth_provider"` // "password" | "google"
	Role           string     `json:"role"`          // "parent" | "child"
	ProfileData    string     `json:"-"`             // JSON: schedule blocks + preferences
	FamilyID       string     `json:"family_id" gorm:"size:20"`
	FamilyJoinedAt *time.Time `json:"family_joined_at"`
}

func (u *User) IsParent() bool {
	return strings.ToLower(u.Role) == RoleParent
}

func (u *User) IsChild() bool {
	return strings.ToLower(u.Role) == RoleChild
}

// DisplayLabel falls back to the username when no display name is set.
func (u *User) DisplayLabel() string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	return strings.TrimSpace(u.Username)
}

// AttachFamily links the user to a family and stamps the join time.
func (u *User) AttachFamily(familyID string) {
	now := time.Now().UTC()
	u.FamilyID = familyID
	u.FamilyJoinedAt = &now
}

// DetachFamily clears the family link and the join timestamp together.
func (u *User) DetachFamily() {
	u.FamilyID = ""
	u.FamilyJoinedAt = nil
}
