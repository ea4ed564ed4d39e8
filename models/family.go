package models

import "time"

type Family struct {
	ID       uint   `json:"id" gorm:"primary_key"`
	FamilyID string `json:"family_id" gorm:"size:20;uniqueIndex"`
	Name     string `json:"name" gorm:"size:100"`
	Secret   string `json:"-"` // bcrypt hash of the join secret
	Master   string `json:"master" gorm:"size:100"` // username of the master parent
}

const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusRejected = "rejected"
)

type FamilyInvite struct {
	ID            uint      `json:"id" gorm:"primary_key"`
	FamilyID      string    `json:"family_id" gorm:"size:20;index"`
	ChildUsername string    `json:"child_username" gorm:"size:100;index"`
	Status        string    `json:"status"` // pending | accepted | rejected
	CreatedAt     time.Time `json:"created_at"`
}

const LeaveRequestStatusPending = "pending"

type FamilyLeaveRequest struct {
	ID            uint      `json:"id" gorm:"primary_key"`
	FamilyID      string    `json:"family_id" gorm:"size:20;index"`
	ChildUsername string    `json:"child_username" gorm:"size:100;index"`
	Status        string    `json:"status"` // pending until resolved; resolved rows are deleted
	CreatedAt     time.Time `json:"created_at"`
}
