package impl

import (
	"github.com/toc8730/StepSync/repositories"

	"gorm.io/gorm"
)

// NewRepos builds the full repository set over one gorm handle. The same
// constructor serves both the ambient handle and transaction handles.
func NewRepos(db *gorm.DB) repositories.Repos {
	return repositories.Repos{
		Users:         NewUserRepository(db),
		Families:      NewFamilyRepository(db),
		Invites:       NewInviteRepository(db),
		LeaveRequests: NewLeaveRequestRepository(db),
	}
}

// GormTx runs service closures inside a database transaction.
type GormTx struct {
	DB *gorm.DB
}

func NewGormTx(db *gorm.DB) repositories.TxRunner {
	return &GormTx{DB: db}
}

func (t *GormTx) InTx(fn func(r repositories.Repos) error) error {
	return t.DB.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepos(tx))
	})
}
