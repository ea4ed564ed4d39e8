package repositories

import "github.com/toc8730/StepSync/models"

type FamilyRepository interface {
	FindByFamilyID(familyID string) (models.Family, error)
	FindByMaster(username string) ([]models.Family, error)
	Save(family models.Family) error
	Delete(family models.Family) error
}

type InviteRepository interface {
	FindPending(familyID, childUsername string) (models.FamilyInvite, error)
	ListPendingForChild(childUsername string) ([]models.FamilyInvite, error)
	Save(invite models.FamilyInvite) error
}

type LeaveRequestRepository interface {
	FindPending(familyID, childUsername string) (models.FamilyLeaveRequest, error)
	ListPending(familyID string) ([]models.FamilyLeaveRequest, error)
	CountPending(familyID string) (int64, error)
	Save(request models.FamilyLeaveRequest) error
	Delete(request models.FamilyLeaveRequest) error
	DeleteForFamily(familyID string) error
	DeleteForChild(familyID, childUsername string) error
}
