package impl

import (
	"github.com/toc8730/StepSync/models"
	"github.com/toc8730/StepSync/repositories"

	"gorm.io/gorm"
)

type InviteRepositoryImpl struct {
	DB *gorm.DB
}

func NewInviteRepository(db *gorm.DB) repositories.InviteRepository {
	return &InviteRepositoryImpl{DB: db}
}

func (r *InviteRepositoryImpl) FindPending(familyID, childUsername string) (models.FamilyInvite, error) {
	var invite models.FamilyInvite
	err := r.DB.Where("family_id = ? AND child_username = ? AND status = ?",
		familyID, childUsername, models.InviteStatusPending).First(&invite).Error
	if err != nil {
		return models.FamilyInvite{}, err
	}
	return invite, nil
}

func (r *InviteRepositoryImpl) ListPendingForChild(childUsername string) ([]models.FamilyInvite, error) {
	var invites []models.FamilyInvite
	err := r.DB.Where("child_username = ? AND status = ?", childUsername, models.InviteStatusPending).
		Order("created_at asc").Find(&invites).Error
	if err != nil {
		return nil, err
	}
	return invites, nil
}

func (r *InviteRepositoryImpl) Save(invite models.FamilyInvite) error {
	return r.DB.Save(&invite).Error
}

type LeaveRequestRepositoryImpl struct {
	DB *gorm.DB
}

func NewLeaveRequestRepository(db *gorm.DB) repositories.LeaveRequestRepository {
	return &LeaveRequestRepositoryImpl{DB: db}
}

func (r *LeaveRequestRepositoryImpl) FindPending(familyID, childUsername string) (models.FamilyLeaveRequest, error) {
	var request models.FamilyLeaveRequest
	err := r.DB.Where("family_id = ? AND child_username = ? AND status = ?",
		familyID, childUsername, models.LeaveRequestStatusPending).First(&request).Error
	if err != nil {
		return models.FamilyLeaveRequest{}, err
	}
	return request, nil
}

func (r *LeaveRequestRepositoryImpl) ListPending(familyID string) ([]models.FamilyLeaveRequest, error) {
	var requests []models.FamilyLeaveRequest
	err := r.DB.Where("family_id = ? AND status = ?", familyID, models.LeaveRequestStatusPending).
		Order("created_at asc").Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *LeaveRequestRepositoryImpl) CountPending(familyID string) (int64, error) {
	var count int64
	err := r.DB.Model(&models.FamilyLeaveRequest{}).
		Where("family_id = ? AND status = ?", familyID, models.LeaveRequestStatusPending).
		Count(&count).Error
	return count, err
}

func (r *LeaveRequestRepositoryImpl) Save(request models.FamilyLeaveRequest) error {
	return r.DB.Save(&request).Error
}

func (r *LeaveRequestRepositoryImpl) Delete(request models.FamilyLeaveRequest) error {
	return r.DB.Delete(&request).Error
}

func (r *LeaveRequestRepositoryImpl) DeleteForFamily(familyID string) error {
	return r.DB.Where("family_id = ?", familyID).Delete(&models.FamilyLeaveRequest{}).Error
}

func (r *LeaveRequestRepositoryImpl) DeleteForChild(familyID, childUsername string) error {
	return r.DB.Where("family_id = ? AND child_username = ?", familyID, childUsername).
		Delete(&models.FamilyLeaveRequest{}).Error
}
