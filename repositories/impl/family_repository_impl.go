package impl

import (
	"github.com/toc8730/StepSync/models"
	"github.com/toc8730/StepSync/repositories"

	"gorm.io/gorm"
)

type FamilyRepositoryImpl struct {
	DB *gorm.DB
}

func NewFamilyRepository(db *gorm.DB) repositories.FamilyRepository {
	return &FamilyRepositoryImpl{DB: db}
}

func (r *FamilyRepositoryImpl) FindByFamilyID(familyID string) (models.Family, error) {
	var family models.Family
	if err := r.DB.Where("family_id = ?", familyID).First(&family).Error; err != nil {
		return models.Family{}, err
	}
	return family, nil
}

func (r *FamilyRepositoryImpl) FindByMaster(username string) ([]models.Family, error) {
	var families []models.Family
	if err := r.DB.Where("master = ?", username).Find(&families).Error; err != nil {
		return nil, err
	}
	return families, nil
}

func (r *FamilyRepositoryImpl) Save(family models.Family) error {
	return r.DB.Save(&family).Error
}

func (r *FamilyRepositoryImpl) Delete(family models.Family) error {
	return r.DB.Delete(&family).Error
}
