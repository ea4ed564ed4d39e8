package repositories

import "github.com/toc8730/StepSync/models"

type UserRepository interface {
	FindByUsername(username string) (models.User, error)
	FindByEmail(email string) (models.User, error)
	FindByFamilyID(familyID string) ([]models.User, error)
	ExistsUsername(username string, excludeID uint) (bool, error)
	Save(user models.User) error
}
