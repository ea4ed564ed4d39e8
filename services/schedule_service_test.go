package services

import (
	"strings"
	"testing"

	"github.com/toc8730/StepSync/models"
	"github.com/toc8730/StepSync/repositories"
	"github.com/toc8730/StepSync/repositories/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newScheduleServiceWithMocks() (*ScheduleService, *mocks.UserRepository, *mocks.FamilyRepository) {
	userRepo := new(mocks.UserRepository)
	familyRepo := new(mocks.FamilyRepository)

	repos := repositories.Repos{
		Users:         userRepo,
		Families:      familyRepo,
		Invites:       new(mocks.InviteRepository),
		LeaveRequests: new(mocks.LeaveRequestRepository),
	}
	service := NewScheduleService(repos, &mocks.PassthroughTx{Repos: repos})
	return service, userRepo, familyRepo
}

func encodeBlocks(blocks ...models.ScheduleBlock) string {
	return models.Profile{Blocks: blocks}.Encode()
}

func savedBlocks(u models.User) []models.ScheduleBlock {
	return models.ParseProfile(u.ProfileData).Blocks
}

func TestAddFamilyBlockFansOutToMasterAndChildren(t *testing.T) {
	service, userRepo, familyRepo := newScheduleServiceWithMocks()

	family := models.Family{FamilyID: "FAM1234567", Master: "mom"}
	mom := models.User{ID: 1, Username: "mom", Role: models.RoleParent, FamilyID: "FAM1234567"}
	kid1 := models.User{ID: 2, Username: "kid1", Role: models.RoleChild, FamilyID: "FAM1234567"}
	kid2 := models.User{ID: 3, Username: "kid2", Role: models.RoleChild, FamilyID: "FAM1234567"}

	userRepo.On("FindByUsername", "mom").Return(mom, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(family, nil)
	userRepo.On("FindByFamilyID", "FAM1234567").Return([]models.User{mom, kid1, kid2}, nil)

	var tagged []string
	userRepo.On("Save", mock.MatchedBy(func(u models.User) bool {
		blocks := savedBlocks(u)
		if len(blocks) != 1 || blocks[0].Title != "Dinner" {
			return false
		}
		tagged = append(tagged, blocks[0].FamilyTag)
		return true
	})).Return(nil).Times(3)

	tag, err := service.AddFamilyBlock("mom", models.ScheduleBlock{Title: " Dinner ", StartTime: "6:00", Period: "pm"}, "")

	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(tag, "fam-"))
	assert.Len(t, tagged, 3)
	for _, got := range tagged {
		assert.Equal(t, tag, got)
	}
	userRepo.AssertExpectations(t)
}

func TestAddFamilyBlockRequiresChildren(t *testing.T) {
	service, userRepo, familyRepo := newScheduleServiceWithMocks()

	family := models.Family{FamilyID: "FAM1234567", Master: "mom"}
	mom := models.User{ID: 1, Username: "mom", Role: models.RoleParent, FamilyID: "FAM1234567"}

	userRepo.On("FindByUsername", "mom").Return(mom, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(family, nil)
	userRepo.On("FindByFamilyID", "FAM1234567").Return([]models.User{mom}, nil)

	_, err := service.AddFamilyBlock("mom", models.ScheduleBlock{Title: "Dinner"}, "")

	assert.ErrorIs(t, err, ErrInvalidInput)
	userRepo.AssertNotCalled(t, "Save", mock.Anything)
}

func TestAddBlockRejectsChild(t *testing.T) {
	service, userRepo, _ := newScheduleServiceWithMocks()

	kid := models.User{ID: 2, Username: "kid", Role: models.RoleChild, FamilyID: "FAM1234567"}
	userRepo.On("FindByUsername", "kid").Return(kid, nil)

	err := service.AddBlock("kid", models.ScheduleBlock{Title: "Game time"}, "")

	assert.ErrorIs(t, err, ErrUnauthorized)
	userRepo.AssertNotCalled(t, "Save", mock.Anything)
}

func TestEditBlockAllowsChild(t *testing.T) {
	service, userRepo, _ := newScheduleServiceWithMocks()

	kid := models.User{ID: 2, Username: "kid", Role: models.RoleChild,
		ProfileData: encodeBlocks(models.ScheduleBlock{Title: "Homework", StartTime: "4:00", Period: "PM"})}

	userRepo.On("FindByUsername", "kid").Return(kid, nil)
	userRepo.On("Save", mock.MatchedBy(func(u models.User) bool {
		blocks := savedBlocks(u)
		return len(blocks) == 1 && blocks[0].Completed && blocks[0].Title == "Homework"
	})).Return(nil)

	err := service.EditBlock("kid",
		models.ScheduleBlock{Title: "Homework", StartTime: "4:00", Period: "PM"},
		models.ScheduleBlock{Title: "Homework", StartTime: "4:00", Period: "PM", Completed: true},
		"")

	assert.NoError(t, err)
	userRepo.AssertExpectations(t)
}

func TestEditBlockMatchesByTitleWhenTimesChanged(t *testing.T) {
	service, userRepo, _ := newScheduleServiceWithMocks()

	parent := models.User{ID: 1, Username: "solo", Role: models.RoleParent,
		ProfileData: encodeBlocks(
			models.ScheduleBlock{Title: "Reading", StartTime: "7:00", Period: "PM"},
			models.ScheduleBlock{Title: "Stretch", StartTime: "8:00", Period: "PM"},
		)}

	userRepo.On("FindByUsername", "solo").Return(parent, nil)
	userRepo.On("Save", mock.MatchedBy(func(u models.User) bool {
		blocks := savedBlocks(u)
		return len(blocks) == 2 && blocks[1].StartTime == "9:00"
	})).Return(nil)

	// the stored copy drifted, so only the title still matches
	err := service.EditBlock("solo",
		models.ScheduleBlock{Title: "Stretch", StartTime: "8:30", Period: "PM"},
		models.ScheduleBlock{Title: "Stretch", StartTime: "9:00", Period: "PM"},
		"")

	assert.NoError(t, err)
	userRepo.AssertExpectations(t)
}

func TestEditFamilyBlockReplacesTaggedCopies(t *testing.T) {
	service, userRepo, familyRepo := newScheduleServiceWithMocks()

	shared := models.ScheduleBlock{Title: "Dinner", StartTime: "6:00", Period: "PM", FamilyTag: "fam-abc"}
	family := models.Family{FamilyID: "FAM1234567", Master: "mom"}
	mom := models.User{ID: 1, Username: "mom", Role: models.RoleParent, FamilyID: "FAM1234567",
		ProfileData: encodeBlocks(shared)}
	kid := models.User{ID: 2, Username: "kid", Role: models.RoleChild, FamilyID: "FAM1234567",
		ProfileData: encodeBlocks(models.ScheduleBlock{Title: "Homework"}, shared)}

	userRepo.On("FindByUsername", "mom").Return(mom, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(family, nil)
	userRepo.On("FindByFamilyID", "FAM1234567").Return([]models.User{mom, kid}, nil)
	userRepo.On("Save", mock.MatchedBy(func(u models.User) bool {
		for _, b := range savedBlocks(u) {
			if b.FamilyTag == "fam-abc" {
				return b.StartTime == "7:00"
			}
		}
		return false
	})).Return(nil).Times(2)

	err := service.EditFamilyBlock("mom", "fam-abc",
		models.ScheduleBlock{Title: "Dinner", StartTime: "7:00", Period: "PM"})

	assert.NoError(t, err)
	userRepo.AssertExpectations(t)
}

func TestDeleteFamilyBlockSecondCallNotFound(t *testing.T) {
	service, userRepo, familyRepo := newScheduleServiceWithMocks()

	family := models.Family{FamilyID: "FAM1234567", Master: "mom"}
	mom := models.User{ID: 1, Username: "mom", Role: models.RoleParent, FamilyID: "FAM1234567",
		ProfileData: encodeBlocks()}
	kid := models.User{ID: 2, Username: "kid", Role: models.RoleChild, FamilyID: "FAM1234567",
		ProfileData: encodeBlocks(models.ScheduleBlock{Title: "Homework"})}

	userRepo.On("FindByUsername", "mom").Return(mom, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(family, nil)
	userRepo.On("FindByFamilyID", "FAM1234567").Return([]models.User{mom, kid}, nil)

	err := service.DeleteFamilyBlock("mom", "fam-gone")

	assert.ErrorIs(t, err, ErrNotFound)
	userRepo.AssertNotCalled(t, "Save", mock.Anything)
}

func TestDeleteBlockAtOutOfRange(t *testing.T) {
	service, userRepo, _ := newScheduleServiceWithMocks()

	parent := models.User{ID: 1, Username: "solo", Role: models.RoleParent,
		ProfileData: encodeBlocks(models.ScheduleBlock{Title: "Laundry"})}
	userRepo.On("FindByUsername", "solo").Return(parent, nil)

	_, err := service.DeleteBlockAt("solo", 3, "")

	assert.ErrorIs(t, err, ErrInvalidInput)
	userRepo.AssertNotCalled(t, "Save", mock.Anything)
}

func TestDeleteBlockReturnsRemoved(t *testing.T) {
	service, userRepo, _ := newScheduleServiceWithMocks()

	parent := models.User{ID: 1, Username: "solo", Role: models.RoleParent,
		ProfileData: encodeBlocks(
			models.ScheduleBlock{Title: "Laundry", StartTime: "10:00", Period: "AM"},
			models.ScheduleBlock{Title: "Groceries", StartTime: "2:00", Period: "PM"},
		)}
	userRepo.On("FindByUsername", "solo").Return(parent, nil)
	userRepo.On("Save", mock.MatchedBy(func(u models.User) bool {
		blocks := savedBlocks(u)
		return len(blocks) == 1 && blocks[0].Title == "Laundry"
	})).Return(nil)

	removed, err := service.DeleteBlock("solo", models.ScheduleBlock{Title: "Groceries"}, "")

	assert.NoError(t, err)
	assert.Equal(t, "Groceries", removed.Title)
	userRepo.AssertExpectations(t)
}

func TestProfileRedirectsNonMasterParentToMaster(t *testing.T) {
	service, userRepo, familyRepo := newScheduleServiceWithMocks()

	family := models.Family{FamilyID: "FAM1234567", Master: "mom"}
	mom := models.User{ID: 1, Username: "mom", Role: models.RoleParent, FamilyID: "FAM1234567",
		ProfileData: encodeBlocks(models.ScheduleBlock{Title: "Family calendar"})}
	dad := models.User{ID: 2, Username: "dad", Role: models.RoleParent, FamilyID: "FAM1234567",
		ProfileData: encodeBlocks(models.ScheduleBlock{Title: "Private note"})}

	userRepo.On("FindByUsername", "dad").Return(dad, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(family, nil)
	userRepo.On("FindByUsername", "mom").Return(mom, nil)

	profile, err := service.Profile("dad", "")

	assert.NoError(t, err)
	assert.Len(t, profile.Blocks, 1)
	assert.Equal(t, "Family calendar", profile.Blocks[0].Title)
}

func TestProfileTargetChildMustBeInFamily(t *testing.T) {
	service, userRepo, _ := newScheduleServiceWithMocks()

	mom := models.User{ID: 1, Username: "mom", Role: models.RoleParent, FamilyID: "FAM1234567"}
	stranger := models.User{ID: 9, Username: "stranger", Role: models.RoleChild, FamilyID: "OTHER999"}

	userRepo.On("FindByUsername", "mom").Return(mom, nil)
	userRepo.On("FindByUsername", "stranger").Return(stranger, nil)

	_, err := service.Profile("mom", "stranger")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetThemeValidatesValue(t *testing.T) {
	service, userRepo, _ := newScheduleServiceWithMocks()

	_, err := service.SetTheme("solo", "neon")
	assert.ErrorIs(t, err, ErrInvalidInput)

	user := models.User{ID: 1, Username: "solo", Role: models.RoleParent, ProfileData: models.DefaultProfile().Encode()}
	userRepo.On("FindByUsername", "solo").Return(user, nil)
	userRepo.On("Save", mock.MatchedBy(func(u models.User) bool {
		return models.ParseProfile(u.ProfileData).Preferences.Theme == "dark"
	})).Return(nil)

	prefs, err := service.SetTheme("solo", " Dark ")
	assert.NoError(t, err)
	assert.Equal(t, "dark", prefs.Theme)
	userRepo.AssertExpectations(t)
}
