package services

import (
	"errors"
	"testing"
	"time"

	"github.com/toc8730/StepSync/models"
	"github.com/toc8730/StepSync/repositories"
	"github.com/toc8730/StepSync/repositories/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newFamilyServiceWithMocks() (*FamilyService, *mocks.UserRepository, *mocks.FamilyRepository, *mocks.InviteRepository, *mocks.LeaveRequestRepository) {
	userRepo := new(mocks.UserRepository)
	familyRepo := new(mocks.FamilyRepository)
	inviteRepo := new(mocks.InviteRepository)
	leaveRepo := new(mocks.LeaveRequestRepository)

	repos := repositories.Repos{
		Users:         userRepo,
		Families:      familyRepo,
		Invites:       inviteRepo,
		LeaveRequests: leaveRepo,
	}
	service := NewFamilyService(repos, &mocks.PassthroughTx{Repos: repos})
	return service, userRepo, familyRepo, inviteRepo, leaveRepo
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestLeaveMasterTransfersToLongestTenuredParent(t *testing.T) {
	service, userRepo, familyRepo, _, _ := newFamilyServiceWithMocks()

	family := models.Family{FamilyID: "FAM1234567", Name: "Smiths", Master: "mom"}
	mom := models.User{ID: 1, Username: "mom", Role: models.RoleParent, FamilyID: "FAM1234567",
		FamilyJoinedAt: timePtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))}
	dad := models.User{ID: 2, Username: "dad", Role: models.RoleParent, FamilyID: "FAM1234567",
		FamilyJoinedAt: timePtr(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))}
	aunt := models.User{ID: 3, Username: "aunt", Role: models.RoleParent, FamilyID: "FAM1234567",
		FamilyJoinedAt: timePtr(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))}

	userRepo.On("FindByUsername", "mom").Return(mom, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(family, nil)
	userRepo.On("Save", mock.MatchedBy(func(u models.User) bool {
		return u.Username == "mom" && u.FamilyID == "" && u.FamilyJoinedAt == nil
	})).Return(nil)
	userRepo.On("FindByFamilyID", "FAM1234567").Return([]models.User{dad, aunt}, nil)
	familyRepo.On("Save", mock.MatchedBy(func(f models.Family) bool {
		return f.Master == "dad"
	})).Return(nil)

	message, err := service.Leave("mom")

	assert.NoError(t, err)
	assert.Equal(t, "Transferred master role to dad.", message)
	userRepo.AssertExpectations(t)
	familyRepo.AssertExpectations(t)
}

func TestLeaveSuccessionTieBreaksByAccountID(t *testing.T) {
	service, userRepo, familyRepo, _, _ := newFamilyServiceWithMocks()

	joined := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	family := models.Family{FamilyID: "FAM1234567", Name: "Smiths", Master: "mom"}
	mom := models.User{ID: 5, Username: "mom", Role: models.RoleParent, FamilyID: "FAM1234567",
		FamilyJoinedAt: timePtr(joined)}
	dad := models.User{ID: 9, Username: "dad", Role: models.RoleParent, FamilyID: "FAM1234567",
		FamilyJoinedAt: timePtr(joined)}
	uncle := models.User{ID: 4, Username: "uncle", Role: models.RoleParent, FamilyID: "FAM1234567",
		FamilyJoinedAt: timePtr(joined)}

	userRepo.On("FindByUsername", "mom").Return(mom, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(family, nil)
	userRepo.On("Save", mock.AnythingOfType("models.User")).Return(nil)
	userRepo.On("FindByFamilyID", "FAM1234567").Return([]models.User{dad, uncle}, nil)
	familyRepo.On("Save", mock.MatchedBy(func(f models.Family) bool {
		return f.Master == "uncle"
	})).Return(nil)

	message, err := service.Leave("mom")

	assert.NoError(t, err)
	assert.Equal(t, "Transferred master role to uncle.", message)
	familyRepo.AssertExpectations(t)
}

func TestLeaveLastParentDissolvesFamily(t *testing.T) {
	service, userRepo, familyRepo, _, leaveRepo := newFamilyServiceWithMocks()

	family := models.Family{FamilyID: "FAM1234567", Name: "Smiths", Master: "mom"}
	mom := models.User{ID: 1, Username: "mom", Role: models.RoleParent, FamilyID: "FAM1234567",
		FamilyJoinedAt: timePtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))}
	kid := models.User{ID: 2, Username: "kid", Role: models.RoleChild, FamilyID: "FAM1234567",
		FamilyJoinedAt: timePtr(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)),
		ProfileData:    models.Profile{Blocks: []models.ScheduleBlock{{Title: "Homework"}}}.Encode()}

	userRepo.On("FindByUsername", "mom").Return(mom, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(family, nil)
	userRepo.On("Save", mock.MatchedBy(func(u models.User) bool {
		return u.Username == "mom" && u.FamilyID == ""
	})).Return(nil)
	userRepo.On("FindByFamilyID", "FAM1234567").Return([]models.User{kid}, nil)
	userRepo.On("Save", mock.MatchedBy(func(u models.User) bool {
		if u.Username != "kid" || u.FamilyID != "" {
			return false
		}
		return len(models.ParseProfile(u.ProfileData).Blocks) == 0
	})).Return(nil)
	leaveRepo.On("DeleteForFamily", "FAM1234567").Return(nil)
	familyRepo.On("Delete", mock.AnythingOfType("models.Family")).Return(nil)

	message, err := service.Leave("mom")

	assert.NoError(t, err)
	assert.Equal(t, "Family deleted because no parents remained.", message)
	userRepo.AssertExpectations(t)
	familyRepo.AssertExpectations(t)
	leaveRepo.AssertExpectations(t)
}

func TestLeaveChildFilesRequestOnce(t *testing.T) {
	service, userRepo, familyRepo, _, leaveRepo := newFamilyServiceWithMocks()

	family := models.Family{FamilyID: "FAM1234567", Name: "Smiths", Master: "mom"}
	kid := models.User{ID: 2, Username: "kid", Role: models.RoleChild, FamilyID: "FAM1234567"}

	userRepo.On("FindByUsername", "kid").Return(kid, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(family, nil)
	leaveRepo.On("FindPending", "FAM1234567", "kid").Return(models.FamilyLeaveRequest{}, errors.New("record not found")).Once()
	leaveRepo.On("Save", mock.MatchedBy(func(req models.FamilyLeaveRequest) bool {
		return req.FamilyID == "FAM1234567" && req.ChildUsername == "kid" && req.Status == models.LeaveRequestStatusPending
	})).Return(nil).Once()

	message, err := service.Leave("kid")
	assert.NoError(t, err)
	assert.Equal(t, "Leave request sent to the master parent.", message)

	// a second leave while one is pending does not file another request
	leaveRepo.On("FindPending", "FAM1234567", "kid").Return(models.FamilyLeaveRequest{
		FamilyID: "FAM1234567", ChildUsername: "kid", Status: models.LeaveRequestStatusPending,
	}, nil).Once()

	message, err = service.Leave("kid")
	assert.NoError(t, err)
	assert.Equal(t, "A leave request is already pending approval.", message)
	leaveRepo.AssertExpectations(t)
}

func TestTransferMasterMovesScheduleWholesale(t *testing.T) {
	service, userRepo, familyRepo, _, _ := newFamilyServiceWithMocks()

	family := models.Family{FamilyID: "FAM1234567", Name: "Smiths", Master: "mom"}
	mom := models.User{ID: 1, Username: "mom", Role: models.RoleParent, FamilyID: "FAM1234567",
		ProfileData: models.Profile{Blocks: []models.ScheduleBlock{
			{Title: "Breakfast", StartTime: "7:00", Period: "AM"},
			{Title: "Soccer", StartTime: "4:00", Period: "PM"},
		}}.Encode()}
	dad := models.User{ID: 2, Username: "dad", Role: models.RoleParent, FamilyID: "FAM1234567",
		ProfileData: models.Profile{Blocks: []models.ScheduleBlock{{Title: "Old task"}}}.Encode()}

	userRepo.On("FindByUsername", "mom").Return(mom, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(family, nil)
	userRepo.On("FindByUsername", "dad").Return(dad, nil)
	userRepo.On("Save", mock.MatchedBy(func(u models.User) bool {
		return u.Username == "mom" && len(models.ParseProfile(u.ProfileData).Blocks) == 0
	})).Return(nil)
	userRepo.On("Save", mock.MatchedBy(func(u models.User) bool {
		if u.Username != "dad" {
			return false
		}
		blocks := models.ParseProfile(u.ProfileData).Blocks
		return len(blocks) == 2 && blocks[0].Title == "Breakfast" && blocks[1].Title == "Soccer"
	})).Return(nil)
	familyRepo.On("Save", mock.MatchedBy(func(f models.Family) bool {
		return f.Master == "dad"
	})).Return(nil)

	message, err := service.TransferMaster("mom", "dad")

	assert.NoError(t, err)
	assert.Equal(t, "Transferred master role to dad", message)
	userRepo.AssertExpectations(t)
	familyRepo.AssertExpectations(t)
}

func TestInviteAlreadyPendingIsIdempotent(t *testing.T) {
	service, userRepo, familyRepo, inviteRepo, _ := newFamilyServiceWithMocks()

	family := models.Family{FamilyID: "FAM1234567", Name: "Smiths", Master: "mom"}
	mom := models.User{ID: 1, Username: "mom", Role: models.RoleParent, FamilyID: "FAM1234567"}
	kid := models.User{ID: 2, Username: "kid", Role: models.RoleChild}

	userRepo.On("FindByUsername", "mom").Return(mom, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(family, nil)
	userRepo.On("FindByUsername", "kid").Return(kid, nil)
	inviteRepo.On("FindPending", "FAM1234567", "kid").Return(models.FamilyInvite{
		FamilyID: "FAM1234567", ChildUsername: "kid", Status: models.InviteStatusPending,
	}, nil)

	message, err := service.Invite("mom", "kid")

	assert.NoError(t, err)
	assert.Equal(t, "An invite is already pending for this child.", message)
	inviteRepo.AssertNotCalled(t, "Save", mock.Anything)
}

func TestRespondInviteFamilyGoneMarksRejected(t *testing.T) {
	service, userRepo, familyRepo, inviteRepo, _ := newFamilyServiceWithMocks()

	kid := models.User{ID: 2, Username: "kid", Role: models.RoleChild}
	invite := models.FamilyInvite{FamilyID: "FAM1234567", ChildUsername: "kid", Status: models.InviteStatusPending}

	userRepo.On("FindByUsername", "kid").Return(kid, nil)
	inviteRepo.On("FindPending", "FAM1234567", "kid").Return(invite, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(models.Family{}, errors.New("record not found"))
	inviteRepo.On("Save", mock.MatchedBy(func(i models.FamilyInvite) bool {
		return i.Status == models.InviteStatusRejected
	})).Return(nil)

	_, err := service.RespondInvite("kid", "FAM1234567", "accept")

	assert.ErrorIs(t, err, ErrNotFound)
	inviteRepo.AssertExpectations(t)
}

func TestRespondInviteWhileLinkedElsewhereConflicts(t *testing.T) {
	service, userRepo, familyRepo, inviteRepo, _ := newFamilyServiceWithMocks()

	kid := models.User{ID: 2, Username: "kid", Role: models.RoleChild, FamilyID: "OTHER123"}
	invite := models.FamilyInvite{FamilyID: "FAM1234567", ChildUsername: "kid", Status: models.InviteStatusPending}

	userRepo.On("FindByUsername", "kid").Return(kid, nil)
	inviteRepo.On("FindPending", "FAM1234567", "kid").Return(invite, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(models.Family{FamilyID: "FAM1234567"}, nil)

	_, err := service.RespondInvite("kid", "FAM1234567", "accept")

	assert.ErrorIs(t, err, ErrConflict)
	// the invite stays pending so the child can accept later
	inviteRepo.AssertNotCalled(t, "Save", mock.Anything)
}

func TestRespondInviteAcceptLinksChild(t *testing.T) {
	service, userRepo, familyRepo, inviteRepo, _ := newFamilyServiceWithMocks()

	kid := models.User{ID: 2, Username: "kid", Role: models.RoleChild}
	invite := models.FamilyInvite{FamilyID: "FAM1234567", ChildUsername: "kid", Status: models.InviteStatusPending}

	userRepo.On("FindByUsername", "kid").Return(kid, nil)
	inviteRepo.On("FindPending", "FAM1234567", "kid").Return(invite, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(models.Family{FamilyID: "FAM1234567"}, nil)
	inviteRepo.On("Save", mock.MatchedBy(func(i models.FamilyInvite) bool {
		return i.Status == models.InviteStatusAccepted
	})).Return(nil)
	userRepo.On("Save", mock.MatchedBy(func(u models.User) bool {
		return u.Username == "kid" && u.FamilyID == "FAM1234567" && u.FamilyJoinedAt != nil
	})).Return(nil)

	message, err := service.RespondInvite("kid", "FAM1234567", "accept")

	assert.NoError(t, err)
	assert.Equal(t, "Welcome to the family!", message)
	userRepo.AssertExpectations(t)
	inviteRepo.AssertExpectations(t)
}

func TestCreateFamilyRejectsDuplicateID(t *testing.T) {
	service, _, familyRepo, _, _ := newFamilyServiceWithMocks()

	familyRepo.On("FindByFamilyID", "FAM1234567").Return(models.Family{FamilyID: "FAM1234567"}, nil)

	_, err := service.Create("mom", "Smiths", "secret-pass", "FAM1234567")

	assert.ErrorIs(t, err, ErrConflict)
	familyRepo.AssertNotCalled(t, "Save", mock.Anything)
}

func TestHandleLeaveRequestApproveClearsChild(t *testing.T) {
	service, userRepo, familyRepo, _, leaveRepo := newFamilyServiceWithMocks()

	family := models.Family{FamilyID: "FAM1234567", Name: "Smiths", Master: "mom"}
	mom := models.User{ID: 1, Username: "mom", Role: models.RoleParent, FamilyID: "FAM1234567"}
	kid := models.User{ID: 2, Username: "kid", Role: models.RoleChild, FamilyID: "FAM1234567",
		ProfileData: models.Profile{Blocks: []models.ScheduleBlock{{Title: "Chores"}}}.Encode()}
	request := models.FamilyLeaveRequest{FamilyID: "FAM1234567", ChildUsername: "kid", Status: models.LeaveRequestStatusPending}

	userRepo.On("FindByUsername", "mom").Return(mom, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(family, nil)
	leaveRepo.On("FindPending", "FAM1234567", "kid").Return(request, nil)
	userRepo.On("FindByUsername", "kid").Return(kid, nil)
	userRepo.On("Save", mock.MatchedBy(func(u models.User) bool {
		if u.Username != "kid" || u.FamilyID != "" {
			return false
		}
		return len(models.ParseProfile(u.ProfileData).Blocks) == 0
	})).Return(nil)
	leaveRepo.On("Delete", request).Return(nil)

	message, err := service.HandleLeaveRequest("mom", "kid", "approve")

	assert.NoError(t, err)
	assert.Equal(t, "kid has left the family.", message)
	userRepo.AssertExpectations(t)
	leaveRepo.AssertExpectations(t)
}

func TestHandleLeaveRequestRejectDeletesRow(t *testing.T) {
	service, userRepo, familyRepo, _, leaveRepo := newFamilyServiceWithMocks()

	family := models.Family{FamilyID: "FAM1234567", Name: "Smiths", Master: "mom"}
	mom := models.User{ID: 1, Username: "mom", Role: models.RoleParent, FamilyID: "FAM1234567"}
	request := models.FamilyLeaveRequest{FamilyID: "FAM1234567", ChildUsername: "kid", Status: models.LeaveRequestStatusPending}

	userRepo.On("FindByUsername", "mom").Return(mom, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(family, nil)
	leaveRepo.On("FindPending", "FAM1234567", "kid").Return(request, nil)
	leaveRepo.On("Delete", request).Return(nil)

	message, err := service.HandleLeaveRequest("mom", "kid", "reject")

	assert.NoError(t, err)
	assert.Equal(t, "Leave request rejected.", message)
	userRepo.AssertNotCalled(t, "Save", mock.Anything)
	leaveRepo.AssertExpectations(t)
}

func TestUpdateFamilyRequiresMaster(t *testing.T) {
	service, userRepo, familyRepo, _, _ := newFamilyServiceWithMocks()

	family := models.Family{FamilyID: "FAM1234567", Name: "Smiths", Master: "mom"}
	dad := models.User{ID: 2, Username: "dad", Role: models.RoleParent, FamilyID: "FAM1234567"}

	userRepo.On("FindByUsername", "dad").Return(dad, nil)
	familyRepo.On("FindByFamilyID", "FAM1234567").Return(family, nil)

	_, _, err := service.Update("dad", "secret-pass", "New Name", "")

	assert.ErrorIs(t, err, ErrUnauthorized)
	familyRepo.AssertNotCalled(t, "Save", mock.Anything)
}
