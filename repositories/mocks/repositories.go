package mocks

import (
	"github.com/toc8730/StepSync/models"
	"github.com/toc8730/StepSync/repositories"

	"github.com/stretchr/testify/mock"
)

type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) FindByUsername(username string) (models.User, error) {
	args := m.Called(username)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *UserRepository) FindByEmail(email string) (models.User, error) {
	args := m.Called(email)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *UserRepository) FindByFamilyID(familyID string) ([]models.User, error) {
	args := m.Called(familyID)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

func (m *UserRepository) ExistsUsername(username string, excludeID uint) (bool, error) {
	args := m.Called(username, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepository) Save(user models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

type FamilyRepository struct {
	mock.Mock
}

func (m *FamilyRepository) FindByFamilyID(familyID string) (models.Family, error) {
	args := m.Called(familyID)
	return args.Get(0).(models.Family), args.Error(1)
}

func (m *FamilyRepository) FindByMaster(username string) ([]models.Family, error) {
	args := m.Called(username)
	families, _ := args.Get(0).([]models.Family)
	return families, args.Error(1)
}

func (m *FamilyRepository) Save(family models.Family) error {
	args := m.Called(family)
	return args.Error(0)
}

func (m *FamilyRepository) Delete(family models.Family) error {
	args := m.Called(family)
	return args.Error(0)
}

type InviteRepository struct {
	mock.Mock
}

func (m *InviteRepository) FindPending(familyID, childUsername string) (models.FamilyInvite, error) {
	args := m.Called(familyID, childUsername)
	return args.Get(0).(models.FamilyInvite), args.Error(1)
}

func (m *InviteRepository) ListPendingForChild(childUsername string) ([]models.FamilyInvite, error) {
	args := m.Called(childUsername)
	invites, _ := args.Get(0).([]models.FamilyInvite)
	return invites, args.Error(1)
}

func (m *InviteRepository) Save(invite models.FamilyInvite) error {
	args := m.Called(invite)
	return args.Error(0)
}

type LeaveRequestRepository struct {
	mock.Mock
}

func (m *LeaveRequestRepository) FindPending(familyID, childUsername string) (models.FamilyLeaveRequest, error) {
	args := m.Called(familyID, childUsername)
	return args.Get(0).(models.FamilyLeaveRequest), args.Error(1)
}

func (m *LeaveRequestRepository) ListPending(familyID string) ([]models.FamilyLeaveRequest, error) {
	args := m.Called(familyID)
	requests, _ := args.Get(0).([]models.FamilyLeaveRequest)
	return requests, args.Error(1)
}

func (m *LeaveRequestRepository) CountPending(familyID string) (int64, error) {
	args := m.Called(familyID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *LeaveRequestRepository) Save(request models.FamilyLeaveRequest) error {
	args := m.Called(request)
	return args.Error(0)
}

func (m *LeaveRequestRepository) Delete(request models.FamilyLeaveRequest) error {
	args := m.Called(request)
	return args.Error(0)
}

func (m *LeaveRequestRepository) DeleteForFamily(familyID string) error {
	args := m.Called(familyID)
	return args.Error(0)
}

func (m *LeaveRequestRepository) DeleteForChild(familyID, childUsername string) error {
	args := m.Called(familyID, childUsername)
	return args.Error(0)
}

// PassthroughTx satisfies repositories.TxRunner for tests: the closure runs
// against the supplied mock repositories with no real transaction.
type PassthroughTx struct {
	Repos repositories.Repos
}

func (t *PassthroughTx) InTx(fn func(r repositories.Repos) error) error {
	return fn(t.Repos)
}
