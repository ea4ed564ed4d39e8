package services

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/toc8730/StepSync/models"
	"github.com/toc8730/StepSync/repositories"

	"golang.org/x/crypto/bcrypt"
)

const familyIDLength = 10

// successionEpochSentinel orders parents with no join timestamp after every
// parent that has one. A fixed far-future instant keeps the succession order
// stable across calls instead of drifting with the wall clock.
var successionEpochSentinel = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

type FamilyService struct {
	Repos repositories.Repos
	Tx    repositories.TxRunner
	Mail  *EmailService
}

func NewFamilyService(repos repositories.Repos, tx repositories.TxRunner) *FamilyService {
	return &FamilyService{Repos: repos, Tx: tx}
}

type FamilyMemberSummary struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	IsMaster    bool   `json:"is_master,omitempty"`
}

type FamilyMembers struct {
	FamilyID             string                `json:"family_id"`
	IsMaster             bool                  `json:"is_master"`
	PendingLeaveRequests int64                 `json:"pending_leave_requests"`
	Parents              []FamilyMemberSummary `json:"parents"`
	Children             []FamilyMemberSummary `json:"children"`
}

type InviteSummary struct {
	FamilyID   string    `json:"family_id"`
	FamilyName string    `json:"family_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type LeaveRequestSummary struct {
	ChildUsername string    `json:"child_username"`
	DisplayName   string    `json:"display_name"`
	RequestedAt   time.Time `json:"requested_at"`
}

// Create opens a new family with the caller as master and links the caller
// to it. A caller already linked elsewhere is not blocked; the new link
// simply replaces the old one on their account record.
func (s *FamilyService) Create(username, name, secret, familyID string) (string, error) {
	name = strings.TrimSpace(name)
	familyID = strings.TrimSpace(familyID)
	if name == "" {
		return "", fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if len(secret) < 8 || len(secret) > 20 {
		return "", fmt.Errorf("%w: family password must be 8-20 characters", ErrInvalidInput)
	}
	if familyID == "" {
		familyID = randomFamilyID(familyIDLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	err = s.Tx.InTx(func(r repositories.Repos) error {
		if _, err := r.Families.FindByFamilyID(familyID); err == nil {
			return fmt.Errorf("%w: family ID already exists", ErrConflict)
		}

		family := models.Family{
			FamilyID: familyID,
			Name:     name,
			Secret:   string(hashed),
			Master:   username,
		}
		if err := r.Families.Save(family); err != nil {
			return err
		}

		user, err := r.Users.FindByUsername(username)
		if err != nil {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		user.AttachFamily(familyID)
		return r.Users.Save(user)
	})
	if err != nil {
		return "", err
	}
	return familyID, nil
}

// Join links any account to an existing family given its id and secret.
func (s *FamilyService) Join(username, familyID, secret string) error {
	familyID = strings.TrimSpace(familyID)
	return s.Tx.InTx(func(r repositories.Repos) error {
		family, err := r.Families.FindByFamilyID(familyID)
		if err != nil {
			return fmt.Errorf("%w: invalid family ID or password", ErrUnauthorized)
		}
		if bcrypt.CompareHashAndPassword([]byte(family.Secret), []byte(secret)) != nil {
			return fmt.Errorf("%w: invalid family ID or password", ErrUnauthorized)
		}

		user, err := r.Users.FindByUsername(username)
		if err != nil {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		if user.FamilyID != "" {
			return fmt.Errorf("%w: leave your current family before joining another one", ErrConflict)
		}

		user.AttachFamily(familyID)
		return r.Users.Save(user)
	})
}

// Update changes the family name and/or secret. Master only; the current
// secret must be supplied.
func (s *FamilyService) Update(username, currentSecret, newName, newSecret string) (models.Family, []string, error) {
	newName = strings.TrimSpace(newName)
	newSecret = strings.TrimSpace(newSecret)
	currentSecret = strings.TrimSpace(currentSecret)

	var updated models.Family
	var changed []string
	err := s.Tx.InTx(func(r repositories.Repos) error {
		user, family, err := linkedFamily(r, username)
		if err != nil {
			return err
		}
		if !user.IsParent() || family.Master != user.Username {
			return fmt.Errorf("%w: only the master parent can update the family", ErrUnauthorized)
		}
		if currentSecret == "" {
			return fmt.Errorf("%w: current family password is required", ErrInvalidInput)
		}
		if bcrypt.CompareHashAndPassword([]byte(family.Secret), []byte(currentSecret)) != nil {
			return fmt.Errorf("%w: incorrect family password", ErrUnauthorized)
		}

		if newName != "" && newName != family.Name {
			if len(newName) > 16 {
				return fmt.Errorf("%w: family name must be at most 16 characters", ErrInvalidInput)
			}
			family.Name = newName
			changed = append(changed, "name")
		}
		if newSecret != "" {
			if len(newSecret) < 8 || len(newSecret) > 20 {
				return fmt.Errorf("%w: family password must be 8-20 characters", ErrInvalidInput)
			}
			hashed, err := bcrypt.GenerateFromPassword([]byte(newSecret), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			family.Secret = string(hashed)
			changed = append(changed, "password")
		}
		if len(changed) == 0 {
			return fmt.Errorf("%w: provide a new name and/or password to update", ErrInvalidInput)
		}

		updated = family
		return r.Families.Save(family)
	})
	if err != nil {
		return models.Family{}, nil, err
	}
	return updated, changed, nil
}

// Invite asks a child account to join the caller's family. Sending while an
// invite is already pending succeeds without creating a duplicate.
func (s *FamilyService) Invite(username, childUsername string) (string, error) {
	childUsername = strings.TrimSpace(childUsername)

	var message string
	var child models.User
	var familyName string
	err := s.Tx.InTx(func(r repositories.Repos) error {
		user, err := r.Users.FindByUsername(username)
		if err != nil {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		if !user.IsParent() {
			return fmt.Errorf("%w: only parents can send invites", ErrUnauthorized)
		}
		if user.FamilyID == "" {
			return fmt.Errorf("%w: join a family before inviting children", ErrInvalidInput)
		}
		family, err := r.Families.FindByFamilyID(user.FamilyID)
		if err != nil {
			return fmt.Errorf("%w: family not found", ErrNotFound)
		}
		familyName = family.Name

		if childUsername == "" {
			return fmt.Errorf("%w: child username required", ErrInvalidInput)
		}
		if childUsername == user.Username {
			return fmt.Errorf("%w: you cannot invite yourself", ErrInvalidInput)
		}
		child, err = r.Users.FindByUsername(childUsername)
		if err != nil || !child.IsChild() {
			return fmt.Errorf("%w: child account not found", ErrNotFound)
		}

		if _, err := r.Invites.FindPending(family.FamilyID, childUsername); err == nil {
			message = "An invite is already pending for this child."
			return nil
		}

		message = "Invitation sent."
		return r.Invites.Save(models.FamilyInvite{
			FamilyID:      family.FamilyID,
			ChildUsername: childUsername,
			Status:        models.InviteStatusPending,
			CreatedAt:     time.Now().UTC(),
		})
	})
	if err != nil {
		return "", err
	}

	if s.Mail != nil && message == "Invitation sent." && child.Email != "" {
		if mailErr := s.Mail.SendInviteNotification(child.Email, familyName); mailErr != nil {
			log.Printf("invite mail to %s failed: %v", child.Email, mailErr)
		}
	}
	return message, nil
}

// MyInvites lists a child's pending invites with the family names resolved.
func (s *FamilyService) MyInvites(username string) ([]InviteSummary, error) {
	user, err := s.Repos.Users.FindByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}
	if !user.IsChild() {
		return nil, fmt.Errorf("%w: only child accounts receive invites", ErrUnauthorized)
	}

	invites, err := s.Repos.Invites.ListPendingForChild(user.Username)
	if err != nil {
		return nil, err
	}
	results := make([]InviteSummary, 0, len(invites))
	for _, invite := range invites {
		family, err := s.Repos.Families.FindByFamilyID(invite.FamilyID)
		if err != nil {
			continue // family dissolved after the invite was sent
		}
		results = append(results, InviteSummary{
			FamilyID:   invite.FamilyID,
			FamilyName: family.Name,
			CreatedAt:  invite.CreatedAt,
		})
	}
	return results, nil
}

// RespondInvite accepts or rejects a pending invite. Accepting while linked
// to a different family conflicts and leaves the invite pending.
func (s *FamilyService) RespondInvite(username, familyID, action string) (string, error) {
	familyID = strings.TrimSpace(familyID)
	action = strings.ToLower(strings.TrimSpace(action))

	var message string
	err := s.Tx.InTx(func(r repositories.Repos) error {
		user, err := r.Users.FindByUsername(username)
		if err != nil {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		if !user.IsChild() {
			return fmt.Errorf("%w: only child accounts can respond to invites", ErrUnauthorized)
		}
		if familyID == "" || (action != "accept" && action != "approve" && action != "reject" && action != "deny") {
			return fmt.Errorf("%w: provide family_id and action ('accept' or 'reject')", ErrInvalidInput)
		}

		invite, err := r.Invites.FindPending(familyID, user.Username)
		if err != nil {
			return fmt.Errorf("%w: invite not found", ErrNotFound)
		}

		if _, err := r.Families.FindByFamilyID(familyID); err != nil {
			invite.Status = models.InviteStatusRejected
			if saveErr := r.Invites.Save(invite); saveErr != nil {
				return saveErr
			}
			return fmt.Errorf("%w: family no longer exists", ErrNotFound)
		}

		if action == "reject" || action == "deny" {
			invite.Status = models.InviteStatusRejected
			message = "Invite declined."
			return r.Invites.Save(invite)
		}

		if user.FamilyID != "" && user.FamilyID != familyID {
			// stays pending until the child leaves their current family
			return fmt.Errorf("%w: leave your current family before accepting this invite", ErrConflict)
		}

		invite.Status = models.InviteStatusAccepted
		if err := r.Invites.Save(invite); err != nil {
			return err
		}
		if user.FamilyID == "" {
			user.AttachFamily(familyID)
			if err := r.Users.Save(user); err != nil {
				return err
			}
		}
		message = "Welcome to the family!"
		return nil
	})
	if err != nil {
		return "", err
	}
	return message, nil
}

// Members returns the family roster for the caller's family.
func (s *FamilyService) Members(username string) (FamilyMembers, error) {
	user, family, err := linkedFamily(s.Repos, username)
	if err != nil {
		return FamilyMembers{}, err
	}

	members, err := s.Repos.Users.FindByFamilyID(family.FamilyID)
	if err != nil {
		return FamilyMembers{}, err
	}

	result := FamilyMembers{
		FamilyID: family.FamilyID,
		IsMaster: user.IsParent() && user.Username == family.Master,
		Parents:  []FamilyMemberSummary{},
		Children: []FamilyMemberSummary{},
	}
	for _, member := range members {
		summary := FamilyMemberSummary{
			Username:    member.Username,
			DisplayName: member.DisplayLabel(),
		}
		if member.IsParent() {
			summary.IsMaster = member.Username == family.Master
			result.Parents = append(result.Parents, summary)
		} else {
			result.Children = append(result.Children, summary)
		}
	}

	if result.IsMaster {
		count, err := s.Repos.LeaveRequests.CountPending(family.FamilyID)
		if err != nil {
			return FamilyMembers{}, err
		}
		result.PendingLeaveRequests = count
	}
	return result, nil
}

// RemoveMember detaches a member from the family. Master only; the master
// cannot remove themselves. Children lose their schedule blocks on the way
// out, same as an approved leave.
func (s *FamilyService) RemoveMember(username, targetUsername string) error {
	targetUsername = strings.TrimSpace(targetUsername)
	return s.Tx.InTx(func(r repositories.Repos) error {
		user, family, err := linkedFamily(r, username)
		if err != nil {
			return err
		}
		if !user.IsParent() || user.Username != family.Master {
			return fmt.Errorf("%w: only the master parent can remove members", ErrUnauthorized)
		}
		if targetUsername == "" {
			return fmt.Errorf("%w: username is required", ErrInvalidInput)
		}
		if targetUsername == user.Username {
			return fmt.Errorf("%w: master parent cannot remove themselves", ErrInvalidInput)
		}

		target, err := r.Users.FindByUsername(targetUsername)
		if err != nil || target.FamilyID != family.FamilyID {
			return fmt.Errorf("%w: user is not part of this family", ErrNotFound)
		}

		if target.IsChild() {
			clearScheduleBlocks(&target)
		}
		target.DetachFamily()
		if err := r.Users.Save(target); err != nil {
			return err
		}
		return r.LeaveRequests.DeleteForChild(family.FamilyID, target.Username)
	})
}

// Leave detaches the caller from their family. Children only file a leave
// request and stay members until the master approves. A leaving master
// triggers succession; with no parent left the family dissolves.
func (s *FamilyService) Leave(username string) (string, error) {
	var message string
	err := s.Tx.InTx(func(r repositories.Repos) error {
		user, family, err := linkedFamily(r, username)
		if err != nil {
			return err
		}

		if user.IsChild() {
			if _, err := r.LeaveRequests.FindPending(family.FamilyID, user.Username); err == nil {
				message = "A leave request is already pending approval."
				return nil
			}
			message = "Leave request sent to the master parent."
			return r.LeaveRequests.Save(models.FamilyLeaveRequest{
				FamilyID:      family.FamilyID,
				ChildUsername: user.Username,
				Status:        models.LeaveRequestStatusPending,
				CreatedAt:     time.Now().UTC(),
			})
		}

		wasMaster := family.Master == user.Username
		user.DetachFamily()
		if err := r.Users.Save(user); err != nil {
			return err
		}
		message = "Left family."
		if !wasMaster {
			return nil
		}

		replacement, err := pickSuccessor(r, family, user.Username)
		if err != nil {
			return err
		}
		if replacement != nil {
			family.Master = replacement.Username
			message = fmt.Sprintf("Transferred master role to %s.", replacement.Username)
			return r.Families.Save(family)
		}

		message = "Family deleted because no parents remained."
		return dissolveFamily(r, family)
	})
	if err != nil {
		return "", err
	}
	return message, nil
}

// PendingLeaveRequests lists the waiting requests for the master.
func (s *FamilyService) PendingLeaveRequests(username string) ([]LeaveRequestSummary, error) {
	user, family, err := linkedFamily(s.Repos, username)
	if err != nil {
		return nil, err
	}
	if !user.IsParent() || user.Username != family.Master {
		return nil, fmt.Errorf("%w: only the master parent can view leave requests", ErrUnauthorized)
	}

	pending, err := s.Repos.LeaveRequests.ListPending(family.FamilyID)
	if err != nil {
		return nil, err
	}
	results := make([]LeaveRequestSummary, 0, len(pending))
	for _, item := range pending {
		summary := LeaveRequestSummary{
			ChildUsername: item.ChildUsername,
			RequestedAt:   item.CreatedAt,
		}
		if child, err := s.Repos.Users.FindByUsername(item.ChildUsername); err == nil {
			summary.DisplayName = child.DisplayLabel()
		}
		results = append(results, summary)
	}
	return results, nil
}

// HandleLeaveRequest approves or rejects a child's pending leave request.
// The request row is deleted on both branches. Approval clears the child's
// schedule blocks and unlinks them.
func (s *FamilyService) HandleLeaveRequest(username, childUsername, action string) (string, error) {
	childUsername = strings.TrimSpace(childUsername)
	action = strings.ToLower(strings.TrimSpace(action))

	var message string
	err := s.Tx.InTx(func(r repositories.Repos) error {
		user, family, err := linkedFamily(r, username)
		if err != nil {
			return err
		}
		if !user.IsParent() || user.Username != family.Master {
			return fmt.Errorf("%w: only the master parent can manage leave requests", ErrUnauthorized)
		}
		if childUsername == "" || (action != "approve" && action != "accept" && action != "deny" && action != "reject") {
			return fmt.Errorf("%w: provide child_username and action ('approve' or 'reject')", ErrInvalidInput)
		}

		request, err := r.LeaveRequests.FindPending(family.FamilyID, childUsername)
		if err != nil {
			return fmt.Errorf("%w: no pending request found for that child", ErrNotFound)
		}

		approved := action == "approve" || action == "accept"
		if approved {
			child, err := r.Users.FindByUsername(childUsername)
			if err == nil && child.FamilyID == family.FamilyID {
				clearScheduleBlocks(&child)
				child.DetachFamily()
				if err := r.Users.Save(child); err != nil {
					return err
				}
			}
			message = fmt.Sprintf("%s has left the family.", childUsername)
		} else {
			message = "Leave request rejected."
		}
		return r.LeaveRequests.Delete(request)
	})
	if err != nil {
		return "", err
	}
	return message, nil
}

// TransferMaster hands the master role to another parent of the same family.
// The entire schedule block list moves wholesale from the old master to the
// new one: the old master's list becomes empty and whatever the new master
// had before is discarded. Documented behavior, not a merge.
func (s *FamilyService) TransferMaster(username, targetUsername string) (string, error) {
	targetUsername = strings.TrimSpace(targetUsername)

	err := s.Tx.InTx(func(r repositories.Repos) error {
		user, family, err := linkedFamily(r, username)
		if err != nil {
			return err
		}
		if !user.IsParent() || user.Username != family.Master {
			return fmt.Errorf("%w: only the master parent can transfer ownership", ErrUnauthorized)
		}
		if targetUsername == "" {
			return fmt.Errorf("%w: username is required", ErrInvalidInput)
		}
		if targetUsername == user.Username {
			return fmt.Errorf("%w: target must be a different parent", ErrInvalidInput)
		}

		target, err := r.Users.FindByUsername(targetUsername)
		if err != nil || target.FamilyID != family.FamilyID {
			return fmt.Errorf("%w: user is not part of this family", ErrNotFound)
		}
		if !target.IsParent() {
			return fmt.Errorf("%w: only parents can become master", ErrInvalidInput)
		}

		masterProfile := models.ParseProfile(user.ProfileData)
		targetProfile := models.ParseProfile(target.ProfileData)

		targetProfile.Blocks = masterProfile.Blocks
		masterProfile.Blocks = []models.ScheduleBlock{}

		user.ProfileData = masterProfile.Encode()
		target.ProfileData = targetProfile.Encode()
		family.Master = target.Username

		if err := r.Users.Save(user); err != nil {
			return err
		}
		if err := r.Users.Save(target); err != nil {
			return err
		}
		return r.Families.Save(family)
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Transferred master role to %s", targetUsername), nil
}

// linkedFamily loads the caller and the family they are linked to.
func linkedFamily(r repositories.Repos, username string) (models.User, models.Family, error) {
	user, err := r.Users.FindByUsername(username)
	if err != nil {
		return models.User{}, models.Family{}, fmt.Errorf("%w: user not found", ErrNotFound)
	}
	if user.FamilyID == "" {
		return models.User{}, models.Family{}, fmt.Errorf("%w: user is not part of a family", ErrInvalidInput)
	}
	family, err := r.Families.FindByFamilyID(user.FamilyID)
	if err != nil {
		return models.User{}, models.Family{}, fmt.Errorf("%w: user is not part of a family", ErrInvalidInput)
	}
	return user, family, nil
}

// pickSuccessor returns the remaining parent with the longest tenure, ties
// broken by lowest account id. Nil when no parent remains.
func pickSuccessor(r repositories.Repos, family models.Family, exclude string) (*models.User, error) {
	members, err := r.Users.FindByFamilyID(family.FamilyID)
	if err != nil {
		return nil, err
	}

	var best *models.User
	for i := range members {
		member := members[i]
		if !member.IsParent() || member.Username == exclude {
			continue
		}
		if best == nil || joinedBefore(member, *best) {
			best = &members[i]
		}
	}
	return best, nil
}

func joinedBefore(a, b models.User) bool {
	at, bt := successionEpochSentinel, successionEpochSentinel
	if a.FamilyJoinedAt != nil {
		at = *a.FamilyJoinedAt
	}
	if b.FamilyJoinedAt != nil {
		bt = *b.FamilyJoinedAt
	}
	if at.Equal(bt) {
		return a.ID < b.ID
	}
	return at.Before(bt)
}

// dissolveFamily unlinks every remaining member, clears child schedules,
// drops pending leave requests and deletes the family record.
func dissolveFamily(r repositories.Repos, family models.Family) error {
	members, err := r.Users.FindByFamilyID(family.FamilyID)
	if err != nil {
		return err
	}
	for _, member := range members {
		if member.IsChild() {
			clearScheduleBlocks(&member)
		}
		member.DetachFamily()
		if err := r.Users.Save(member); err != nil {
			return err
		}
	}
	if err := r.LeaveRequests.DeleteForFamily(family.FamilyID); err != nil {
		return err
	}
	return r.Families.Delete(family)
}

func clearScheduleBlocks(user *models.User) {
	profile := models.ParseProfile(user.ProfileData)
	if len(profile.Blocks) == 0 {
		return
	}
	profile.Blocks = []models.ScheduleBlock{}
	user.ProfileData = profile.Encode()
}

const familyIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomFamilyID(n int) string {
	id := make([]byte, n)
	max := big.NewInt(int64(len(familyIDAlphabet)))
	for i := range id {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing is unrecoverable for id generation
			panic(err)
		}
		id[i] = familyIDAlphabet[idx.Int64()]
	}
	return string(id)
}
