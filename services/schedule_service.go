package services

import (
	"fmt"
	"strings"

	"github.com/toc8730/StepSync/models"
	"github.com/toc8730/StepSync/repositories"

	"github.com/google/uuid"
)

// ScheduleService owns the per-account block ledger: content-matched edits
// for personal blocks and family-tag fan-out for shared ones.
type ScheduleService struct {
	Repos repositories.Repos
	Tx    repositories.TxRunner
}

func NewScheduleService(repos repositories.Repos, tx repositories.TxRunner) *ScheduleService {
	return &ScheduleService{Repos: repos, Tx: tx}
}

// effectiveOwner resolves whose schedule an actor operates on. A parent
// naming a child of their own family acts on that child. Otherwise a parent
// linked to a family is redirected to the master's list: the household's
// schedule of record is the master's, even when a non-master parent edits
// "their own" schedule. Everyone else owns their own list.
func effectiveOwner(r repositories.Repos, user models.User, targetChild string) (models.User, error) {
	targetChild = strings.TrimSpace(targetChild)
	if targetChild != "" {
		if !user.IsParent() {
			return models.User{}, fmt.Errorf("%w: only parents can assign tasks to a child", ErrUnauthorized)
		}
		if user.FamilyID == "" {
			return models.User{}, fmt.Errorf("%w: parent is not linked to a family", ErrInvalidInput)
		}
		child, err := r.Users.FindByUsername(targetChild)
		if err != nil || !child.IsChild() || child.FamilyID != user.FamilyID {
			return models.User{}, fmt.Errorf("%w: child not found in your family", ErrNotFound)
		}
		return child, nil
	}

	if user.IsParent() && user.FamilyID != "" {
		family, err := r.Families.FindByFamilyID(user.FamilyID)
		if err == nil {
			if master, err := r.Users.FindByUsername(family.Master); err == nil {
				return master, nil
			}
		}
	}
	return user, nil
}

// Profile returns the schedule the actor effectively owns, or the named
// child's schedule when targetChild is set.
func (s *ScheduleService) Profile(username, targetChild string) (models.Profile, error) {
	user, err := s.Repos.Users.FindByUsername(username)
	if err != nil {
		return models.Profile{}, fmt.Errorf("%w: user not found", ErrNotFound)
	}
	owner, err := effectiveOwner(s.Repos, user, targetChild)
	if err != nil {
		return models.Profile{}, err
	}
	return models.ParseProfile(owner.ProfileData), nil
}

// FamilyProfile returns the master's schedule for the actor's family, or the
// actor's own schedule when they are not in one.
func (s *ScheduleService) FamilyProfile(username string) (models.Profile, error) {
	user, err := s.Repos.Users.FindByUsername(username)
	if err != nil {
		return models.Profile{}, fmt.Errorf("%w: user not found", ErrNotFound)
	}
	if user.FamilyID != "" {
		if family, err := s.Repos.Families.FindByFamilyID(user.FamilyID); err == nil {
			master, err := s.Repos.Users.FindByUsername(family.Master)
			if err != nil {
				return models.Profile{}, fmt.Errorf("%w: family head not found", ErrNotFound)
			}
			return models.ParseProfile(master.ProfileData), nil
		}
	}
	return models.ParseProfile(user.ProfileData), nil
}

// AddBlock appends a normalized block to the effective schedule.
func (s *ScheduleService) AddBlock(username string, block models.ScheduleBlock, targetChild string) error {
	return s.Tx.InTx(func(r repositories.Repos) error {
		user, err := r.Users.FindByUsername(username)
		if err != nil {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		if user.IsChild() {
			return fmt.Errorf("%w: children cannot add tasks", ErrUnauthorized)
		}
		owner, err := effectiveOwner(r, user, targetChild)
		if err != nil {
			return err
		}
		return appendBlock(r, owner, block.Normalize())
	})
}

// AddFamilyBlock fans the block out to the master and every child of the
// actor's family under one shared tag. A fresh tag is generated when none is
// supplied; collisions are statistically ignored and not globally checked.
func (s *ScheduleService) AddFamilyBlock(username string, block models.ScheduleBlock, tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		tag = "fam-" + uuid.NewString()
	}

	err := s.Tx.InTx(func(r repositories.Repos) error {
		user, family, err := linkedFamily(r, username)
		if err != nil {
			return err
		}
		if user.IsChild() {
			return fmt.Errorf("%w: children cannot add tasks", ErrUnauthorized)
		}
		children := familyChildren(r, family.FamilyID)
		if len(children) == 0 {
			return fmt.Errorf("%w: no children available in this family", ErrInvalidInput)
		}

		shared := block.Normalize()
		shared.FamilyTag = tag

		owner, err := effectiveOwner(r, user, "")
		if err != nil {
			return err
		}
		if err := appendBlock(r, owner, shared); err != nil {
			return err
		}
		for _, child := range children {
			if err := appendBlock(r, child, shared); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return tag, nil
}

// EditBlock locates oldBlock by content match and replaces it in place.
func (s *ScheduleService) EditBlock(username string, oldBlock, newBlock models.ScheduleBlock, targetChild string) error {
	return s.Tx.InTx(func(r repositories.Repos) error {
		user, err := r.Users.FindByUsername(username)
		if err != nil {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		owner, err := effectiveOwner(r, user, targetChild)
		if err != nil {
			return err
		}

		profile := models.ParseProfile(owner.ProfileData)
		idx := models.MatchIndex(profile.Blocks, oldBlock)
		if idx < 0 {
			return fmt.Errorf("%w: old block not found", ErrNotFound)
		}
		profile.Blocks[idx] = newBlock.Normalize()
		owner.ProfileData = profile.Encode()
		return r.Users.Save(owner)
	})
}

// EditFamilyBlock replaces every block carrying the tag across the master
// and all children of the actor's family.
func (s *ScheduleService) EditFamilyBlock(username, tag string, newBlock models.ScheduleBlock) error {
	tag = strings.TrimSpace(tag)
	return s.Tx.InTx(func(r repositories.Repos) error {
		user, family, err := linkedFamily(r, username)
		if err != nil {
			return err
		}
		if tag == "" {
			return fmt.Errorf("%w: family task identifier missing", ErrInvalidInput)
		}

		shared := newBlock.Normalize()
		shared.FamilyTag = tag

		owner, err := effectiveOwner(r, user, "")
		if err != nil {
			return err
		}
		changed, err := replaceTagged(r, owner, tag, shared)
		if err != nil {
			return err
		}
		for _, child := range familyChildren(r, family.FamilyID) {
			childChanged, err := replaceTagged(r, child, tag, shared)
			if err != nil {
				return err
			}
			changed = changed || childChanged
		}
		if !changed {
			return fmt.Errorf("%w: family task not found", ErrNotFound)
		}
		return nil
	})
}

// DeleteBlockAt removes the block at a position; returns it for confirmation.
func (s *ScheduleService) DeleteBlockAt(username string, index int, targetChild string) (models.ScheduleBlock, error) {
	var removed models.ScheduleBlock
	err := s.Tx.InTx(func(r repositories.Repos) error {
		owner, profile, err := s.deletableSchedule(r, username, targetChild)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(profile.Blocks) {
			return fmt.Errorf("%w: index out of range", ErrInvalidInput)
		}
		removed = profile.Blocks[index]
		profile.Blocks = append(profile.Blocks[:index], profile.Blocks[index+1:]...)
		owner.ProfileData = profile.Encode()
		return r.Users.Save(owner)
	})
	if err != nil {
		return models.ScheduleBlock{}, err
	}
	return removed, nil
}

// DeleteBlock removes a block located by content match.
func (s *ScheduleService) DeleteBlock(username string, block models.ScheduleBlock, targetChild string) (models.ScheduleBlock, error) {
	var removed models.ScheduleBlock
	err := s.Tx.InTx(func(r repositories.Repos) error {
		owner, profile, err := s.deletableSchedule(r, username, targetChild)
		if err != nil {
			return err
		}
		idx := models.MatchIndex(profile.Blocks, block)
		if idx < 0 {
			return fmt.Errorf("%w: block not found", ErrNotFound)
		}
		removed = profile.Blocks[idx]
		profile.Blocks = append(profile.Blocks[:idx], profile.Blocks[idx+1:]...)
		owner.ProfileData = profile.Encode()
		return r.Users.Save(owner)
	})
	if err != nil {
		return models.ScheduleBlock{}, err
	}
	return removed, nil
}

// DeleteFamilyBlock removes every block with the tag from the master and all
// children of the actor's family.
func (s *ScheduleService) DeleteFamilyBlock(username, tag string) error {
	tag = strings.TrimSpace(tag)
	return s.Tx.InTx(func(r repositories.Repos) error {
		user, family, err := linkedFamily(r, username)
		if err != nil {
			return err
		}
		if user.IsChild() {
			return fmt.Errorf("%w: children cannot delete tasks", ErrUnauthorized)
		}
		if tag == "" {
			return fmt.Errorf("%w: family task identifier missing", ErrInvalidInput)
		}

		owner, err := effectiveOwner(r, user, "")
		if err != nil {
			return err
		}
		changed, err := removeTagged(r, owner, tag)
		if err != nil {
			return err
		}
		for _, child := range familyChildren(r, family.FamilyID) {
			childChanged, err := removeTagged(r, child, tag)
			if err != nil {
				return err
			}
			changed = changed || childChanged
		}
		if !changed {
			return fmt.Errorf("%w: family task not found", ErrNotFound)
		}
		return nil
	})
}

// Preferences returns the actor's own preference set.
func (s *ScheduleService) Preferences(username string) (models.Preferences, error) {
	user, err := s.Repos.Users.FindByUsername(username)
	if err != nil {
		return models.Preferences{}, fmt.Errorf("%w: user not found", ErrNotFound)
	}
	return models.ParseProfile(user.ProfileData).Preferences, nil
}

// SetTheme updates the actor's theme preference.
func (s *ScheduleService) SetTheme(username, theme string) (models.Preferences, error) {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme != "light" && theme != "dark" && theme != "system" {
		return models.Preferences{}, fmt.Errorf("%w: theme must be 'light', 'dark', or 'system'", ErrInvalidInput)
	}

	var prefs models.Preferences
	err := s.Tx.InTx(func(r repositories.Repos) error {
		user, err := r.Users.FindByUsername(username)
		if err != nil {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		profile := models.ParseProfile(user.ProfileData)
		profile.Preferences.Theme = theme
		prefs = profile.Preferences
		user.ProfileData = profile.Encode()
		return r.Users.Save(user)
	})
	if err != nil {
		return models.Preferences{}, err
	}
	return prefs, nil
}

// deletableSchedule resolves the schedule for add/delete paths, which are
// closed to children.
func (s *ScheduleService) deletableSchedule(r repositories.Repos, username, targetChild string) (models.User, models.Profile, error) {
	user, err := r.Users.FindByUsername(username)
	if err != nil {
		return models.User{}, models.Profile{}, fmt.Errorf("%w: user not found", ErrNotFound)
	}
	if user.IsChild() {
		return models.User{}, models.Profile{}, fmt.Errorf("%w: children cannot delete tasks", ErrUnauthorized)
	}
	owner, err := effectiveOwner(r, user, targetChild)
	if err != nil {
		return models.User{}, models.Profile{}, err
	}
	return owner, models.ParseProfile(owner.ProfileData), nil
}

func appendBlock(r repositories.Repos, owner models.User, block models.ScheduleBlock) error {
	profile := models.ParseProfile(owner.ProfileData)
	profile.Blocks = append(profile.Blocks, block)
	owner.ProfileData = profile.Encode()
	return r.Users.Save(owner)
}

func replaceTagged(r repositories.Repos, owner models.User, tag string, block models.ScheduleBlock) (bool, error) {
	profile := models.ParseProfile(owner.ProfileData)
	if !profile.ReplaceByTag(tag, block) {
		return false, nil
	}
	owner.ProfileData = profile.Encode()
	return true, r.Users.Save(owner)
}

func removeTagged(r repositories.Repos, owner models.User, tag string) (bool, error) {
	profile := models.ParseProfile(owner.ProfileData)
	if !profile.RemoveByTag(tag) {
		return false, nil
	}
	owner.ProfileData = profile.Encode()
	return true, r.Users.Save(owner)
}

func familyChildren(r repositories.Repos, familyID string) []models.User {
	members, err := r.Users.FindByFamilyID(familyID)
	if err != nil {
		return nil
	}
	children := make([]models.User, 0, len(members))
	for _, member := range members {
		if member.IsChild() {
			children = append(children, member)
		}
	}
	return children
}
