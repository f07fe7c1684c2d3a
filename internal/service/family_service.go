package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"heartloom/internal/errs"
	"heartloom/internal/models"
	"heartloom/internal/store"
	"heartloom/internal/utils"
)

// Invite codes avoid visually confusable characters (no 0/O, no 1/I).
const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const inviteCodeLength = 6

// FamilyService enforces family membership business rules on top of the
// store: who owns a family, who may remove whom, and how members join.
type FamilyService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewFamilyService creates a new family service
func NewFamilyService(st *store.Store, logger *zap.Logger) *FamilyService {
	return &FamilyService{store: st, logger: logger}
}

// CreateFamily creates a new family with ownerID as owner and sole member.
func (s *FamilyService) CreateFamily(name, ownerID string) (*models.Family, error) {
	if name == "" {
		return nil, fmt.Errorf("family name is required: %w", errs.ErrInvalid)
	}

	var family models.Family
	err := s.store.Update(func(d *store.Dataset) error {
		// Generating the code inside the mutation keeps the collision
		// check and the insertion in one critical section.
		code, err := s.generateInviteCode(func(code string) bool {
			return d.FindFamilyByInvite(code) != nil
		})
		if err != nil {
			return fmt.Errorf("failed to generate invite code: %w", err)
		}

		family = models.Family{
			ID:         utils.GenerateID(),
			Name:       name,
			OwnerID:    ownerID,
			InviteCode: code,
			MemberIDs:  []string{ownerID},
			CreatedAt:  time.Now().UTC(),
		}
		d.UpsertFamily(family)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	s.logger.Info("family created",
		zap.String("familyId", family.ID),
		zap.String("ownerId", ownerID))
	return &family, nil
}

// generateInviteCode produces a short human-typeable code, retrying
// while taken reports a collision with an existing family's code.
func (s *FamilyService) generateInviteCode(taken func(code string) bool) (string, error) {
	maxRetries := 10
	var code string
	for i := 0; i < maxRetries; i++ {
		var err error
		code, err = randomInviteCode()
		if err != nil {
			return "", err
		}
		if !taken(code) {
			return code, nil
		}
	}
	// Astronomically unlikely with a 32^6 space; keep the last candidate.
	s.logger.Warn("invite code collisions exhausted retries", zap.String("code", code))
	return code, nil
}

func randomInviteCode() (string, error) {
	code := make([]byte, inviteCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(inviteCodeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// JoinFamily adds userID to the family matching inviteCode. Codes match
// case-insensitively. Joining a family the user already belongs to is a
// no-op that returns the unchanged family.
func (s *FamilyService) JoinFamily(inviteCode, userID string) (*models.Family, error) {
	var joined models.Family
	err := s.store.Update(func(d *store.Dataset) error {
		family := d.FindFamilyByInvite(inviteCode)
		if family == nil {
			return fmt.Errorf("no family for invite code: %w", errs.ErrNotFound)
		}
		if !family.HasMember(userID) {
			family.MemberIDs = append(family.MemberIDs, userID)
			joined = detachFamily(*family)
			return nil
		}
		joined = detachFamily(*family)
		return store.ErrNoChange
	})
	if err != nil {
		return nil, fmt.Errorf("failed to join family: %w", err)
	}
	return &joined, nil
}

// detachFamily severs the member list from the dataset's backing array so
// the returned record stays stable across later mutations.
func detachFamily(f models.Family) models.Family {
	f.MemberIDs = append([]string(nil), f.MemberIDs...)
	return f
}

// Families returns all families userID belongs to, in store order.
func (s *FamilyService) Families(userID string) []models.Family {
	return s.store.FamiliesForUser(userID)
}

// Family retrieves a family by id.
func (s *FamilyService) Family(familyID string) (*models.Family, error) {
	family := s.store.FamilyByID(familyID)
	if family == nil {
		return nil, fmt.Errorf("family %s: %w", familyID, errs.ErrNotFound)
	}
	return family, nil
}

// UpdateFamily saves the whole family record.
func (s *FamilyService) UpdateFamily(family models.Family) (*models.Family, error) {
	err := s.store.Update(func(d *store.Dataset) error {
		d.UpsertFamily(family)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update family: %w", err)
	}
	return &family, nil
}

// RemoveMember removes memberID from the family. Only the owner may remove
// members, and the owner cannot be removed. Removing a user who is not a
// member is a silent no-op.
func (s *FamilyService) RemoveMember(familyID, memberID, requesterID string) error {
	err := s.store.Update(func(d *store.Dataset) error {
		family := d.FindFamily(familyID)
		if family == nil {
			return fmt.Errorf("family %s: %w", familyID, errs.ErrNotFound)
		}
		if family.OwnerID != requesterID {
			return fmt.Errorf("only the owner can remove members: %w", errs.ErrUnauthorized)
		}
		if memberID == family.OwnerID {
			return fmt.Errorf("the owner cannot be removed: %w", errs.ErrInvalid)
		}
		if !family.RemoveMember(memberID) {
			return store.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// LeaveFamily removes memberID from the family at their own request. The
// owner cannot leave; no ownership transfer exists, so a family always
// keeps its owner.
func (s *FamilyService) LeaveFamily(familyID, memberID string) error {
	err := s.store.Update(func(d *store.Dataset) error {
		family := d.FindFamily(familyID)
		if family == nil {
			return fmt.Errorf("family %s: %w", familyID, errs.ErrNotFound)
		}
		if memberID == family.OwnerID {
			return fmt.Errorf("the owner cannot leave their family: %w", errs.ErrInvalid)
		}
		if !family.RemoveMember(memberID) {
			return store.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to leave family: %w", err)
	}
	return nil
}

// Members resolves a family's member ids to full user records, preserving
// the family's member order. Resolved users outside that list are appended
// afterward.
func (s *FamilyService) Members(familyID string) ([]models.UserAccount, error) {
	family := s.store.FamilyByID(familyID)
	if family == nil {
		return nil, fmt.Errorf("family %s: %w", familyID, errs.ErrNotFound)
	}

	users := s.store.UsersWithIDs(family.MemberIDs)
	byID := make(map[string]models.UserAccount, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	ordered := make([]models.UserAccount, 0, len(users))
	for _, id := range family.MemberIDs {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
			delete(byID, id)
		}
	}
	// Defensive: keep any resolved stragglers visible.
	for _, u := range users {
		if _, ok := byID[u.ID]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered, nil
}

// CreateChild adds a child profile to a family.
func (s *FamilyService) CreateChild(familyID, name string, birthdate *time.Time) (*models.ChildProfile, error) {
	if name == "" {
		return nil, fmt.Errorf("child name is required: %w", errs.ErrInvalid)
	}

	child := models.ChildProfile{
		ID:        utils.GenerateID(),
		FamilyID:  familyID,
		Name:      name,
		Birthdate: birthdate,
		CreatedAt: time.Now().UTC(),
	}

	err := s.store.Update(func(d *store.Dataset) error {
		d.UpsertChild(child)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create child: %w", err)
	}
	return &child, nil
}

// Children returns the child profiles in a family, in store order.
func (s *FamilyService) Children(familyID string) []models.ChildProfile {
	return s.store.ChildrenInFamily(familyID)
}
