package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"heartloom/internal/errs"
	"heartloom/internal/models"
	"heartloom/internal/store"
)

func newFamilyService(t *testing.T) *FamilyService {
	t.Helper()
	st, err := store.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return NewFamilyService(st, zap.NewNop())
}

func seedUsers(t *testing.T, s *FamilyService, ids ...string) {
	t.Helper()
	require.NoError(t, s.store.Update(func(d *store.Dataset) error {
		for _, id := range ids {
			d.UpsertUser(models.UserAccount{ID: id, DisplayName: "user " + id, CreatedAt: time.Now().UTC()})
		}
		return nil
	}))
}

func TestCreateFamilyOwnerIsSoleMember(t *testing.T) {
	s := newFamilyService(t)

	family, err := s.CreateFamily("Smith", "u1")
	require.NoError(t, err)

	assert.Equal(t, "u1", family.OwnerID)
	assert.Equal(t, []string{"u1"}, family.MemberIDs)
	assert.Len(t, family.InviteCode, inviteCodeLength)
	for _, c := range family.InviteCode {
		assert.Contains(t, inviteCodeAlphabet, string(c))
	}
}

func TestCreateFamilyRequiresName(t *testing.T) {
	s := newFamilyService(t)

	_, err := s.CreateFamily("", "u1")
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestJoinFamilyMatchesCodeCaseInsensitively(t *testing.T) {
	s := newFamilyService(t)
	family, err := s.CreateFamily("Smith", "u1")
	require.NoError(t, err)

	tests := []struct {
		name string
		code func(string) string
	}{
		{"exact", func(c string) string { return c }},
		{"lower", func(c string) string { return toLower(c) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			joined, err := s.JoinFamily(tt.code(family.InviteCode), "u2")
			require.NoError(t, err)
			assert.Contains(t, joined.MemberIDs, "u2")
		})
	}
}

func toLower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func TestJoinFamilyIsIdempotent(t *testing.T) {
	s := newFamilyService(t)
	family, err := s.CreateFamily("Smith", "u1")
	require.NoError(t, err)

	_, err = s.JoinFamily(family.InviteCode, "u2")
	require.NoError(t, err)
	again, err := s.JoinFamily(family.InviteCode, "u2")
	require.NoError(t, err)

	assert.Equal(t, []string{"u1", "u2"}, again.MemberIDs)
}

func TestJoinFamilyResultSurvivesLaterMutations(t *testing.T) {
	s := newFamilyService(t)
	family, err := s.CreateFamily("Smith", "u1")
	require.NoError(t, err)
	_, err = s.JoinFamily(family.InviteCode, "u2")
	require.NoError(t, err)

	joined, err := s.JoinFamily(family.InviteCode, "u3")
	require.NoError(t, err)
	require.Equal(t, []string{"u1", "u2", "u3"}, joined.MemberIDs)

	rejoined, err := s.JoinFamily(family.InviteCode, "u3")
	require.NoError(t, err)

	require.NoError(t, s.RemoveMember(family.ID, "u2", "u1"))

	assert.Equal(t, []string{"u1", "u2", "u3"}, joined.MemberIDs)
	assert.Equal(t, []string{"u1", "u2", "u3"}, rejoined.MemberIDs)

	got, err := s.Family(family.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u3"}, got.MemberIDs)
}

func TestJoinFamilyUnknownCode(t *testing.T) {
	s := newFamilyService(t)

	_, err := s.JoinFamily("ZZZZZZ", "u2")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRemoveMember(t *testing.T) {
	s := newFamilyService(t)
	family, err := s.CreateFamily("Smith", "owner")
	require.NoError(t, err)
	_, err = s.JoinFamily(family.InviteCode, "member")
	require.NoError(t, err)

	t.Run("non-owner cannot remove", func(t *testing.T) {
		err := s.RemoveMember(family.ID, "member", "member")
		assert.ErrorIs(t, err, errs.ErrUnauthorized)
	})

	t.Run("owner cannot be removed", func(t *testing.T) {
		err := s.RemoveMember(family.ID, "owner", "owner")
		assert.ErrorIs(t, err, errs.ErrInvalid)
	})

	t.Run("absent member is a no-op", func(t *testing.T) {
		require.NoError(t, s.RemoveMember(family.ID, "stranger", "owner"))
	})

	t.Run("unknown family", func(t *testing.T) {
		err := s.RemoveMember("nope", "member", "owner")
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("owner removes member", func(t *testing.T) {
		require.NoError(t, s.RemoveMember(family.ID, "member", "owner"))
		got, err := s.Family(family.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"owner"}, got.MemberIDs)
	})
}

func TestLeaveFamily(t *testing.T) {
	s := newFamilyService(t)
	family, err := s.CreateFamily("Smith", "owner")
	require.NoError(t, err)
	_, err = s.JoinFamily(family.InviteCode, "member")
	require.NoError(t, err)

	t.Run("owner cannot leave", func(t *testing.T) {
		err := s.LeaveFamily(family.ID, "owner")
		assert.ErrorIs(t, err, errs.ErrInvalid)
	})

	t.Run("absent member is a no-op", func(t *testing.T) {
		require.NoError(t, s.LeaveFamily(family.ID, "stranger"))
	})

	t.Run("member leaves", func(t *testing.T) {
		require.NoError(t, s.LeaveFamily(family.ID, "member"))
		got, err := s.Family(family.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"owner"}, got.MemberIDs)
	})
}

func TestMembersPreserveFamilyOrder(t *testing.T) {
	s := newFamilyService(t)
	seedUsers(t, s, "u1", "u2", "u3")

	family, err := s.CreateFamily("Smith", "u2")
	require.NoError(t, err)
	_, err = s.JoinFamily(family.InviteCode, "u3")
	require.NoError(t, err)
	_, err = s.JoinFamily(family.InviteCode, "u1")
	require.NoError(t, err)

	members, err := s.Members(family.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "u2", members[0].ID)
	assert.Equal(t, "u3", members[1].ID)
	assert.Equal(t, "u1", members[2].ID)
}

func TestMembersSkipUnresolvedIDs(t *testing.T) {
	s := newFamilyService(t)
	seedUsers(t, s, "u1")

	family, err := s.CreateFamily("Smith", "u1")
	require.NoError(t, err)
	_, err = s.JoinFamily(family.InviteCode, "ghost")
	require.NoError(t, err)

	members, err := s.Members(family.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "u1", members[0].ID)
}

func TestFamiliesForUser(t *testing.T) {
	s := newFamilyService(t)

	first, err := s.CreateFamily("First", "u1")
	require.NoError(t, err)
	second, err := s.CreateFamily("Second", "u2")
	require.NoError(t, err)
	_, err = s.JoinFamily(second.InviteCode, "u1")
	require.NoError(t, err)

	families := s.Families("u1")
	require.Len(t, families, 2)
	assert.Equal(t, first.ID, families[0].ID)
	assert.Equal(t, second.ID, families[1].ID)
	assert.Len(t, s.Families("u2"), 1)
}

func TestCreateChild(t *testing.T) {
	s := newFamilyService(t)
	family, err := s.CreateFamily("Smith", "u1")
	require.NoError(t, err)

	_, err = s.CreateChild(family.ID, "", nil)
	assert.ErrorIs(t, err, errs.ErrInvalid)

	birthdate := time.Date(2021, 7, 4, 0, 0, 0, 0, time.UTC)
	child, err := s.CreateChild(family.ID, "Mia", &birthdate)
	require.NoError(t, err)
	assert.Equal(t, family.ID, child.FamilyID)

	children := s.Children(family.ID)
	require.Len(t, children, 1)
	assert.Equal(t, "Mia", children[0].Name)
	require.NotNil(t, children[0].Birthdate)
	assert.True(t, birthdate.Equal(*children[0].Birthdate))
}

func TestGenerateInviteCodeRetriesOnCollision(t *testing.T) {
	s := newFamilyService(t)

	var candidates []string
	code, err := s.generateInviteCode(func(c string) bool {
		candidates = append(candidates, c)
		return len(candidates) <= 3
	})
	require.NoError(t, err)
	require.Len(t, candidates, 4)
	assert.Equal(t, candidates[3], code)
}

func TestGenerateInviteCodeKeepsLastCandidateWhenExhausted(t *testing.T) {
	s := newFamilyService(t)

	calls := 0
	code, err := s.generateInviteCode(func(string) bool {
		calls++
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 10, calls)
	assert.Len(t, code, inviteCodeLength)
}

func TestInviteCodesAreUniqueAcrossFamilies(t *testing.T) {
	s := newFamilyService(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		family, err := s.CreateFamily("Family", "u1")
		require.NoError(t, err)
		assert.False(t, seen[family.InviteCode])
		seen[family.InviteCode] = true
	}
}
