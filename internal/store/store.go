// Package store implements the file-backed object store that owns the five
// record collections. All durable state lives in a single JSON file that is
// rewritten atomically on every mutation.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"heartloom/internal/errs"
	"heartloom/internal/models"
)

// DatasetFileName is the name of the dataset file under the data directory.
const DatasetFileName = "backend.json"

// Dataset holds the five record collections. Mutations reach it only
// through Store.Update, which serializes the whole read-modify-persist
// sequence.
type Dataset struct {
	Users    []models.UserAccount  `json:"users"`
	Families []models.Family       `json:"families"`
	Children []models.ChildProfile `json:"children"`
	Photos   []models.PhotoAsset   `json:"photos"`
	Entries  []models.JournalEntry `json:"entries"`
}

// Store is the single in-process writer over the dataset. Reads take a
// shared lock and return copies; updates take the exclusive lock for the
// full read-modify-persist sequence so no two mutations interleave.
type Store struct {
	path   string
	logger *zap.Logger

	mu   sync.RWMutex
	data Dataset
}

// Open loads the dataset from dir, tolerating a missing or unparseable
// file by starting empty, then runs the family migration pass. A repair
// is persisted immediately.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.IO("create data directory", err)
	}

	s := &Store{
		path:   filepath.Join(dir, DatasetFileName),
		logger: logger,
	}

	raw, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &s.data); err != nil {
			// First-run tolerance: an unreadable file degrades to an
			// empty dataset instead of failing the whole application.
			logger.Warn("dataset file unparseable, starting empty",
				zap.String("path", s.path),
				zap.Error(err))
			s.data = Dataset{}
		}
	case errors.Is(err, os.ErrNotExist):
		// First run.
	default:
		return nil, errs.IO("read dataset", err)
	}

	if migrateFamilies(&s.data) {
		if err := s.persistLocked(); err != nil {
			logger.Warn("failed to persist migrated dataset", zap.Error(err))
		} else {
			logger.Info("migrated legacy family records")
		}
	}

	return s, nil
}

// migrateFamilies repairs legacy family records: a family without an owner
// adopts its first member, and an owner missing from the member list is
// inserted at the front. Reports whether anything changed.
func migrateFamilies(d *Dataset) bool {
	changed := false
	for i := range d.Families {
		f := &d.Families[i]
		if f.OwnerID == "" && len(f.MemberIDs) > 0 {
			f.OwnerID = f.MemberIDs[0]
			changed = true
		}
		if f.OwnerID != "" && !f.HasMember(f.OwnerID) {
			f.MemberIDs = append([]string{f.OwnerID}, f.MemberIDs...)
			changed = true
		}
	}
	return changed
}

// ErrNoChange signals from an Update closure that the dataset was left
// untouched, so no persist is needed. Update reports it as success.
var ErrNoChange = errors.New("no change")

// Update runs fn under the exclusive lock and persists the dataset if fn
// succeeds. The in-memory mutation survives a failed persist; the error is
// returned so the caller can retry or surface it.
func (s *Store) Update(fn func(d *Dataset) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(&s.data); err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		return err
	}
	return s.persistLocked()
}

// persistLocked serializes the full dataset to disk via a temp file and
// rename, so a reader never observes a partially written file. Callers
// must hold the write lock.
func (s *Store) persistLocked() error {
	raw, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return errs.IO("encode dataset", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), DatasetFileName+".tmp-*")
	if err != nil {
		return errs.IO("create temp dataset file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errs.IO("write dataset", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errs.IO("close dataset file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errs.IO("replace dataset file", err)
	}
	return nil
}

// UpsertUser replaces the user with the same id in place, or appends it.
func (d *Dataset) UpsertUser(u models.UserAccount) {
	for i := range d.Users {
		if d.Users[i].ID == u.ID {
			d.Users[i] = u
			return
		}
	}
	d.Users = append(d.Users, u)
}

// UpsertFamily replaces the family with the same id in place, or appends it.
func (d *Dataset) UpsertFamily(f models.Family) {
	f = cloneFamily(f)
	for i := range d.Families {
		if d.Families[i].ID == f.ID {
			d.Families[i] = f
			return
		}
	}
	d.Families = append(d.Families, f)
}

// UpsertChild replaces the child with the same id in place, or appends it.
func (d *Dataset) UpsertChild(c models.ChildProfile) {
	for i := range d.Children {
		if d.Children[i].ID == c.ID {
			d.Children[i] = c
			return
		}
	}
	d.Children = append(d.Children, c)
}

// UpsertEntry replaces the entry with the same id in place, or appends it.
func (d *Dataset) UpsertEntry(e models.JournalEntry) {
	e = cloneEntry(e)
	for i := range d.Entries {
		if d.Entries[i].ID == e.ID {
			d.Entries[i] = e
			return
		}
	}
	d.Entries = append(d.Entries, e)
}

// AppendPhotos adds freshly created photo assets to the end of the
// collection. IDs are generated by the caller, so no collision check.
func (d *Dataset) AppendPhotos(photos []models.PhotoAsset) {
	d.Photos = append(d.Photos, photos...)
}

// FindFamily returns a pointer into the dataset, valid only inside an
// Update closure.
func (d *Dataset) FindFamily(id string) *models.Family {
	for i := range d.Families {
		if d.Families[i].ID == id {
			return &d.Families[i]
		}
	}
	return nil
}

// FindFamilyByInvite matches invite codes case-insensitively. The pointer
// is valid only inside an Update closure.
func (d *Dataset) FindFamilyByInvite(code string) *models.Family {
	for i := range d.Families {
		if strings.EqualFold(d.Families[i].InviteCode, code) {
			return &d.Families[i]
		}
	}
	return nil
}

// FindUserByAuth returns the user for the (subject, provider) pair, valid
// only inside an Update closure.
func (d *Dataset) FindUserByAuth(subjectID, provider string) *models.UserAccount {
	for i := range d.Users {
		if d.Users[i].AuthSubjectID == subjectID && d.Users[i].Provider == provider {
			return &d.Users[i]
		}
	}
	return nil
}

// UserByAuth retrieves the user for the (subject, provider) pair, or nil
// if no such user exists.
func (s *Store) UserByAuth(subjectID, provider string) *models.UserAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.data.Users {
		u := s.data.Users[i]
		if u.AuthSubjectID == subjectID && u.Provider == provider {
			return &u
		}
	}
	return nil
}

// UserByID retrieves a user by id, or nil if absent.
func (s *Store) UserByID(id string) *models.UserAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.data.Users {
		if s.data.Users[i].ID == id {
			u := s.data.Users[i]
			return &u
		}
	}
	return nil
}

// UsersWithIDs returns the users whose id is in ids, in store order.
func (s *Store) UsersWithIDs(ids []string) []models.UserAccount {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var users []models.UserAccount
	for _, u := range s.data.Users {
		if wanted[u.ID] {
			users = append(users, u)
		}
	}
	return users
}

// FamilyByID retrieves a family by id, or nil if absent.
func (s *Store) FamilyByID(id string) *models.Family {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.data.Families {
		if s.data.Families[i].ID == id {
			f := cloneFamily(s.data.Families[i])
			return &f
		}
	}
	return nil
}

// FamilyByInviteCode retrieves a family by invite code, matched
// case-insensitively, or nil if absent.
func (s *Store) FamilyByInviteCode(code string) *models.Family {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.data.Families {
		if strings.EqualFold(s.data.Families[i].InviteCode, code) {
			f := cloneFamily(s.data.Families[i])
			return &f
		}
	}
	return nil
}

// FamiliesForUser returns all families whose member list contains userID,
// in store order.
func (s *Store) FamiliesForUser(userID string) []models.Family {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var families []models.Family
	for i := range s.data.Families {
		if s.data.Families[i].HasMember(userID) {
			families = append(families, cloneFamily(s.data.Families[i]))
		}
	}
	return families
}

// InviteCodeTaken reports whether any family already uses code,
// case-insensitively.
func (s *Store) InviteCodeTaken(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.data.Families {
		if strings.EqualFold(s.data.Families[i].InviteCode, code) {
			return true
		}
	}
	return false
}

// ChildrenInFamily returns the child profiles belonging to familyID, in
// store order.
func (s *Store) ChildrenInFamily(familyID string) []models.ChildProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var children []models.ChildProfile
	for _, c := range s.data.Children {
		if c.FamilyID == familyID {
			children = append(children, c)
		}
	}
	return children
}

// ChildByID retrieves a child by id, or nil if absent.
func (s *Store) ChildByID(id string) *models.ChildProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.data.Children {
		if s.data.Children[i].ID == id {
			c := s.data.Children[i]
			return &c
		}
	}
	return nil
}

// PhotosWithIDs returns the photo assets whose id is in ids, in store order.
func (s *Store) PhotosWithIDs(ids []string) []models.PhotoAsset {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var photos []models.PhotoAsset
	for _, p := range s.data.Photos {
		if wanted[p.ID] {
			photos = append(photos, p)
		}
	}
	return photos
}

// EntriesInFamily returns the entries for familyID, oldest first.
func (s *Store) EntriesInFamily(familyID string) []models.JournalEntry {
	s.mu.RLock()
	var entries []models.JournalEntry
	for i := range s.data.Entries {
		if s.data.Entries[i].FamilyID == familyID {
			entries = append(entries, cloneEntry(s.data.Entries[i]))
		}
	}
	s.mu.RUnlock()

	sortEntries(entries)
	return entries
}

// EntriesForChild returns the entries that reference childID, oldest first.
func (s *Store) EntriesForChild(childID string) []models.JournalEntry {
	s.mu.RLock()
	var entries []models.JournalEntry
	for i := range s.data.Entries {
		for _, id := range s.data.Entries[i].ChildIDs {
			if id == childID {
				entries = append(entries, cloneEntry(s.data.Entries[i]))
				break
			}
		}
	}
	s.mu.RUnlock()

	sortEntries(entries)
	return entries
}

// Snapshot returns a deep copy of the whole dataset, for export.
func (s *Store) Snapshot() Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Dataset{
		Users:    append([]models.UserAccount(nil), s.data.Users...),
		Children: append([]models.ChildProfile(nil), s.data.Children...),
		Photos:   append([]models.PhotoAsset(nil), s.data.Photos...),
	}
	for _, f := range s.data.Families {
		out.Families = append(out.Families, cloneFamily(f))
	}
	for _, e := range s.data.Entries {
		out.Entries = append(out.Entries, cloneEntry(e))
	}
	return out
}

// Path returns the location of the dataset file.
func (s *Store) Path() string {
	return s.path
}

func sortEntries(entries []models.JournalEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}

func cloneFamily(f models.Family) models.Family {
	f.MemberIDs = append([]string(nil), f.MemberIDs...)
	return f
}

func cloneEntry(e models.JournalEntry) models.JournalEntry {
	e.ChildIDs = append([]string(nil), e.ChildIDs...)
	e.PhotoIDs = append([]string(nil), e.PhotoIDs...)
	e.Tags = append([]string(nil), e.Tags...)
	return e
}
