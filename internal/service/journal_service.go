package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"heartloom/internal/images"
	"heartloom/internal/models"
	"heartloom/internal/store"
	"heartloom/internal/utils"
)

// JournalService creates entries and serves the family and per-child
// timelines. Photo bytes go through the image store; only asset
// references enter the dataset.
type JournalService struct {
	store  *store.Store
	images *images.Store
	logger *zap.Logger
}

// NewJournalService creates a new journal service
func NewJournalService(st *store.Store, img *images.Store, logger *zap.Logger) *JournalService {
	return &JournalService{store: st, images: img, logger: logger}
}

// SavePhotos stores a batch of images and records their asset references.
// Each element must be non-empty image data.
func (s *JournalService) SavePhotos(ctx context.Context, imageData [][]byte) ([]models.PhotoAsset, error) {
	assets := make([]models.PhotoAsset, 0, len(imageData))
	for _, data := range imageData {
		asset, err := s.images.Save(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("failed to save photo: %w", err)
		}
		assets = append(assets, asset)
	}

	err := s.store.Update(func(d *store.Dataset) error {
		d.AppendPhotos(assets)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record photo assets: %w", err)
	}
	return assets, nil
}

// CreateEntry stores a new journal entry. Preconditions on non-empty
// photos or children are the composer's responsibility, not enforced here.
func (s *JournalService) CreateEntry(familyID string, childIDs, photoIDs []string, description string, tags []string, uploaderID string) (*models.JournalEntry, error) {
	entry := models.JournalEntry{
		ID:              utils.GenerateID(),
		FamilyID:        familyID,
		ChildIDs:        childIDs,
		PhotoIDs:        photoIDs,
		DescriptionText: description,
		UploaderUserID:  uploaderID,
		Tags:            tags,
		CreatedAt:       time.Now().UTC(),
	}

	err := s.store.Update(func(d *store.Dataset) error {
		d.UpsertEntry(entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	s.logger.Info("journal entry created",
		zap.String("entryId", entry.ID),
		zap.String("familyId", familyID),
		zap.Int("photos", len(photoIDs)))
	return &entry, nil
}

// EntriesForFamily returns a family's entries, oldest first.
func (s *JournalService) EntriesForFamily(familyID string) []models.JournalEntry {
	return s.store.EntriesInFamily(familyID)
}

// EntriesForChild returns the entries referencing a child, oldest first.
func (s *JournalService) EntriesForChild(childID string) []models.JournalEntry {
	return s.store.EntriesForChild(childID)
}

// LoadPhoto returns the stored bytes for a photo asset, or nil when the
// blob is absent.
func (s *JournalService) LoadPhoto(ctx context.Context, asset models.PhotoAsset) ([]byte, error) {
	return s.images.Load(ctx, asset.FileName)
}

// Photos resolves photo asset references, in store order.
func (s *JournalService) Photos(ids []string) []models.PhotoAsset {
	return s.store.PhotosWithIDs(ids)
}
