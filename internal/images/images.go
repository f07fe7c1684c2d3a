// Package images stores image blobs outside the dataset, addressed by
// file names derived from freshly generated asset ids.
package images

import (
	"context"
	"fmt"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/gcerrors"

	"heartloom/internal/errs"
	"heartloom/internal/models"
	"heartloom/internal/utils"
)

// Store persists image bytes in a blob bucket. The core never interprets
// image content.
type Store struct {
	bucket *blob.Bucket
}

// Open creates a file-backed image store rooted at dir.
func Open(dir string) (*Store, error) {
	bucket, err := fileblob.OpenBucket(dir, &fileblob.Options{CreateDir: true})
	if err != nil {
		return nil, errs.IO("open image bucket", err)
	}
	return &Store{bucket: bucket}, nil
}

// Close releases the underlying bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}

// Save writes one image and returns its asset reference. Empty image data
// is rejected.
func (s *Store) Save(ctx context.Context, data []byte) (models.PhotoAsset, error) {
	if len(data) == 0 {
		return models.PhotoAsset{}, fmt.Errorf("empty image data: %w", errs.ErrInvalid)
	}

	id := utils.GenerateID()
	fileName := id + ".jpg"
	opts := &blob.WriterOptions{ContentType: "image/jpeg"}
	if err := s.bucket.WriteAll(ctx, fileName, data, opts); err != nil {
		return models.PhotoAsset{}, errs.IO("write image", err)
	}

	return models.PhotoAsset{
		ID:        id,
		FileName:  fileName,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Load reads the bytes for fileName. A missing blob returns (nil, nil).
func (s *Store) Load(ctx context.Context, fileName string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, fileName)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, nil
		}
		return nil, errs.IO("read image", err)
	}
	return data, nil
}
