package images

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heartloom/internal/errs"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	asset, err := s.Save(ctx, []byte("jpeg bytes"))
	require.NoError(t, err)
	assert.NotEmpty(t, asset.ID)
	assert.True(t, strings.HasSuffix(asset.FileName, ".jpg"))
	assert.Equal(t, asset.ID+".jpg", asset.FileName)
	assert.False(t, asset.CreatedAt.IsZero())

	data, err := s.Load(ctx, asset.FileName)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), data)
}

func TestSaveRejectsEmptyData(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Save(context.Background(), nil)
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestLoadMissingBlob(t *testing.T) {
	s := openTestStore(t)

	data, err := s.Load(context.Background(), "missing.jpg")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSaveGeneratesDistinctNames(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Save(ctx, []byte("a"))
	require.NoError(t, err)
	second, err := s.Save(ctx, []byte("b"))
	require.NoError(t, err)

	assert.NotEqual(t, first.FileName, second.FileName)
}
