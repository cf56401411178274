package draft

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-board/internal/ordersync/domain/dto"
)

func TestSaveLoadClear(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Load()
	assert.ErrorIs(t, err, ErrNoDraft)

	in := dto.CreateOrderRequest{
		CustomerName: "Dana",
		OrderType:    "walk-in",
		Items: []dto.CreateOrderItemRequest{
			{MenuItemName: "Fried Rice", Quantity: 2, Price: 9.5},
		},
	}
	require.NoError(t, s.Save(in))

	out, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, in, out)

	require.NoError(t, s.Clear())
	_, err = s.Load()
	assert.ErrorIs(t, err, ErrNoDraft)

	// Clearing twice is fine.
	assert.NoError(t, s.Clear())
}

func TestCorruptDraftSurfaces(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "draft.json"), []byte("{nope"), 0o644))
	_, err = s.Load()
	assert.ErrorContains(t, err, "corrupt draft")
}
