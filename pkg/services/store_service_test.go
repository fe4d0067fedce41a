package services

import (
	"os"
	"path/filepath"
	"testing"

	"smartcare-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	s := NewJSONStore(path)

	in := map[string]string{"a": "1", "b": "2"}
	require.NoError(t, s.Save(in))

	out := make(map[string]string)
	require.NoError(t, s.Load(&out))
	assert.Equal(t, in, out)
}

func TestJSONStoreMissingFileLeavesOutUntouched(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "missing.json"))

	out := map[string]string{"seed": "kept"}
	require.NoError(t, s.Load(&out))
	assert.Equal(t, map[string]string{"seed": "kept"}, out)
}

func TestJSONStoreCorruptFileLeavesOutUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := NewJSONStore(path)
	out := make(map[string]string)
	require.NoError(t, s.Load(&out))
	assert.Empty(t, out)
}

func TestInventoryDefaultSeed(t *testing.T) {
	is := NewInventoryStore(t.TempDir())

	inv := is.GetAll()
	require.Len(t, inv, 4)

	para := inv["paracetamol"]
	assert.Equal(t, "Paracetamol 500mg", para.Name)
	assert.Equal(t, 200, para.OnHand)
	assert.Equal(t, 150, para.ReorderPoint)

	ors := inv["ors_packets"]
	assert.Equal(t, 45, ors.OnHand)
	assert.Equal(t, 60, ors.ReorderPoint)
}

func TestInventoryCorruptFileFallsBackToSeed(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "inventory.json"), []byte("garbage"), 0644))

	is := NewInventoryStore(dataDir)
	inv := is.GetAll()
	assert.Len(t, inv, 4)
	assert.Contains(t, inv, "malaria_kits")
}

func TestInventoryUpsertPartialUpdate(t *testing.T) {
	dataDir := t.TempDir()
	is := NewInventoryStore(dataDir)

	// on_handだけ更新。nameとreorder_pointは既存値を維持する。
	row, err := is.Upsert(models.InventoryUpsertRequest{
		ItemCode: "paracetamol",
		OnHand:   intPtr(120),
	})
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol 500mg", row.Name)
	assert.Equal(t, 120, row.OnHand)
	assert.Equal(t, 150, row.ReorderPoint)

	// 別インスタンスで読み直してもファイルに永続化されている
	again := NewInventoryStore(dataDir).GetAll()
	assert.Equal(t, 120, again["paracetamol"].OnHand)
}

func TestInventoryUpsertCreatesNewItem(t *testing.T) {
	is := NewInventoryStore(t.TempDir())

	row, err := is.Upsert(models.InventoryUpsertRequest{
		ItemCode:     "zinc_tablets",
		Name:         strPtr("Zinc Tablets"),
		OnHand:       intPtr(80),
		ReorderPoint: intPtr(50),
	})
	require.NoError(t, err)
	assert.Equal(t, "Zinc Tablets", row.Name)
	assert.Equal(t, 80, row.OnHand)

	inv := is.GetAll()
	assert.Len(t, inv, 5)
	assert.Contains(t, inv, "zinc_tablets")
}

func TestInventoryUpsertNewItemDefaultsNameToCode(t *testing.T) {
	is := NewInventoryStore(t.TempDir())

	row, err := is.Upsert(models.InventoryUpsertRequest{
		ItemCode: "bandages",
		OnHand:   intPtr(10),
	})
	require.NoError(t, err)
	assert.Equal(t, "bandages", row.Name)
}
