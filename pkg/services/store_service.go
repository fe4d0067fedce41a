package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"smartcare-api/pkg/models"
)

// JSONStore is a small file-backed key-value store.
// Reads tolerate a missing or corrupted file (treated as an empty store) so that a
// broken side file never takes the API down. Writes replace the whole file; concurrent
// writers from other processes are last-writer-wins.
type JSONStore struct {
	path string
	mu   sync.RWMutex
}

// NewJSONStore creates a store backed by the given file path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load reads the store into out (a pointer to a map). A missing or unparsable
// file leaves out untouched and returns nil.
func (s *JSONStore) Load(out interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		// 壊れたファイルは空ストアとして扱う
		return nil
	}
	return nil
}

// Save writes the whole store, creating parent directories as needed.
func (s *JSONStore) Save(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// InventoryStore 在庫の永続化ストア
type InventoryStore struct {
	store *JSONStore
}

// NewInventoryStore creates an inventory store backed by inventory.json under dataDir.
func NewInventoryStore(dataDir string) *InventoryStore {
	return &InventoryStore{
		store: NewJSONStore(filepath.Join(dataDir, "inventory.json")),
	}
}

// defaultInventory ファイルが存在しない場合の初期在庫
func defaultInventory() map[string]models.InventoryRecord {
	return map[string]models.InventoryRecord{
		"paracetamol":  {Name: "Paracetamol 500mg", OnHand: 200, ReorderPoint: 150},
		"ors_packets":  {Name: "ORS Sachets", OnHand: 45, ReorderPoint: 60},
		"malaria_kits": {Name: "Malaria Test Kits", OnHand: 30, ReorderPoint: 35},
		"antibiotics":  {Name: "Antibiotics", OnHand: 40, ReorderPoint: 30},
	}
}

// GetAll 全在庫レコードを返す。ファイルが無い/空の場合は初期在庫を返す。
func (is *InventoryStore) GetAll() map[string]models.InventoryRecord {
	inv := make(map[string]models.InventoryRecord)
	_ = is.store.Load(&inv)
	if len(inv) == 0 {
		return defaultInventory()
	}
	return inv
}

// Upsert 指定アイテムを部分更新して保存する。存在しないアイテムは新規作成。
func (is *InventoryStore) Upsert(req models.InventoryUpsertRequest) (models.InventoryRecord, error) {
	inv := is.GetAll()

	row, ok := inv[req.ItemCode]
	if !ok {
		row = models.InventoryRecord{Name: req.ItemCode}
	}
	if req.Name != nil {
		row.Name = *req.Name
	}
	if req.OnHand != nil {
		row.OnHand = *req.OnHand
	}
	if req.ReorderPoint != nil {
		row.ReorderPoint = *req.ReorderPoint
	}
	inv[req.ItemCode] = row

	if err := is.store.Save(inv); err != nil {
		return models.InventoryRecord{}, err
	}
	return row, nil
}
