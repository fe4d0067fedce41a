package handlers

import (
	"net/http"

	"smartcare-api/pkg/models"
	"smartcare-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// InventoryHandler 在庫APIのハンドラー
type InventoryHandler struct {
	store *services.InventoryStore
}

// NewInventoryHandler 新しい在庫ハンドラーを作成
func NewInventoryHandler(store *services.InventoryStore) *InventoryHandler {
	return &InventoryHandler{store: store}
}

// GetInventory 全在庫レコードを返す
func (ih *InventoryHandler) GetInventory(c *gin.Context) {
	c.JSON(http.StatusOK, ih.store.GetAll())
}

// UpsertInventory 在庫レコードを部分更新する
func (ih *InventoryHandler) UpsertInventory(c *gin.Context) {
	var req models.InventoryUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse request: " + err.Error()})
		return
	}

	row, err := ih.store.Upsert(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"item": req.ItemCode,
		"data": row,
	})
}
