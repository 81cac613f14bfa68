package saved

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/barterly/barter-api/internal/config"
	"github.com/barterly/barter-api/internal/db"
	"github.com/barterly/barter-api/internal/models"
	"github.com/barterly/barter-api/internal/utils"
)

// SavedService manages the caller's bookmarked items
type SavedService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewSavedService creates a new SavedService
func NewSavedService(cfg *config.Config) *SavedService {
	return &SavedService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// SaveItem bookmarks an item for the caller
func (s *SavedService) SaveItem(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	var requestData struct {
		ItemID string `json:"item_id"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("decoding request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request data"})
	}

	if requestData.ItemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Item ID is required"})
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	itemUUID, err := uuid.Parse(requestData.ItemID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var exists bool
	err = db.Pool.QueryRow(ctx, `
        SELECT EXISTS(SELECT 1 FROM items WHERE id = $1 AND deleted_at IS NULL)
    `, itemUUID).Scan(&exists)

	if err != nil {
		log.Printf("checking item: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check the item"})
	}

	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Item not found"})
	}

	savedID := uuid.New()
	tag, err := db.Pool.Exec(ctx, `
        INSERT INTO saved_items (id, user_id, item_id)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, item_id) DO NOTHING
    `, savedID, userUUID, itemUUID)

	if err != nil {
		log.Printf("saving item: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save the item"})
	}

	if tag.RowsAffected() == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Item is already saved"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"id":      savedID,
	})
}

// UnsaveItem removes an item from the caller's bookmarks
func (s *SavedService) UnsaveItem(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	itemUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `
        DELETE FROM saved_items WHERE user_id = $1 AND item_id = $2
    `, userUUID, itemUUID)

	if err != nil {
		log.Printf("removing saved item: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to remove the saved item"})
	}

	if tag.RowsAffected() == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Item is not saved"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// GetSavedItems returns the caller's bookmarked items, most recent first
func (s *SavedService) GetSavedItems(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 50 {
			limit = parsed
		}
	}
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
        SELECT s.id, s.user_id, s.item_id, s.created_at,
               i.id, i.user_id, i.title, i.description, i.condition, i.estimated_value,
               i.is_available, i.status, i.created_at, i.updated_at
        FROM saved_items s
        JOIN items i ON s.item_id = i.id
        WHERE s.user_id = $1 AND i.deleted_at IS NULL
        ORDER BY s.created_at DESC
        LIMIT $2 OFFSET $3
    `, userUUID, limit, offset)

	if err != nil {
		log.Printf("querying saved items: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to load saved items", "retryable": true, "items": []models.SavedItem{},
		})
	}
	defer rows.Close()

	saved := []models.SavedItem{}
	for rows.Next() {
		var entry models.SavedItem
		var item models.Item
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.ItemID,
			&entry.CreatedAt,
			&item.ID,
			&item.UserID,
			&item.Title,
			&item.Description,
			&item.Condition,
			&item.EstimatedValue,
			&item.IsAvailable,
			&item.Status,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			log.Printf("scanning saved item row: %v", err)
			continue
		}
		entry.Item = &item
		saved = append(saved, entry)
	}

	return c.JSON(fiber.Map{
		"items": saved,
		"count": len(saved),
	})
}

// CheckSaved reports whether an item is in the caller's bookmarks
func (s *SavedService) CheckSaved(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	itemUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var exists bool
	err = db.Pool.QueryRow(ctx, `
        SELECT EXISTS(SELECT 1 FROM saved_items WHERE user_id = $1 AND item_id = $2)
    `, userUUID, itemUUID).Scan(&exists)

	if err != nil {
		log.Printf("checking saved item: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check the saved item"})
	}

	return c.JSON(fiber.Map{"saved": exists})
}
