package item

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/barterly/barter-api/internal/config"
	"github.com/barterly/barter-api/internal/db"
	"github.com/barterly/barter-api/internal/models"
	"github.com/barterly/barter-api/internal/services/cloudinary"
	"github.com/barterly/barter-api/internal/utils"
)

// RequestImage is the image payload accepted on create and update
type RequestImage struct {
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url"`
	PublicID   string `json:"public_id"`
	FileName   string `json:"file_name"`
	IsMain     bool   `json:"is_main"`
}

// ItemService manages the item catalog
type ItemService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	images     *cloudinary.CloudinaryService
}

// NewItemService creates a new ItemService
func NewItemService(cfg *config.Config, images *cloudinary.CloudinaryService) *ItemService {
	return &ItemService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		images:     images,
	}
}

// CreateItem handles creation of a new item
func (s *ItemService) CreateItem(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var requestData struct {
		Title          string         `json:"title"`
		Description    string         `json:"description"`
		Condition      string         `json:"condition"`
		EstimatedValue float64        `json:"estimated_value"`
		Images         []RequestImage `json:"images"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("decoding request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request data"})
	}

	if requestData.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title is required"})
	}
	if !models.ValidCondition(requestData.Condition) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown item condition"})
	}
	if requestData.EstimatedValue < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Estimated value cannot be negative"})
	}
	if len(requestData.Images) > models.MaxItemImages {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "An item can have at most 5 images"})
	}

	itemID := uuid.New()

	ctx, cancel := db.GetContext()
	defer cancel()

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("starting transaction: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        INSERT INTO items (id, user_id, title, description, condition, estimated_value, is_available, status)
        VALUES ($1, $2, $3, $4, $5, $6, true, 'available')
    `, itemID, userUUID, requestData.Title, requestData.Description,
		requestData.Condition, requestData.EstimatedValue)

	if err != nil {
		log.Printf("creating item: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save the item"})
	}

	for position, img := range requestData.Images {
		_, err = tx.Exec(ctx, `
            INSERT INTO item_images (id, item_id, url, preview_url, public_id, file_name, is_main, position)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        `, uuid.New(), itemID, img.URL, img.PreviewURL, img.PublicID, img.FileName, img.IsMain, position)

		if err != nil {
			log.Printf("saving item image: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save item images"})
		}
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("committing transaction: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"item_id": itemID,
	})
}

// GetMyItems returns the caller's items
func (s *ItemService) GetMyItems(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	status := c.Query("status", "all")

	ctx, cancel := db.GetContext()
	defer cancel()

	query := `
        SELECT id, user_id, title, description, condition, estimated_value,
               is_available, status, created_at, updated_at
        FROM items
        WHERE user_id = $1 AND deleted_at IS NULL
        ORDER BY created_at DESC
    `
	args := []interface{}{userUUID}

	if status != "all" {
		query = `
            SELECT id, user_id, title, description, condition, estimated_value,
                   is_available, status, created_at, updated_at
            FROM items
            WHERE user_id = $1 AND deleted_at IS NULL AND status = $2
            ORDER BY created_at DESC
        `
		args = append(args, status)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("querying items: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to load items", "retryable": true, "items": []models.Item{},
		})
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(
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
			log.Printf("scanning item row: %v", err)
			continue
		}
		item.Images = loadItemImages(ctx, item.ID)
		items = append(items, item)
	}

	return c.JSON(fiber.Map{
		"items": items,
		"count": len(items),
	})
}

// GetItem returns a single item by ID
func (s *ItemService) GetItem(c fiber.Ctx) error {
	itemUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var item models.Item
	err = db.Pool.QueryRow(ctx, `
        SELECT id, user_id, title, description, condition, estimated_value,
               is_available, status, created_at, updated_at
        FROM items
        WHERE id = $1 AND deleted_at IS NULL
    `, itemUUID).Scan(
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
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Item not found"})
		}
		log.Printf("loading item: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to load the item", "retryable": true})
	}

	item.Images = loadItemImages(ctx, item.ID)
	item.Owner = loadUserInfo(ctx, item.UserID)

	return c.JSON(fiber.Map{"item": item})
}

// UpdateItem updates the caller's own item
func (s *ItemService) UpdateItem(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	itemUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item ID"})
	}

	var requestData struct {
		Title          string          `json:"title"`
		Description    string          `json:"description"`
		Condition      string          `json:"condition"`
		EstimatedValue float64         `json:"estimated_value"`
		Images         *[]RequestImage `json:"images,omitempty"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("decoding request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request data"})
	}

	if requestData.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title is required"})
	}
	if !models.ValidCondition(requestData.Condition) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown item condition"})
	}
	if requestData.EstimatedValue < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Estimated value cannot be negative"})
	}
	if requestData.Images != nil && len(*requestData.Images) > models.MaxItemImages {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "An item can have at most 5 images"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var ownerID uuid.UUID
	err = db.Pool.QueryRow(ctx, `
        SELECT user_id FROM items WHERE id = $1 AND deleted_at IS NULL
    `, itemUUID).Scan(&ownerID)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Item not found"})
		}
		log.Printf("checking item ownership: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to load the item", "retryable": true})
	}

	if ownerID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only edit your own items"})
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		log.Printf("starting transaction: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        UPDATE items
        SET title = $1, description = $2, condition = $3, estimated_value = $4, updated_at = NOW()
        WHERE id = $5
    `, requestData.Title, requestData.Description, requestData.Condition,
		requestData.EstimatedValue, itemUUID)

	if err != nil {
		log.Printf("updating item: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update the item"})
	}

	var releasedIDs []string
	if requestData.Images != nil {
		// Replacing images: the old blobs get released after commit.
		rows, err := tx.Query(ctx, `SELECT public_id FROM item_images WHERE item_id = $1`, itemUUID)
		if err != nil {
			log.Printf("loading old images: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update item images"})
		}
		for rows.Next() {
			var publicID string
			if err := rows.Scan(&publicID); err == nil {
				releasedIDs = append(releasedIDs, publicID)
			}
		}
		rows.Close()

		_, err = tx.Exec(ctx, `DELETE FROM item_images WHERE item_id = $1`, itemUUID)
		if err != nil {
			log.Printf("deleting old images: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update item images"})
		}

		for position, img := range *requestData.Images {
			_, err = tx.Exec(ctx, `
                INSERT INTO item_images (id, item_id, url, preview_url, public_id, file_name, is_main, position)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
            `, uuid.New(), itemUUID, img.URL, img.PreviewURL, img.PublicID, img.FileName, img.IsMain, position)

			if err != nil {
				log.Printf("saving item image: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save item images"})
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		log.Printf("committing transaction: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	if len(releasedIDs) > 0 {
		go s.images.DestroyImages(context.Background(), releasedIDs)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"item_id": itemUUID,
	})
}

// SetAvailability lets the owner take an item off the market and repost it
func (s *ItemService) SetAvailability(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	itemUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item ID"})
	}

	var requestData struct {
		Available bool `json:"available"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("decoding request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request data"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var ownerID uuid.UUID
	var status string
	err = db.Pool.QueryRow(ctx, `
        SELECT user_id, status FROM items WHERE id = $1 AND deleted_at IS NULL
    `, itemUUID).Scan(&ownerID, &status)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Item not found"})
		}
		log.Printf("checking item ownership: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to load the item", "retryable": true})
	}

	if ownerID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only manage your own items"})
	}

	// Traded items never come back on the market.
	if status == models.ItemStatusTraded {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Traded items cannot be relisted"})
	}

	newStatus := models.ItemStatusUnavailable
	if requestData.Available {
		newStatus = models.ItemStatusAvailable
	}

	_, err = db.Pool.Exec(ctx, `
        UPDATE items
        SET is_available = $1, status = $2, updated_at = NOW()
        WHERE id = $3
    `, requestData.Available, newStatus, itemUUID)

	if err != nil {
		log.Printf("updating item availability: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update the item"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"item_id": itemUUID,
		"status":  newStatus,
	})
}

// DeleteItem soft-deletes the caller's item and releases its image blobs
func (s *ItemService) DeleteItem(c fiber.Ctx) error {
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

	var ownerID uuid.UUID
	err = db.Pool.QueryRow(ctx, `
        SELECT user_id FROM items WHERE id = $1 AND deleted_at IS NULL
    `, itemUUID).Scan(&ownerID)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Item not found"})
		}
		log.Printf("checking item ownership: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to load the item", "retryable": true})
	}

	if ownerID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You can only delete your own items"})
	}

	var releasedIDs []string
	rows, err := db.Pool.Query(ctx, `SELECT public_id FROM item_images WHERE item_id = $1`, itemUUID)
	if err != nil {
		log.Printf("loading item images: %v", err)
	} else {
		for rows.Next() {
			var publicID string
			if err := rows.Scan(&publicID); err == nil {
				releasedIDs = append(releasedIDs, publicID)
			}
		}
		rows.Close()
	}

	_, err = db.Pool.Exec(ctx, `
        UPDATE items
        SET deleted_at = NOW(), is_available = false, updated_at = NOW()
        WHERE id = $1
    `, itemUUID)

	if err != nil {
		log.Printf("deleting item: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete the item"})
	}

	if len(releasedIDs) > 0 {
		go s.images.DestroyImages(context.Background(), releasedIDs)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"item_id": itemUUID,
	})
}

// loadItemImages fetches an item's images in display order
func loadItemImages(ctx context.Context, itemID uuid.UUID) []models.ItemImage {
	rows, err := db.Pool.Query(ctx, `
        SELECT id, url, preview_url, public_id, is_main, position
        FROM item_images
        WHERE item_id = $1
        ORDER BY position ASC
    `, itemID)
	if err != nil {
		log.Printf("loading images for item %s: %v", itemID, err)
		return nil
	}
	defer rows.Close()

	var images []models.ItemImage
	for rows.Next() {
		var image models.ItemImage
		if err := rows.Scan(&image.ID, &image.URL, &image.PreviewURL, &image.PublicID, &image.IsMain, &image.Position); err != nil {
			log.Printf("scanning image row: %v", err)
			continue
		}
		image.ItemID = itemID
		images = append(images, image)
	}
	return images
}

// loadUserInfo fetches a user's public profile
func loadUserInfo(ctx context.Context, userID uuid.UUID) *models.User {
	var user models.User
	err := db.Pool.QueryRow(ctx, `
        SELECT id, username, first_name, last_name, avatar_url
        FROM users
        WHERE id = $1
    `, userID).Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.AvatarURL,
	)

	if err != nil {
		log.Printf("loading user %s: %v", userID, err)
		return nil
	}

	return &user
}
