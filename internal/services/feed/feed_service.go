package feed

import (
	"context"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/barterly/barter-api/internal/config"
	"github.com/barterly/barter-api/internal/db"
	"github.com/barterly/barter-api/internal/models"
	"github.com/barterly/barter-api/internal/utils"
)

// FeedService serves the discovery feed of tradeable items
type FeedService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewFeedService creates a new FeedService
func NewFeedService(cfg *config.Config) *FeedService {
	return &FeedService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// GetFeed returns a page of other users' available items, excluding anything
// the viewer has already swiped this session or already has a live trade on
func (s *FeedService) GetFeed(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	viewerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	exclude := ParseExcludeSet(c.Query("exclude"))
	matchValue := c.Query("match_value") == "true"

	var radiusKm float64
	if raw := c.Query("radius_km"); raw != "" {
		radiusKm, err = strconv.ParseFloat(raw, 64)
		if err != nil || radiusKm <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid radius"})
		}
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// The viewer's own coordinates, for the optional radius filter.
	var viewerLat, viewerLon *float64
	err = db.Pool.QueryRow(ctx, `
        SELECT latitude, longitude FROM users WHERE id = $1
    `, viewerID).Scan(&viewerLat, &viewerLon)
	if err != nil {
		log.Printf("loading viewer %s: %v", viewerID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to load the feed", "retryable": true, "items": []models.Item{},
		})
	}

	// The viewer's own listed values, for the optional value filter.
	var ownValues []float64
	if matchValue {
		rows, err := db.Pool.Query(ctx, `
            SELECT estimated_value FROM items
            WHERE user_id = $1 AND is_available = true AND deleted_at IS NULL
        `, viewerID)
		if err != nil {
			log.Printf("loading viewer items: %v", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Failed to load the feed", "retryable": true, "items": []models.Item{},
			})
		}
		for rows.Next() {
			var v float64
			if err := rows.Scan(&v); err == nil {
				ownValues = append(ownValues, v)
			}
		}
		rows.Close()
	}

	if exclude == nil {
		exclude = []uuid.UUID{}
	}

	rows, err := db.Pool.Query(ctx, `
        SELECT i.id, i.user_id, i.title, i.description, i.condition, i.estimated_value,
               i.is_available, i.status, i.created_at, i.updated_at,
               u.username, u.first_name, u.last_name, u.avatar_url, u.latitude, u.longitude
        FROM items i
        JOIN users u ON i.user_id = u.id
        WHERE i.user_id != $1
          AND i.is_available = true
          AND i.deleted_at IS NULL
          AND NOT (i.id = ANY($2))
          AND NOT EXISTS (
              SELECT 1 FROM trade_requests t
              WHERE t.requester_id = $1 AND t.target_item_id = i.id
                AND t.status IN ('pending', 'accepted')
          )
          AND NOT EXISTS (
              SELECT 1 FROM trade_requests t
              WHERE t.status = 'accepted'
                AND (t.target_item_id = i.id OR t.requester_item_id = i.id)
          )
        ORDER BY i.created_at DESC
        LIMIT $3 OFFSET $4
    `, viewerID, exclude, limit, offset)

	if err != nil {
		log.Printf("querying feed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to load the feed", "retryable": true, "items": []models.Item{},
		})
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var item models.Item
		var owner models.User
		var ownerLat, ownerLon *float64

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
			&owner.Username,
			&owner.FirstName,
			&owner.LastName,
			&owner.AvatarURL,
			&ownerLat,
			&ownerLon,
		); err != nil {
			log.Printf("scanning feed row: %v", err)
			continue
		}
		owner.ID = item.UserID
		item.Owner = &owner

		if matchValue && !ValueCompatible(item.EstimatedValue, ownValues) {
			continue
		}

		if radiusKm > 0 {
			// Items without coordinates on either side fall outside any
			// radius-filtered feed.
			if viewerLat == nil || viewerLon == nil || ownerLat == nil || ownerLon == nil {
				continue
			}
			if HaversineKm(*viewerLat, *viewerLon, *ownerLat, *ownerLon) > radiusKm {
				continue
			}
		}

		item.Images = loadItemImages(ctx, item.ID)
		items = append(items, item)
	}

	return c.JSON(fiber.Map{
		"items": items,
		"count": len(items),
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
