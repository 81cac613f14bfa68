package trade

import (
	"context"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/barterly/barter-api/internal/apperrors"
	"github.com/barterly/barter-api/internal/config"
	"github.com/barterly/barter-api/internal/db"
	"github.com/barterly/barter-api/internal/models"
	"github.com/barterly/barter-api/internal/trading"
	"github.com/barterly/barter-api/internal/utils"
)

// TradeService exposes the trade request lifecycle over HTTP
type TradeService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	engine     *trading.Engine
}

// NewTradeService creates a new TradeService
func NewTradeService(cfg *config.Config, engine *trading.Engine) *TradeService {
	return &TradeService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		engine:     engine,
	}
}

// CreateTrade creates a new trade request
func (s *TradeService) CreateTrade(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	requesterID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var requestData struct {
		TargetItemID  string `json:"target_item_id"`
		OfferedItemID string `json:"offered_item_id"`
		Message       string `json:"message"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("decoding request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request data"})
	}

	if requestData.TargetItemID == "" || requestData.OfferedItemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Both item IDs are required"})
	}

	targetItemID, err := uuid.Parse(requestData.TargetItemID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid target item ID"})
	}

	offeredItemID, err := uuid.Parse(requestData.OfferedItemID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid offered item ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	req, err := s.engine.Create(ctx, requesterID, offeredItemID, targetItemID, requestData.Message)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"trade":   req,
	})
}

// UpdateTradeStatus lets the target accept or decline a request
func (s *TradeService) UpdateTradeStatus(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	responderID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	tradeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid trade ID"})
	}

	var requestData struct {
		Status string `json:"status"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("decoding request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request data"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	req, err := s.engine.Respond(ctx, tradeID, responderID, requestData.Status)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"trade":   req,
	})
}

// GetMyTrades returns the caller's trade requests with item and user details
func (s *TradeService) GetMyTrades(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	tradeType := c.Query("type", "all") // incoming, outgoing, all
	status := c.Query("status", "all")

	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 50 {
			limit = parsed
		}
	}
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	query := `
        SELECT t.id, t.requester_id, t.requester_item_id, t.target_id, t.target_item_id,
               t.status, t.note, t.created_at, t.updated_at, c.id
        FROM trade_requests t
        LEFT JOIN conversations c ON c.trade_request_id = t.id
        WHERE 1=1
    `
	args := []interface{}{}
	argIndex := 1

	switch tradeType {
	case "incoming":
		query += ` AND t.target_id = $` + strconv.Itoa(argIndex)
		args = append(args, userUUID)
		argIndex++
	case "outgoing":
		query += ` AND t.requester_id = $` + strconv.Itoa(argIndex)
		args = append(args, userUUID)
		argIndex++
	default:
		query += ` AND (t.requester_id = $` + strconv.Itoa(argIndex) + ` OR t.target_id = $` + strconv.Itoa(argIndex) + `)`
		args = append(args, userUUID)
		argIndex++
	}

	if status != "all" {
		query += ` AND t.status = $` + strconv.Itoa(argIndex)
		args = append(args, status)
		argIndex++
	}

	query += ` ORDER BY t.created_at DESC LIMIT $` + strconv.Itoa(argIndex) + ` OFFSET $` + strconv.Itoa(argIndex+1)
	args = append(args, limit, offset)

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("querying trades: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to load trades", "retryable": true, "trades": []models.TradeRequest{},
		})
	}
	defer rows.Close()

	trades := []models.TradeRequest{}
	for rows.Next() {
		var t models.TradeRequest
		if err := rows.Scan(
			&t.ID,
			&t.RequesterID,
			&t.RequesterItemID,
			&t.TargetID,
			&t.TargetItemID,
			&t.Status,
			&t.Note,
			&t.CreatedAt,
			&t.UpdatedAt,
			&t.ConversationID,
		); err != nil {
			log.Printf("scanning trade row: %v", err)
			continue
		}

		t.RequesterItem = s.getItemInfo(ctx, t.RequesterItemID)
		t.TargetItem = s.getItemInfo(ctx, t.TargetItemID)
		t.Requester = s.getUserInfo(ctx, t.RequesterID)
		t.Target = s.getUserInfo(ctx, t.TargetID)

		trades = append(trades, t)
	}

	return c.JSON(fiber.Map{
		"trades": trades,
		"count":  len(trades),
	})
}

// GetTrade returns one trade request visible to its participants
func (s *TradeService) GetTrade(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	tradeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid trade ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var t models.TradeRequest
	err = db.Pool.QueryRow(ctx, `
        SELECT t.id, t.requester_id, t.requester_item_id, t.target_id, t.target_item_id,
               t.status, t.note, t.created_at, t.updated_at, c.id
        FROM trade_requests t
        LEFT JOIN conversations c ON c.trade_request_id = t.id
        WHERE t.id = $1
    `, tradeID).Scan(
		&t.ID,
		&t.RequesterID,
		&t.RequesterItemID,
		&t.TargetID,
		&t.TargetItemID,
		&t.Status,
		&t.Note,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.ConversationID,
	)

	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Trade request not found"})
	}

	if t.RequesterID != userUUID && t.TargetID != userUUID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not part of this trade"})
	}

	t.RequesterItem = s.getItemInfo(ctx, t.RequesterItemID)
	t.TargetItem = s.getItemInfo(ctx, t.TargetItemID)
	t.Requester = s.getUserInfo(ctx, t.RequesterID)
	t.Target = s.getUserInfo(ctx, t.TargetID)

	return c.JSON(fiber.Map{"trade": t})
}

// getItemInfo fetches a trade item summary with its images
func (s *TradeService) getItemInfo(ctx context.Context, itemID uuid.UUID) *models.Item {
	var item models.Item
	err := db.Pool.QueryRow(ctx, `
        SELECT id, user_id, title, description, condition, estimated_value,
               is_available, status, created_at, updated_at
        FROM items
        WHERE id = $1
    `, itemID).Scan(
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
		log.Printf("loading item %s: %v", itemID, err)
		return nil
	}

	rows, err := db.Pool.Query(ctx, `
        SELECT id, url, preview_url, public_id, is_main, position
        FROM item_images
        WHERE item_id = $1
        ORDER BY position ASC
    `, itemID)
	if err == nil {
		for rows.Next() {
			var image models.ItemImage
			if err := rows.Scan(&image.ID, &image.URL, &image.PreviewURL, &image.PublicID, &image.IsMain, &image.Position); err == nil {
				image.ItemID = itemID
				item.Images = append(item.Images, image)
			}
		}
		rows.Close()
	}

	return &item
}

// getUserInfo fetches a user's public profile
func (s *TradeService) getUserInfo(ctx context.Context, userID uuid.UUID) *models.User {
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
