package friendship

import (
	"context"
	"log"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/barterly/barter-api/internal/apperrors"
	"github.com/barterly/barter-api/internal/config"
	"github.com/barterly/barter-api/internal/db"
	"github.com/barterly/barter-api/internal/models"
	"github.com/barterly/barter-api/internal/social"
	"github.com/barterly/barter-api/internal/utils"
)

// FriendshipService exposes the friendship lifecycle over HTTP
type FriendshipService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	engine     *social.Engine
}

// NewFriendshipService creates a new FriendshipService
func NewFriendshipService(cfg *config.Config, engine *social.Engine) *FriendshipService {
	return &FriendshipService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		engine:     engine,
	}
}

// SendRequest creates a pending friend request
func (s *FriendshipService) SendRequest(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	requesterID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var requestData struct {
		UserID string `json:"user_id"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("decoding request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request data"})
	}

	if requestData.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID is required"})
	}

	addresseeID, err := uuid.Parse(requestData.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	var exists bool
	err = db.Pool.QueryRow(ctx, `
        SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND is_active = true)
    `, addresseeID).Scan(&exists)
	if err != nil {
		log.Printf("checking user: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check the user"})
	}
	if !exists {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	f, err := s.engine.Request(ctx, requesterID, addresseeID)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"friendship": f,
	})
}

// RespondToRequest lets the addressee accept, decline, or block
func (s *FriendshipService) RespondToRequest(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	responderID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	friendshipID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid friendship ID"})
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

	f, err := s.engine.Respond(ctx, friendshipID, responderID, requestData.Status)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"friendship": f,
	})
}

// GetFriends returns the caller's accepted friendships
func (s *FriendshipService) GetFriends(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
        SELECT f.id, f.requester_id, f.addressee_id, f.status, f.created_at, f.responded_at
        FROM friendships f
        WHERE (f.requester_id = $1 OR f.addressee_id = $1) AND f.status = 'accepted'
        ORDER BY f.responded_at DESC NULLS LAST
    `, userUUID)

	if err != nil {
		log.Printf("querying friendships: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to load friends", "retryable": true, "friends": []models.Friendship{},
		})
	}
	defer rows.Close()

	friends := s.scanFriendships(ctx, rows, userUUID)

	return c.JSON(fiber.Map{
		"friends": friends,
		"count":   len(friends),
	})
}

// GetPendingRequests returns pending requests, incoming by default
func (s *FriendshipService) GetPendingRequests(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	direction := c.Query("direction", "incoming") // incoming, outgoing

	query := `
        SELECT f.id, f.requester_id, f.addressee_id, f.status, f.created_at, f.responded_at
        FROM friendships f
        WHERE f.addressee_id = $1 AND f.status = 'pending'
        ORDER BY f.created_at DESC
    `
	if direction == "outgoing" {
		query = `
            SELECT f.id, f.requester_id, f.addressee_id, f.status, f.created_at, f.responded_at
            FROM friendships f
            WHERE f.requester_id = $1 AND f.status = 'pending'
            ORDER BY f.created_at DESC
        `
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, query, userUUID)
	if err != nil {
		log.Printf("querying friend requests: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to load friend requests", "retryable": true, "requests": []models.Friendship{},
		})
	}
	defer rows.Close()

	requests := s.scanFriendships(ctx, rows, userUUID)

	return c.JSON(fiber.Map{
		"requests": requests,
		"count":    len(requests),
	})
}

// SearchUsers finds users by username, excluding the caller and anyone
// already tied to them by a non-declined friendship
func (s *FriendshipService) SearchUsers(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	queryStr := strings.TrimSpace(c.Query("q"))
	if queryStr == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Search query is required"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, `
        SELECT u.id, u.username, u.first_name, u.last_name, u.avatar_url
        FROM users u
        WHERE u.is_active = true
          AND u.id != $1
          AND u.username ILIKE $2
          AND NOT EXISTS (
              SELECT 1 FROM friendships f
              WHERE ((f.requester_id = $1 AND f.addressee_id = u.id)
                  OR (f.requester_id = u.id AND f.addressee_id = $1))
                AND f.status != 'declined'
          )
        ORDER BY u.username ASC
        LIMIT 20
    `, userUUID, "%"+queryStr+"%")

	if err != nil {
		log.Printf("searching users: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to search users", "retryable": true, "users": []models.User{},
		})
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.AvatarURL); err != nil {
			log.Printf("scanning user row: %v", err)
			continue
		}
		users = append(users, user)
	}

	return c.JSON(fiber.Map{
		"users": users,
		"count": len(users),
	})
}

// rowsScanner is the subset of pgx.Rows the scan helper needs
type rowsScanner interface {
	Next() bool
	Scan(dest ...any) error
}

// scanFriendships reads friendship rows and annotates both participants
func (s *FriendshipService) scanFriendships(ctx context.Context, rows rowsScanner, viewerID uuid.UUID) []models.Friendship {
	friendships := []models.Friendship{}
	for rows.Next() {
		var f models.Friendship
		if err := rows.Scan(&f.ID, &f.RequesterID, &f.AddresseeID, &f.Status, &f.CreatedAt, &f.RespondedAt); err != nil {
			log.Printf("scanning friendship row: %v", err)
			continue
		}
		f.Requester = s.getUserInfo(ctx, f.RequesterID)
		f.Addressee = s.getUserInfo(ctx, f.AddresseeID)
		friendships = append(friendships, f)
	}
	return friendships
}

// getUserInfo fetches a user's public profile
func (s *FriendshipService) getUserInfo(ctx context.Context, userID uuid.UUID) *models.User {
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
