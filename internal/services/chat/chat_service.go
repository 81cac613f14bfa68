package chat

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/barterly/barter-api/internal/apperrors"
	"github.com/barterly/barter-api/internal/config"
	"github.com/barterly/barter-api/internal/db"
	"github.com/barterly/barter-api/internal/messaging"
	"github.com/barterly/barter-api/internal/utils"
)

// ChatService exposes conversations and messages over HTTP
type ChatService struct {
	cfg         *config.Config
	jwtService  *utils.JWTService
	coordinator *messaging.Coordinator
}

// NewChatService creates a new ChatService
func NewChatService(cfg *config.Config, coordinator *messaging.Coordinator) *ChatService {
	return &ChatService{
		cfg:         cfg,
		jwtService:  utils.NewJWTService(cfg.JWTSecret),
		coordinator: coordinator,
	}
}

// GetConversations returns the caller's visible conversations
func (s *ChatService) GetConversations(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	conversations, err := s.coordinator.List(ctx, userUUID)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"conversations": conversations,
		"count":         len(conversations),
	})
}

// CreateConversation returns the conversation with another user, creating it
// if the pair has never talked
func (s *ChatService) CreateConversation(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var requestData struct {
		UserID         string `json:"user_id"`
		TradeRequestID string `json:"trade_request_id"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("decoding request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request data"})
	}

	if requestData.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID is required"})
	}

	otherUUID, err := uuid.Parse(requestData.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var tradeRequestID *uuid.UUID
	if requestData.TradeRequestID != "" {
		parsed, err := uuid.Parse(requestData.TradeRequestID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid trade request ID"})
		}
		tradeRequestID = &parsed
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	conv, created, err := s.coordinator.GetOrCreate(ctx, userUUID, otherUUID, tradeRequestID)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}

	return c.Status(status).JSON(fiber.Map{
		"conversation": conv,
		"created":      created,
	})
}

// GetMessages returns a page of conversation history, newest first
func (s *ChatService) GetMessages(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation ID"})
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var before *uuid.UUID
	if beforeStr := c.Query("before"); beforeStr != "" {
		parsed, err := uuid.Parse(beforeStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid cursor"})
		}
		before = &parsed
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	messages, err := s.coordinator.Messages(ctx, conversationID, userUUID, before, limit)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"count":    len(messages),
	})
}

// SendMessage posts a message to a conversation
func (s *ChatService) SendMessage(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation ID"})
	}

	var requestData struct {
		Text string `json:"text"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("decoding request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request data"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	msg, err := s.coordinator.Send(ctx, conversationID, userUUID, requestData.Text)
	if err != nil {
		return apperrors.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": msg,
	})
}

// MarkRead marks the other participant's messages as read
func (s *ChatService) MarkRead(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.coordinator.MarkRead(ctx, conversationID, userUUID); err != nil {
		return apperrors.Respond(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// HideConversation removes a conversation from the caller's list
func (s *ChatService) HideConversation(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	conversationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.coordinator.Hide(ctx, conversationID, userUUID); err != nil {
		return apperrors.Respond(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}
