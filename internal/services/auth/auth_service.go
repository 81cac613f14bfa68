package auth

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/barterly/barter-api/internal/config"
	"github.com/barterly/barter-api/internal/db"
	"github.com/barterly/barter-api/internal/models"
	"github.com/barterly/barter-api/internal/utils"
)

const minPasswordLength = 8

// AuthService handles registration, login and profile access
type AuthService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewAuthService creates a new AuthService
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

func publicUser(a *db.Account) *models.User {
	return &models.User{
		ID:        a.ID,
		Username:  a.Username,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		AvatarURL: a.AvatarURL,
		Bio:       a.Bio,
		Location:  a.Location,
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
		CreatedAt: a.CreatedAt,
	}
}

// Register creates a new account and issues a token
func (s *AuthService) Register(c fiber.Ctx) error {
	var requestData struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("decoding request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request data"})
	}

	email := strings.ToLower(strings.TrimSpace(requestData.Email))
	username := strings.TrimSpace(requestData.Username)

	if email == "" || !strings.Contains(email, "@") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "A valid email is required"})
	}
	if username == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Username is required"})
	}
	if len(requestData.Password) < minPasswordLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Password must be at least 8 characters"})
	}

	taken, err := db.AccountExists(email, username)
	if err != nil {
		log.Printf("checking account existence: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Registration failed"})
	}
	if taken {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email or username is already in use"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(requestData.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("hashing password: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Registration failed"})
	}

	account, err := db.CreateAccount(email, string(hash), username)
	if err != nil {
		log.Printf("creating account: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Registration failed"})
	}

	token, err := s.jwtService.GenerateToken(account.ID.String())
	if err != nil {
		log.Printf("generating token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Registration failed"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  publicUser(account),
	})
}

// Login verifies credentials and issues a token
func (s *AuthService) Login(c fiber.Ctx) error {
	var requestData struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("decoding request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request data"})
	}

	email := strings.ToLower(strings.TrimSpace(requestData.Email))

	account, err := db.GetAccountByEmail(email)
	if err != nil {
		if errors.Is(err, db.ErrAccountNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
		}
		log.Printf("loading account: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(requestData.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}

	if err := db.TouchLastLogin(account.ID); err != nil {
		log.Printf("recording login time: %v", err)
	}

	token, err := s.jwtService.GenerateToken(account.ID.String())
	if err != nil {
		log.Printf("generating token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  publicUser(account),
	})
}

// Me returns the caller's profile
func (s *AuthService) Me(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	account, err := db.GetAccountByID(userUUID)
	if err != nil {
		if errors.Is(err, db.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		log.Printf("loading account: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to load the profile", "retryable": true})
	}

	return c.JSON(fiber.Map{"user": publicUser(account)})
}

// UpdateProfile updates the caller's profile fields
func (s *AuthService) UpdateProfile(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var requestData struct {
		FirstName string   `json:"first_name"`
		LastName  string   `json:"last_name"`
		Bio       string   `json:"bio"`
		Location  string   `json:"location"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}

	if err := c.Bind().Body(&requestData); err != nil {
		log.Printf("decoding request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request data"})
	}

	if (requestData.Latitude == nil) != (requestData.Longitude == nil) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Latitude and longitude must be set together"})
	}
	if requestData.Latitude != nil {
		if *requestData.Latitude < -90 || *requestData.Latitude > 90 ||
			*requestData.Longitude < -180 || *requestData.Longitude > 180 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Coordinates are out of range"})
		}
	}

	account, err := db.UpdateAccountProfile(userUUID,
		requestData.FirstName, requestData.LastName, requestData.Bio,
		requestData.Location, requestData.Latitude, requestData.Longitude)

	if err != nil {
		if errors.Is(err, db.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		log.Printf("updating profile: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update the profile"})
	}

	return c.JSON(fiber.Map{"user": publicUser(account)})
}
