package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/barterly/barter-api/internal/config"
	"github.com/barterly/barter-api/internal/utils"
)

// CloudinaryService signs client uploads and removes released image blobs
type CloudinaryService struct {
	cfg          *config.Config
	jwtService   *utils.JWTService
	client       *cloudinary.Cloudinary
	uploadFolder string
	uploadPreset string
}

// NewCloudinaryService creates a new CloudinaryService
func NewCloudinaryService(cfg *config.Config) (*CloudinaryService, error) {
	client, err := cloudinary.NewFromParams(
		cfg.CloudinaryConfig.CloudName,
		cfg.CloudinaryConfig.APIKey,
		cfg.CloudinaryConfig.APISecret,
	)
	if err != nil {
		return nil, fmt.Errorf("initializing cloudinary client: %w", err)
	}

	return &CloudinaryService{
		cfg:          cfg,
		jwtService:   utils.NewJWTService(cfg.JWTSecret),
		client:       client,
		uploadFolder: cfg.CloudinaryConfig.UploadFolder,
		uploadPreset: cfg.CloudinaryConfig.UploadPreset,
	}, nil
}

// GenerateSignature builds the signature Cloudinary expects for a direct upload
func (s *CloudinaryService) GenerateSignature(params map[string]string) string {
	var keys []string
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var signParts []string
	for _, k := range keys {
		signParts = append(signParts, fmt.Sprintf("%s=%s", k, params[k]))
	}
	signatureString := strings.Join(signParts, "&")
	signatureString += s.cfg.CloudinaryConfig.APISecret

	h := sha1.New()
	h.Write([]byte(signatureString))

	return hex.EncodeToString(h.Sum(nil))
}

// GenerateUploadParams returns signed parameters for a direct client upload
func (s *CloudinaryService) GenerateUploadParams(c fiber.Ctx) error {
	itemID := c.Query("item_id")
	if itemID == "" {
		itemID = uuid.New().String()
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	params := map[string]string{
		"timestamp":     timestamp,
		"folder":        s.uploadFolder,
		"upload_preset": s.uploadPreset,
	}

	signature := s.GenerateSignature(params)

	return c.JSON(fiber.Map{
		"timestamp":     timestamp,
		"signature":     signature,
		"api_key":       s.cfg.CloudinaryConfig.APIKey,
		"cloud_name":    s.cfg.CloudinaryConfig.CloudName,
		"folder":        s.uploadFolder,
		"upload_preset": s.uploadPreset,
		"item_id":       itemID,
	})
}

// DestroyImages removes uploaded blobs by public ID. Cleanup is best-effort:
// failures are logged and never abort the caller's operation.
func (s *CloudinaryService) DestroyImages(ctx context.Context, publicIDs []string) {
	for _, publicID := range publicIDs {
		if publicID == "" {
			continue
		}
		_, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
		if err != nil {
			log.Printf("destroying cloudinary asset %s: %v", publicID, err)
		}
	}
}
