package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/carrental/car-rental-api/utils"
	"github.com/google/uuid"
)

// ImageService stores car photos
type ImageService interface {
	// UploadCarImage validates and stores a photo for carID, returning its storage key
	UploadCarImage(ctx context.Context, carID uint, fileHeader *multipart.FileHeader) (string, error)

	// GetImageURL returns a URL a client can fetch the photo from
	GetImageURL(ctx context.Context, imageKey string) (string, error)

	// DeleteImage removes a photo from storage
	DeleteImage(ctx context.Context, imageKey string) error
}

var imageServiceInstance ImageService

// GetImageService returns the initialized image service instance
func GetImageService() ImageService {
	return imageServiceInstance
}

// SetImageService sets the image service instance
func SetImageService(service ImageService) {
	imageServiceInstance = service
}

// S3ImageService implements ImageService on top of S3
type S3ImageService struct {
	s3 S3Interface
}

// NewS3ImageService creates an S3-backed image service
func NewS3ImageService(s3 S3Interface) *S3ImageService {
	return &S3ImageService{s3: s3}
}

func (s *S3ImageService) UploadCarImage(ctx context.Context, carID uint, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	key := fmt.Sprintf("cars/%d/%s%s", carID, uuid.NewString(), ext)
	if err := s.s3.PutObject(ctx, key, utils.ImageContentType(fileHeader.Filename), file); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

func (s *S3ImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}
	url, err := s.s3.GetPresignedURL(ctx, imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

func (s *S3ImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}
	if err := s.s3.DeleteObject(ctx, imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// LocalImageService keeps photos on local disk and serves them through
// GET /api/v1/uploads/:filename
type LocalImageService struct {
	dir string
}

// NewLocalImageService creates a disk-backed image service rooted at dir
func NewLocalImageService(dir string) *LocalImageService {
	return &LocalImageService{dir: dir}
}

func (s *LocalImageService) UploadCarImage(ctx context.Context, carID uint, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}
	return utils.SaveUploadedFile(fileHeader, s.dir, fmt.Sprintf("car_%d_", carID))
}

func (s *LocalImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	return utils.GetImageURL(imageKey), nil
}

func (s *LocalImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" || !utils.SafeFilename(imageKey) {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, imageKey))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
