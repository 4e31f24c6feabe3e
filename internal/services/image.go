package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"food-rescue-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const uploadURLExpiry = 5 * time.Minute

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// S3Options configures the listing image bucket
type S3Options struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// ImageService issues pre-signed upload URLs for listing photos
type ImageService struct {
	users    UserStore
	presign  *s3.PresignClient
	bucket   string
	region   string
	endpoint string
}

// NewImageService creates a new image service
func NewImageService(ctx context.Context, users UserStore, opts S3Options) (*ImageService, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &ImageService{
		users:    users,
		presign:  s3.NewPresignClient(client),
		bucket:   opts.Bucket,
		region:   opts.Region,
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
	}, nil
}

// UploadRequest represents a request to get a pre-signed URL
type UploadRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type"`
}

// UploadResponse carries the pre-signed URL and the final public URL to
// store on the listing once the upload succeeds
type UploadResponse struct {
	UploadURL string `json:"upload_url"`
	ImageURL  string `json:"image_url"`
	ExpiresIn int    `json:"expires_in"`
}

// PresignUpload generates a pre-signed PUT for a donor's listing image
func (s *ImageService) PresignUpload(ctx context.Context, userID string, req UploadRequest) (*UploadResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.Role.CanDonate() || !user.Active {
		return nil, fmt.Errorf("only donors can upload listing images: %w", models.ErrForbidden)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported content type %q: %w", contentType, models.ErrValidation)
	}
	if e := strings.ToLower(path.Ext(req.Filename)); e == ".png" || e == ".webp" || e == ".jpg" {
		ext = e
	}

	key := fmt.Sprintf("listings/%s/%s%s", user.ID, uuid.New().String(), ext)

	request, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = uploadURLExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	return &UploadResponse{
		UploadURL: request.URL,
		ImageURL:  s.publicURL(key),
		ExpiresIn: int(uploadURLExpiry.Seconds()),
	}, nil
}

func (s *ImageService) publicURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
