package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/mudassarbajwa49/eRoyal-sub000/internal/config"
)

// IS3Storage defines the interface for S3 upload operations. Clients upload
// payment proofs and listing images directly via presigned PUT URLs; the
// backend only ever stores the resulting object keys.
type IS3Storage interface {
	PresignPaymentProofUpload(ctx context.Context, residentID, billID, filename, contentType string) (string, string, error)
	PresignListingImageUpload(ctx context.Context, sellerID, listingID, filename, contentType string) (string, string, error)
}

// s3Storage implements IS3Storage.
type s3Storage struct {
	cfg           *config.Config
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

// NewS3Storage creates a new S3 storage service.
func NewS3Storage(cfg *config.Config) (IS3Storage, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(),
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"", // session token
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	presignClient := s3.NewPresignClient(s3Client)

	return &s3Storage{
		cfg:           cfg,
		s3Client:      s3Client,
		presignClient: presignClient,
	}, nil
}

// sanitizeFilename keeps only the base name, replacing path separators and
// whitespace so the key stays flat.
func sanitizeFilename(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	return strings.ReplaceAll(name, " ", "_")
}

func (s *s3Storage) presign(ctx context.Context, objectKey, contentType string) (string, error) {
	expiration := 15 * time.Minute
	presignParams := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}
	presignedReq, err := s.presignClient.PresignPutObject(ctx, presignParams, s3.WithPresignExpires(expiration))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", objectKey, err)
	}
	return presignedReq.URL, nil
}

// PresignPaymentProofUpload creates a presigned PUT URL for a payment-proof
// file. Returns the URL and the S3 object key to record on the bill.
func (s *s3Storage) PresignPaymentProofUpload(ctx context.Context, residentID, billID, filename, contentType string) (string, string, error) {
	objectKey := fmt.Sprintf("proofs/%s/%s/%s_%s", residentID, billID, uuid.NewString(), sanitizeFilename(filename))
	url, err := s.presign(ctx, objectKey, contentType)
	if err != nil {
		return "", "", err
	}
	return url, objectKey, nil
}

// PresignListingImageUpload creates a presigned PUT URL for a marketplace
// listing image. Returns the URL and the S3 object key.
func (s *s3Storage) PresignListingImageUpload(ctx context.Context, sellerID, listingID, filename, contentType string) (string, string, error) {
	objectKey := fmt.Sprintf("listings/%s/%s/%s_%s", sellerID, listingID, uuid.NewString(), sanitizeFilename(filename))
	url, err := s.presign(ctx, objectKey, contentType)
	if err != nil {
		return "", "", err
	}
	return url, objectKey, nil
}
