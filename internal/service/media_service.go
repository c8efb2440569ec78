package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	config "github.com/maheshrc27/postsphere/configs"
	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/repository"
	"github.com/maheshrc27/postsphere/internal/transfer"
)

const MaxMediaSize = 100 << 20

var allowedMediaTypes = map[string]struct{}{
	"jpg": {}, "png": {}, "mp4": {}, "mov": {},
}

// ObjectStorage is the part of the S3 API media uploads need.
type ObjectStorage interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewR2Client returns an S3 client for the Cloudflare R2 account.
func NewR2Client(ctx context.Context, r2 config.R2) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load r2 config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID))
	}), nil
}

type MediaService interface {
	// Upload stores an image or video and returns its asset with a public URL
	// posts can reference.
	Upload(ctx context.Context, userID int64, data []byte) (*models.MediaAsset, error)
	List(ctx context.Context, userID int64, page transfer.Page) ([]*models.MediaAsset, error)
	Remove(ctx context.Context, userID, assetID int64) error
}

type mediaService struct {
	storage   ObjectStorage
	bucket    string
	publicURL string
	ma        repository.MediaAssetRepository
}

func NewMediaService(storage ObjectStorage, r2 config.R2, ma repository.MediaAssetRepository) MediaService {
	return &mediaService{
		storage:   storage,
		bucket:    r2.BucketName,
		publicURL: strings.TrimRight(r2.PublicURL, "/"),
		ma:        ma,
	}
}

func (s *mediaService) Upload(ctx context.Context, userID int64, data []byte) (*models.MediaAsset, error) {
	if len(data) == 0 {
		return nil, invalidf("file is empty")
	}
	if len(data) > MaxMediaSize {
		return nil, invalidf("file exceeds %d bytes", MaxMediaSize)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, invalidf("unsupported file type")
	}
	if _, ok := allowedMediaTypes[kind.Extension]; !ok {
		return nil, invalidf("file type %s is not allowed", kind.Extension)
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	key := id + "." + kind.Extension

	_, err = s.storage.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(kind.MIME.Value),
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("upload media: %w", err)
	}

	asset := &models.MediaAsset{
		UserID:   userID,
		FileName: key,
		FileType: kind.MIME.Value,
		FileSize: int64(len(data)),
		FileURL:  s.publicURL + "/" + key,
	}
	assetID, err := s.ma.Create(ctx, nil, asset)
	if err != nil {
		return nil, err
	}
	asset.ID = assetID
	return asset, nil
}

func (s *mediaService) List(ctx context.Context, userID int64, page transfer.Page) ([]*models.MediaAsset, error) {
	offset, limit := pageBounds(page)
	return s.ma.ListByUserID(ctx, userID, offset, limit)
}

func (s *mediaService) Remove(ctx context.Context, userID, assetID int64) error {
	asset, err := s.ma.GetByID(ctx, assetID)
	if err != nil {
		return err
	}
	if asset == nil || asset.UserID != userID {
		return notFound("media asset", assetID)
	}

	_, err = s.storage.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(asset.FileName),
	})
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("delete media: %w", err)
	}
	return s.ma.Remove(ctx, assetID)
}
