// Package storage archives uploaded spreadsheets to S3.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// FolderRegistrations is the S3 prefix for registration uploads
	FolderRegistrations = "uploads/registration"
	// FolderLeaders is the S3 prefix for leader uploads
	FolderLeaders = "uploads/leader"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Uploader is the subset of the S3 upload manager used by the archive
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Archive stores a copy of every uploaded spreadsheet
type Archive struct {
	uploader Uploader
	bucket   string
	logger   *zap.Logger
	now      func() time.Time
}

// NewArchive creates an S3 archive for bucket using the default credential chain.
// It returns nil when bucket is empty; a nil *Archive discards uploads.
func NewArchive(ctx context.Context, region, bucket string, logger *zap.Logger) (*Archive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bucket == "" {
		logger.Info("upload archive disabled: S3_ARCHIVE_BUCKET not configured")
		return nil, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	uploader := manager.NewUploader(s3.NewFromConfig(awsCfg), func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
	})

	logger.Info("upload archive enabled", zap.String("bucket", bucket), zap.String("region", region))
	return NewArchiveWithUploader(uploader, bucket, logger), nil
}

// NewArchiveWithUploader creates an archive around an existing uploader
func NewArchiveWithUploader(uploader Uploader, bucket string, logger *zap.Logger) *Archive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{uploader: uploader, bucket: bucket, logger: logger, now: time.Now}
}

// ObjectKey builds folder/YYYY/MM/DD/<uuid>-<filename>
func (a *Archive) ObjectKey(folder, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload.xlsx"
	}
	return path.Join(folder, a.now().UTC().Format("2006/01/02"), uuid.NewString()+"-"+name)
}

// Store uploads body under folder and returns the object key
func (a *Archive) Store(ctx context.Context, folder, filename string, body io.Reader) (string, error) {
	if a == nil {
		return "", nil
	}

	key := a.ObjectKey(folder, filename)
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(xlsxContentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}

	a.logger.Info("upload archived", zap.String("bucket", a.bucket), zap.String("key", key))
	return key, nil
}
