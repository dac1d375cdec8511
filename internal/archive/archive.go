// Package archive stores simulation reports in S3-compatible object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ObjectStore is the subset of *minio.Client the archiver uses.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Options configure the object storage connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Archiver uploads CSV reports, creating the bucket on first use.
type Archiver struct {
	store  ObjectStore
	bucket string
	region string
	logger *zap.Logger

	mu          sync.Mutex
	bucketReady bool
}

// NewClient creates a MinIO client from opts.
func NewClient(opts Options) (*minio.Client, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return client, nil
}

// NewArchiver creates an archiver writing to bucket.
func NewArchiver(store ObjectStore, bucket, region string, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{store: store, bucket: bucket, region: region, logger: logger}
}

// ObjectName returns the object key a simulation's report is stored under.
func ObjectName(code string) string {
	return "reports/" + code + ".csv"
}

// Archive uploads report for the simulation code and returns the object name.
func (a *Archiver) Archive(ctx context.Context, code string, report []byte) (string, error) {
	if err := a.ensureBucket(ctx); err != nil {
		return "", err
	}

	name := ObjectName(code)
	info, err := a.store.PutObject(ctx, a.bucket, name, bytes.NewReader(report), int64(len(report)),
		minio.PutObjectOptions{
			ContentType:  "text/csv",
			UserMetadata: map[string]string{"reference-code": code},
		})
	if err != nil {
		return "", fmt.Errorf("failed to upload report %s: %w", name, err)
	}
	a.logger.Debug("report archived",
		zap.String("op", "archive.Archive"),
		zap.String("bucket", a.bucket),
		zap.String("object", name),
		zap.Int64("size", info.Size),
	)
	return name, nil
}

func (a *Archiver) ensureBucket(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bucketReady {
		return nil
	}

	exists, err := a.store.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", a.bucket, err)
	}
	if !exists {
		if err := a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
		}
		a.logger.Info("bucket created", zap.String("op", "archive.ensureBucket"), zap.String("bucket", a.bucket))
	}
	a.bucketReady = true
	return nil
}
