package aws

import (
	"discussion/pkg/config"
	"fmt"
	"time"

	"github.com/gofiber/storage/s3/v2"
)

// RevisionStorage is the subset of the storage driver the archive needs.
type RevisionStorage interface {
	Set(key string, val []byte, exp time.Duration) error
}

// S3Archive keeps the previous body of every edited comment.
type S3Archive struct {
	bucket RevisionStorage
}

func NewS3Bucket(appConfig *config.AppConfig) *s3.Storage {
	return s3.New(s3.Config{
		Endpoint: appConfig.AWSEndpoint,
		Bucket:   appConfig.AWSBucket,
		Region:   appConfig.AWSDefaultRegion,
		Credentials: s3.Credentials{
			AccessKey:       appConfig.AWSAccessKey,
			SecretAccessKey: appConfig.AWSSecretKey,
		},
		MaxAttempts:    3,
		RequestTimeout: time.Second * 10,
		Reset:          false,
	})
}

func NewS3Archive(bucket RevisionStorage) *S3Archive {
	return &S3Archive{
		bucket: bucket,
	}
}

func RevisionKey(commentID string, at time.Time) string {
	return fmt.Sprintf("comments/%s/revisions/%d.md", commentID, at.UnixNano())
}

// ArchiveRevision stores body as the revision of commentID replaced at at.
// Revisions never expire.
func (a *S3Archive) ArchiveRevision(commentID, body string, at time.Time) (string, error) {
	key := RevisionKey(commentID, at)
	if err := a.bucket.Set(key, []byte(body), 0); err != nil {
		return "", fmt.Errorf("failed to archive revision %s: %w", key, err)
	}
	return key, nil
}
