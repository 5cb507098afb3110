package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

type S3Store struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Store uses the default AWS credential chain. A custom endpoint (for
// MinIO and friends) is read from AWS_ENDPOINT_URL_S3 and switches to
// path-style addressing.
func NewS3Store(root *url.URL) (*S3Store, error) {
	if root.Host == "" {
		return nil, errors.New("s3 artifact root needs a bucket")
	}

	config := aws.NewConfig()
	if endpoint := os.Getenv("AWS_ENDPOINT_URL_S3"); endpoint != "" {
		config = config.WithEndpoint(endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *config,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}

	return &S3Store{
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   root.Host,
		prefix:   strings.Trim(root.Path, "/"),
	}, nil
}

func (s *S3Store) key(id string) string {
	return path.Join(s.prefix, id)
}

func (s *S3Store) Put(ctx context.Context, data []byte, meta Metadata) (string, error) {
	id := idFor(data, meta)

	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
		Body:   bytes.NewReader(data),
		Metadata: map[string]*string{
			"filename": aws.String(meta.Filename),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact %s: %w", id, err)
	}

	return id, nil
}

func (s *S3Store) Get(ctx context.Context, id string) ([]byte, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	output, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var awsErr awserr.Error
		if errors.As(err, &awsErr) && awsErr.Code() == s3.ErrCodeNoSuchKey {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		return nil, fmt.Errorf("failed to download artifact %s: %w", id, err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", id, err)
	}

	return data, nil
}
