package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds configuration for S3Store.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // Optional custom endpoint (MinIO, LocalStack)
	Prefix   string // Optional key prefix
}

// S3Store is a Store backed by an S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store creates an S3-backed artifact store using the default AWS
// credential chain.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket cannot be empty")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client *s3.Client, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) key(caseID, name string) string {
	return s.prefix + path.Join("runs", caseID, name)
}

// Put implements Store.
func (s *S3Store) Put(ctx context.Context, caseID, name string, data []byte) (*Ref, error) {
	if err := validateKey(caseID, name); err != nil {
		return nil, err
	}
	key := s.key(caseID, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, NewStorageError("s3", "put", err)
	}
	return newRef(caseID, name, fmt.Sprintf("s3://%s/%s", s.bucket, key), data), nil
}

// Get implements Store.
func (s *S3Store) Get(ctx context.Context, caseID, name string) ([]byte, error) {
	if err := validateKey(caseID, name); err != nil {
		return nil, err
	}
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(caseID, name)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, NewStorageError("s3", "get", err)
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, NewStorageError("s3", "get", err)
	}
	return data, nil
}

// List implements Store.
func (s *S3Store) List(ctx context.Context, caseID string) ([]Ref, error) {
	if err := validateKey(caseID, "list"); err != nil {
		return nil, err
	}
	prefix := s.prefix + path.Join("runs", caseID) + "/"

	var refs []Ref
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, NewStorageError("s3", "list", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := strings.TrimPrefix(key, prefix)
			data, err := s.Get(ctx, caseID, name)
			if err != nil {
				return nil, err
			}
			ref := newRef(caseID, name, fmt.Sprintf("s3://%s/%s", s.bucket, key), data)
			if obj.LastModified != nil {
				ref.CreatedAt = obj.LastModified.UTC()
			}
			refs = append(refs, *ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// Ping implements Store.
func (s *S3Store) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return NewStorageError("s3", "ping", err)
	}
	return nil
}
