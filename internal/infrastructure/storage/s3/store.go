package s3

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/infrastructure/resilience"
)

const checksumMetadataKey = "content-sha256"

type Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// API is the subset of the S3 client the store needs.
type API interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store keeps objects under one bucket prefix. The same type serves the
// attachment inbox (Save/Open) and the client/matter case tree
// (ListMatterFolders/Write), each with its own prefix.
type Store struct {
	api      API
	uploader *manager.Uploader
	bucket   string
	prefix   string
	executor *resilience.Executor
}

func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

func NewStore(api API, bucket, prefix string, executor *resilience.Executor) *Store {
	store := &Store{
		api:      api,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		executor: executor,
	}
	if client, ok := api.(manager.UploadAPIClient); ok {
		store.uploader = manager.NewUploader(client)
	}
	return store
}

func (s *Store) Save(ctx context.Context, key string, data io.Reader) error {
	objectKey, err := s.key(key)
	if err != nil {
		return err
	}
	if s.uploader != nil {
		_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(objectKey),
			Body:        data,
			ContentType: aws.String("application/pdf"),
		})
		if err != nil {
			return wrapTemporaryIfNeeded(fmt.Errorf("s3 upload: %w", err))
		}
		return nil
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("read upload body: %w", err)
	}
	return s.put(ctx, objectKey, body)
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey, err := s.key(key)
	if err != nil {
		return nil, err
	}
	out, err := resilience.Do(ctx, s.executor, "s3.get", func(ctx context.Context) (*s3.GetObjectOutput, error) {
		return s.api.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(objectKey),
		})
	}, classifyS3Error)
	if err != nil {
		return nil, wrapTemporaryIfNeeded(fmt.Errorf("s3 download: %w", err))
	}
	return out.Body, nil
}

// ListMatterFolders walks two levels of common prefixes: clients, then matters.
func (s *Store) ListMatterFolders(ctx context.Context) ([]domain.MatterFolder, error) {
	clients, err := s.childPrefixes(ctx, s.listPrefix(""))
	if err != nil {
		return nil, err
	}
	var folders []domain.MatterFolder
	for _, client := range clients {
		if reservedFolder(client) {
			continue
		}
		matters, err := s.childPrefixes(ctx, s.listPrefix(client))
		if err != nil {
			return nil, err
		}
		for _, matter := range matters {
			if reservedFolder(matter) {
				continue
			}
			folders = append(folders, domain.MatterFolder{Client: client, Name: matter})
		}
	}
	return folders, nil
}

// Write skips the upload when the object already carries the same checksum.
func (s *Store) Write(ctx context.Context, dir, filename string, data []byte) (domain.StoredFile, error) {
	rel := strings.Trim(dir, "/") + "/" + filename
	objectKey, err := s.key(rel)
	if err != nil {
		return domain.StoredFile{}, err
	}

	sum := checksum(data)
	head, err := resilience.Do(ctx, s.executor, "s3.head", func(ctx context.Context) (*s3.HeadObjectOutput, error) {
		return s.api.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(objectKey),
		})
	}, classifyS3Error)
	switch {
	case err == nil && head.Metadata[checksumMetadataKey] == sum:
		return domain.StoredFile{Path: rel, Duplicate: true}, nil
	case err != nil && !isNotFound(err):
		return domain.StoredFile{}, wrapTemporaryIfNeeded(fmt.Errorf("s3 head: %w", err))
	}

	if err := s.put(ctx, objectKey, data); err != nil {
		return domain.StoredFile{}, err
	}
	return domain.StoredFile{Path: rel}, nil
}

func (s *Store) put(ctx context.Context, objectKey string, data []byte) error {
	_, err := resilience.Do(ctx, s.executor, "s3.put", func(ctx context.Context) (*s3.PutObjectOutput, error) {
		return s.api.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(objectKey),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/pdf"),
			Metadata:    map[string]string{checksumMetadataKey: checksum(data)},
		})
	}, classifyS3Error)
	if err != nil {
		return wrapTemporaryIfNeeded(fmt.Errorf("s3 put: %w", err))
	}
	return nil
}

func (s *Store) childPrefixes(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapTemporaryIfNeeded(fmt.Errorf("s3 list %s: %w", prefix, err))
		}
		for _, common := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(common.Prefix), prefix), "/")
			if name != "" && !strings.HasPrefix(name, ".") {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) listPrefix(rel string) string {
	parts := make([]string, 0, 2)
	if s.prefix != "" {
		parts = append(parts, s.prefix)
	}
	if rel != "" {
		parts = append(parts, rel)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "/") + "/"
}

func (s *Store) key(rel string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(rel, `\`, "/"))
	if strings.Contains(rel, "..") || cleaned == "/" {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve object key", fmt.Errorf("invalid key %q", rel))
	}
	key := strings.TrimPrefix(cleaned, "/")
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}
	return key, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func reservedFolder(name string) bool {
	switch strings.ToUpper(name) {
	case "UNSORTED", "UNKNOWN":
		return true
	default:
		return false
	}
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}
