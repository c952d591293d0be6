// Package export uploads a CSV inventory of all stored keys to an
// S3-compatible bucket.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	bc "github.com/dmitrijs2005/outlinebot/internal/bot/config"
	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/google/uuid"
)

// ErrDisabled is returned when no bucket is configured.
var ErrDisabled = errors.New("export disabled")

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}

	now = time.Now
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// KeyLister is the part of the key service the export reads from.
type KeyLister interface {
	ListAll(ctx context.Context) ([]models.Key, error)
}

var header = []string{"server_address", "key_id", "name", "port", "method", "used_bytes", "access_url"}

type Service struct {
	keys   KeyLister
	config *bc.Config
}

func NewService(keys KeyLister, cfg *bc.Config) *Service {
	return &Service{keys: keys, config: cfg}
}

// ObjectKey returns a fresh object name, grouped by upload date.
func ObjectKey() string {
	d := now()
	return fmt.Sprintf("exports/%d/%02d/%02d/keys-%v.csv", d.Year(), d.Month(), d.Day(), uuid.New())
}

// Keys writes the inventory and returns the object key it was stored under.
func (s *Service) Keys(ctx context.Context) (string, error) {
	if !s.config.ExportEnabled() {
		return "", ErrDisabled
	}

	keys, err := s.keys.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("error listing keys: %w", err)
	}

	body, err := WriteCSV(keys)
	if err != nil {
		return "", err
	}

	client, err := s.client(ctx)
	if err != nil {
		return "", fmt.Errorf("error creating s3 client: %w", err)
	}

	bucket := s.config.S3Bucket
	key := ObjectKey()
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading export: %w", err)
	}

	return key, nil
}

// WriteCSV renders keys with a header row.
func WriteCSV(keys []models.Key) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, k := range keys {
		rec := []string{
			k.ServerAddress,
			strconv.FormatInt(k.KeyID, 10),
			k.Name,
			strconv.Itoa(k.Port),
			k.Method,
			strconv.FormatInt(k.UsedBytes, 10),
			k.AccessURL,
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Service) client(ctx context.Context) (objectPutter, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}
