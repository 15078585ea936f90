package backup

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/tracepaper/core/internal/config"
)

func newS3Client(opts config.S3Config) (*s3.Client, error) {
	region := strings.TrimSpace(opts.Region)
	accessKey := strings.TrimSpace(opts.AccessKeyID)
	secretKey := strings.TrimSpace(opts.SecretAccessKey)
	if strings.TrimSpace(opts.Bucket) == "" || region == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("incomplete s3 config: bucket/region/access_key_id/secret_access_key are required")
	}

	cfg := aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
				endpoint = "https://" + endpoint
			}
			o.BaseEndpoint = aws.String(strings.TrimSuffix(endpoint, "/"))
			// MinIO and most self-hosted S3 gateways need path-style addressing.
			o.UsePathStyle = true
		}
		if opts.PathStyle {
			o.UsePathStyle = true
		}
	})
	return client, nil
}

func (s *Service) uploadToS3(ctx context.Context, filename string, payload []byte, now time.Time) error {
	client, err := newS3Client(s.cfg.Backup.S3)
	if err != nil {
		return err
	}

	key := backupObjectKey(s.cfg.Backup.S3.Prefix, filename, now)
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(strings.TrimSpace(s.cfg.Backup.S3.Bucket)),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func backupObjectKey(prefix, filename string, now time.Time) string {
	p := strings.Trim(strings.TrimSpace(prefix), "/")
	if p == "" {
		p = "backups"
	}
	return strings.Join([]string{p, now.Format("2006"), now.Format("01"), filename}, "/")
}
