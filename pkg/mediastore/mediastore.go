// Package mediastore uploads user and patient photos to S3 and hands back a
// public URL. The rest of the service treats that URL as an opaque attribute.
package mediastore

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"clinic-service/pkg/config"
)

// Store wraps an S3 bucket used for uploaded media
type Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// New builds a media store from configuration. An empty bucket yields a
// disabled store whose uploads fail cleanly.
func New(ctx context.Context, mediaCfg *config.MediaConfig) (*Store, error) {
	if mediaCfg.Bucket == "" {
		return &Store{}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(mediaCfg.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return &Store{
		client:  s3.NewFromConfig(awsCfg),
		bucket:  mediaCfg.Bucket,
		baseURL: strings.TrimRight(mediaCfg.BaseURL, "/"),
	}, nil
}

// Enabled reports whether uploads are configured
func (s *Store) Enabled() bool {
	return s.client != nil
}

// UploadBase64Image stores a data-URI encoded image ("data:<mime>;base64,...")
// under a unique key and returns its public URL
func (s *Store) UploadBase64Image(ctx context.Context, base64Data, keyPrefix string) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("media store is not configured")
	}

	parts := strings.Split(base64Data, ",")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid base64 image")
	}
	meta := parts[0]
	data := parts[1]

	// Detect content type from the data-URI header
	headerParts := strings.SplitN(meta, ":", 2)
	if len(headerParts) != 2 {
		return "", fmt.Errorf("invalid base64 image header")
	}
	contentType := strings.SplitN(headerParts[1], ";", 2)[0]

	imageData, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	key := fmt.Sprintf("%s/%d%s", keyPrefix, time.Now().UnixNano(), extensionFor(contentType))

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(imageData),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, key), nil
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key), nil
}

// extensionFor maps a content type to a file extension
func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	if parts := strings.SplitN(contentType, "/", 2); len(parts) == 2 {
		return "." + parts[1]
	}
	return ""
}
