// internal/services/storage_service.go
package services

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/munidigital/ventanilla-backend/internal/config"
)

// StorageService stores patent form templates. When no access key is
// configured it falls back to a local URL scheme for development.
type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)
var repeatedUnderscores = regexp.MustCompile(`_+`)

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.Storage.AccessKeyID == "" {
		// Local development runs without S3
		return &StorageService{config: config}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.Storage.Region),
		Credentials: credentials.NewStaticCredentials(
			config.Storage.AccessKeyID,
			config.Storage.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   config,
	}, nil
}

// TemplateUploadOptions bounds patent form template files.
func (s *StorageService) TemplateUploadOptions() UploadOptions {
	return UploadOptions{
		Folder:       "patentes/formularios",
		MaxSize:      2 * 1024 * 1024, // 2MB
		AllowedTypes: []string{".pdf", ".doc", ".docx"},
	}
}

func (s *StorageService) UploadFile(file multipart.File, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error) {
	if options.MaxSize > 0 && header.Size > options.MaxSize {
		return nil, fmt.Errorf("file size %d bytes exceeds maximum allowed size %d bytes", header.Size, options.MaxSize)
	}

	if len(options.AllowedTypes) > 0 {
		fileExt := strings.ToLower(filepath.Ext(header.Filename))
		allowed := false
		for _, allowedType := range options.AllowedTypes {
			if fileExt == allowedType {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, fmt.Errorf("file type %s is not allowed", fileExt)
		}
	}

	key := s.generateObjectKey(header.Filename, options.Folder)

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if s.s3Client != nil {
		return s.uploadToS3(fileBytes, key, header.Header.Get("Content-Type"))
	}

	return s.uploadToLocal(fileBytes, key, header.Header.Get("Content-Type"))
}

func (s *StorageService) uploadToS3(fileBytes []byte, key, contentType string) (*UploadResult, error) {
	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.config.Storage.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(fileBytes),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(fileBytes))),
	}

	if _, err := s.s3Client.PutObject(params); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		URL:      s.objectURL(key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) uploadToLocal(fileBytes []byte, key, contentType string) (*UploadResult, error) {
	// In development the file is not persisted; the key still routes
	// through the same URL scheme so catalog records stay consistent.
	url := fmt.Sprintf("http://localhost:8080/uploads/%s", key)

	return &UploadResult{
		URL:      url,
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) DeleteFile(key string) error {
	if s.s3Client == nil {
		logrus.WithField("key", key).Info("Skipping storage delete, S3 not configured")
		return nil
	}

	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Storage.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}

	return nil
}

// GeneratePresignedURL produces a temporary download link for a stored
// template, used by the public catalog endpoints.
func (s *StorageService) GeneratePresignedURL(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		return fmt.Sprintf("http://localhost:8080/uploads/%s", key), nil
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.Storage.Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url, nil
}

// generateObjectKey keeps a readable slug of the original name and appends
// a timestamp plus a short random suffix so keys never collide.
func (s *StorageService) generateObjectKey(originalName, folder string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	base := strings.TrimSuffix(originalName, filepath.Ext(originalName))

	base = unsafeFileChars.ReplaceAllString(base, "_")
	base = repeatedUnderscores.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")
	if base == "" {
		base = "archivo"
	}

	timestamp := time.Now().Format("20060102")
	suffix := uuid.New().String()[:8]
	filename := fmt.Sprintf("%s_%s_%s%s", base, timestamp, suffix, ext)

	if folder != "" {
		return fmt.Sprintf("%s/%s", folder, filename)
	}
	return filename
}

func (s *StorageService) objectURL(key string) string {
	if s.config.Storage.BaseURL != "" {
		return fmt.Sprintf("%s/%s", s.config.Storage.BaseURL, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.Storage.Bucket, s.config.Storage.Region, key)
}
