package upload

import (
	"context"
	"errors"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Environment variables read by SettingsFromEnv.
const (
	EnvEndpoint  = "QRCMP_S3_ENDPOINT"
	EnvAccessKey = "QRCMP_S3_ACCESS_KEY"
	EnvSecretKey = "QRCMP_S3_SECRET_KEY"
	EnvBucket    = "QRCMP_S3_BUCKET"
	EnvRegion    = "QRCMP_S3_REGION"
	EnvUseSSL    = "QRCMP_S3_USE_SSL"
)

// Settings locates the bucket reports are uploaded to.
type Settings struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Uploader stores a local file under an object key.
type Uploader interface {
	UploadFile(ctx context.Context, key, filePath, contentType string) error
}

// LoadDotEnv populates the environment from a .env file in the working
// directory when one exists. Variables already set are left alone.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// SettingsFromEnv reads Settings from the environment.
func SettingsFromEnv() Settings {
	return Settings{
		Endpoint:  strings.TrimSpace(os.Getenv(EnvEndpoint)),
		AccessKey: strings.TrimSpace(os.Getenv(EnvAccessKey)),
		SecretKey: strings.TrimSpace(os.Getenv(EnvSecretKey)),
		Bucket:    strings.TrimSpace(os.Getenv(EnvBucket)),
		Region:    strings.TrimSpace(os.Getenv(EnvRegion)),
		UseSSL:    getBool(EnvUseSSL, true),
	}
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Validate reports the first missing required setting.
func (s Settings) Validate() error {
	switch {
	case s.Endpoint == "":
		return errors.New(EnvEndpoint + " is required")
	case s.Bucket == "":
		return errors.New(EnvBucket + " is required")
	case s.AccessKey == "" || s.SecretKey == "":
		return errors.New(EnvAccessKey + " and " + EnvSecretKey + " are required")
	}
	return nil
}

// Client uploads to an S3-compatible bucket.
type Client struct {
	mc     *minio.Client
	bucket string
}

// New connects a client. No request is made until the first upload.
func New(s Settings) (*Client, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	mc, err := minio.New(s.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s.AccessKey, s.SecretKey, ""),
		Secure: s.UseSSL,
		Region: s.Region,
	})
	if err != nil {
		return nil, err
	}
	return &Client{mc: mc, bucket: s.Bucket}, nil
}

func (c *Client) UploadFile(ctx context.Context, key, filePath, contentType string) error {
	_, err := c.mc.FPutObject(ctx, c.bucket, key, filePath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// ObjectKey joins a key prefix, the run id and a file name with slashes.
func ObjectKey(prefix, runID, name string) string {
	parts := []string{}
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	if runID != "" {
		parts = append(parts, runID)
	}
	parts = append(parts, name)
	return path.Join(parts...)
}
