package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/docstream/docstream-backend/internal/pkg/logger"
)

// Provider is the uniform contract over object-storage backends. The backend
// is selected once at process start; callers never see which one they got.
//
// Private puts return an internal locator not assumed to be externally
// reachable. Public puts return a stable, directly fetchable URL.
type Provider interface {
	EnsureBuckets(ctx context.Context) error
	PutPrivate(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	PutPublic(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	GetPrivate(ctx context.Context, key string) ([]byte, error)
	// DeletePrefix removes every private object under prefix. Best effort:
	// used only by document deletion cleanup.
	DeletePrefix(ctx context.Context, prefix string) error
}

type Mode string

const (
	ModeGCS    Mode = "gcs"
	ModeS3     Mode = "s3"
	ModeMemory Mode = "memory"
)

func IsSupportedMode(mode Mode) bool {
	switch mode {
	case ModeGCS, ModeS3, ModeMemory:
		return true
	default:
		return false
	}
}

type Config struct {
	Mode Mode

	PrivateBucket string
	PublicBucket  string

	// PublicBaseURL overrides the backend's derived public URL base.
	PublicBaseURL string

	// S3-compatible backend only.
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool

	// GCS only.
	GCSProjectID string
	// GCS only: emulator endpoint for local stacks.
	GCSEndpoint string
}

type ConfigErrorCode string

const (
	ConfigErrorInvalidMode    ConfigErrorCode = "invalid_mode"
	ConfigErrorMissingBucket  ConfigErrorCode = "missing_bucket"
	ConfigErrorMissingS3Creds ConfigErrorCode = "missing_s3_credentials"
)

type ConfigError struct {
	Code ConfigErrorCode
	Mode string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "object storage config error"
	}
	return fmt.Sprintf("object storage config error (code=%s mode=%q)", e.Code, e.Mode)
}

func ValidateConfig(cfg Config) error {
	if !IsSupportedMode(cfg.Mode) {
		return &ConfigError{Code: ConfigErrorInvalidMode, Mode: string(cfg.Mode)}
	}
	if cfg.Mode == ModeMemory {
		return nil
	}
	if strings.TrimSpace(cfg.PrivateBucket) == "" || strings.TrimSpace(cfg.PublicBucket) == "" {
		return &ConfigError{Code: ConfigErrorMissingBucket, Mode: string(cfg.Mode)}
	}
	if cfg.Mode == ModeS3 {
		if strings.TrimSpace(cfg.S3Endpoint) == "" || strings.TrimSpace(cfg.S3AccessKey) == "" || strings.TrimSpace(cfg.S3SecretKey) == "" {
			return &ConfigError{Code: ConfigErrorMissingS3Creds, Mode: string(cfg.Mode)}
		}
	}
	return nil
}

// New selects and constructs the configured backend. This is the single
// selection point; everything downstream holds a Provider.
func New(log *logger.Logger, cfg Config) (Provider, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case ModeGCS:
		return newGCSProvider(log, cfg)
	case ModeS3:
		return newS3Provider(log, cfg)
	case ModeMemory:
		return NewMemoryProvider(cfg), nil
	default:
		return nil, &ConfigError{Code: ConfigErrorInvalidMode, Mode: string(cfg.Mode)}
	}
}

// Op classifies the failed storage call.
type Op string

const (
	OpProvision Op = "provision"
	OpWrite     Op = "write"
	OpRead      Op = "read"
	OpDelete    Op = "delete"
)

var ErrObjectNotFound = errors.New("object not found")

type Error struct {
	Op  Op
	Key string
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return "storage error"
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op Op, key string, err error) *Error {
	return &Error{Op: op, Key: key, Err: err}
}

// IsNotFound reports whether err is a read miss rather than a backend fault.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// contentTypeForKey infers a content type from the key suffix when the caller
// passes none.
func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	case strings.HasSuffix(s, ".zip"):
		return "application/zip"
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".txt"):
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

func effectiveContentType(key, contentType string) string {
	if strings.TrimSpace(contentType) != "" {
		return contentType
	}
	return contentTypeForKey(key)
}
