package app

import (
	"strings"

	"github.com/docstream/docstream-backend/internal/pkg/envutil"
	"github.com/docstream/docstream-backend/internal/pkg/logger"
	"github.com/docstream/docstream-backend/internal/platform/storage"
)

type Config struct {
	LogMode      string
	Port         string
	ServiceName  string
	AllowOrigins []string

	Storage storage.Config

	ExtractorURL string
	AIEngineURL  string
	AIEngineMock bool
	CatalogURL   string

	MaxUploadBytes   int64
	AllowedMIMETypes []string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		LogMode:      envutil.GetEnv("LOG_MODE", "development", log),
		Port:         envutil.GetEnv("PORT", "8080", log),
		ServiceName:  envutil.GetEnv("SERVICE_NAME", "docstream-backend", log),
		AllowOrigins: splitCSV(envutil.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173", log)),

		Storage: storage.Config{
			Mode:          storage.Mode(strings.ToLower(envutil.GetEnv("STORAGE_MODE", string(storage.ModeMemory), log))),
			PrivateBucket: envutil.GetEnv("STORAGE_PRIVATE_BUCKET", "", log),
			PublicBucket:  envutil.GetEnv("STORAGE_PUBLIC_BUCKET", "", log),
			PublicBaseURL: envutil.GetEnv("STORAGE_PUBLIC_BASE_URL", "", log),
			S3Endpoint:    envutil.GetEnv("S3_ENDPOINT", "", log),
			S3AccessKey:   envutil.GetEnv("S3_ACCESS_KEY", "", log),
			S3SecretKey:   envutil.GetEnv("S3_SECRET_KEY", "", log),
			S3UseSSL:      envutil.GetEnvAsBool("S3_USE_SSL", false, log),
			GCSProjectID:  envutil.GetEnv("GCS_PROJECT_ID", "", log),
			GCSEndpoint:   envutil.GetEnv("GCS_ENDPOINT", "", log),
		},

		ExtractorURL: envutil.GetEnv("EXTRACTOR_URL", "http://localhost:5000", log),
		AIEngineURL:  envutil.GetEnv("AI_ENGINE_URL", "http://localhost:5100", log),
		AIEngineMock: envutil.GetEnvAsBool("AI_ENGINE_MOCK", false, log),
		CatalogURL:   envutil.GetEnv("CATALOG_URL", "http://localhost:5200", log),

		MaxUploadBytes:   envutil.GetEnvAsInt64("MAX_UPLOAD_BYTES", 50<<20, log),
		AllowedMIMETypes: splitCSV(envutil.GetEnv("ALLOWED_MIME_TYPES", "application/pdf", log)),
	}
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
