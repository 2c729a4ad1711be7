package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig mirrors the environment variables read by WithEnv. Unset
// variables leave the current value of the ServerConfig in place.
type envConfig struct {
	Port               string   `env:"PORT"`
	Environment        string   `env:"ENVIRONMENT"`
	UploadsDir         string   `env:"UPLOADS_DIR"`
	SnapshotDir        string   `env:"SNAPSHOT_DIR"`
	DatabaseType       string   `env:"DATABASE_TYPE"`
	DatabaseURL        string   `env:"DATABASE_URL"`
	MongoDatabase      string   `env:"MONGO_DATABASE"`
	MaxUploadMB        int64    `env:"MAX_UPLOAD_MB"`
	APIKeySHA256       string   `env:"API_KEY_SHA256"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

// WithEnv applies environment variable overrides.
//
//	PORT                  - server port (default "8080")
//	ENVIRONMENT           - development, production, testing
//	UPLOADS_DIR           - root of the pdfs/, images/ and videos/ directories
//	SNAPSHOT_DIR          - directory of the *FilesData.json snapshots
//	DATABASE_TYPE         - memory, mongo or postgres; inferred from DATABASE_URL when unset
//	DATABASE_URL          - mongodb:// or postgres:// connection string
//	MONGO_DATABASE        - database name for mongo (default "test")
//	MAX_UPLOAD_MB         - request size cap for uploads
//	API_KEY_SHA256        - when set, create/edit/delete require the matching API key
//	CORS_ALLOWED_ORIGINS  - comma separated origins (default "*")
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		setString(&c.Port, env.Port)
		setString(&c.Environment, env.Environment)
		setString(&c.UploadsDir, env.UploadsDir)
		setString(&c.SnapshotDir, env.SnapshotDir)
		setString(&c.MongoDatabase, env.MongoDatabase)
		setString(&c.APIKeySHA256, env.APIKeySHA256)
		if env.MaxUploadMB != 0 {
			c.MaxUploadMB = env.MaxUploadMB
		}
		if origins := trimAll(env.CORSAllowedOrigins); len(origins) > 0 {
			c.CORSAllowedOrigins = origins
		}

		if env.DatabaseURL != "" {
			c.DatabaseURL = env.DatabaseURL
			c.DatabaseType = databaseTypeFromURL(env.DatabaseURL)
		}
		setString(&c.DatabaseType, strings.ToLower(env.DatabaseType))
		return nil
	}
}

// databaseTypeFromURL guesses the backend from a connection string scheme.
func databaseTypeFromURL(url string) string {
	switch {
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		return "mongo"
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "postgres"
	case url == "memory":
		return "memory"
	default:
		return ""
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
