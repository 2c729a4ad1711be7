package config

import (
	"fmt"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the document database
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		switch dbType {
		case "memory":
		case "mongo", "postgres":
			if url == "" {
				return fmt.Errorf("database URL is required for %s", dbType)
			}
		default:
			return fmt.Errorf("database type must be 'memory', 'mongo' or 'postgres', got: %s", dbType)
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithMongoDatabase sets the MongoDB database name
func WithMongoDatabase(name string) Option {
	return func(c *ServerConfig) error {
		c.MongoDatabase = name
		return nil
	}
}

// WithUploadsDir sets the root directory of uploaded files
func WithUploadsDir(dir string) Option {
	return func(c *ServerConfig) error {
		if dir == "" {
			return fmt.Errorf("uploads directory cannot be empty")
		}
		c.UploadsDir = dir
		return nil
	}
}

// WithSnapshotDir sets the directory holding the metadata snapshots
func WithSnapshotDir(dir string) Option {
	return func(c *ServerConfig) error {
		if dir == "" {
			return fmt.Errorf("snapshot directory cannot be empty")
		}
		c.SnapshotDir = dir
		return nil
	}
}

// WithMaxUploadMB caps upload request bodies
func WithMaxUploadMB(mb int64) Option {
	return func(c *ServerConfig) error {
		if mb <= 0 {
			return fmt.Errorf("max upload size must be positive, got: %d", mb)
		}
		c.MaxUploadMB = mb
		return nil
	}
}

// WithAPIKeySHA256 protects mutating routes with an API key
func WithAPIKeySHA256(sha string) Option {
	return func(c *ServerConfig) error {
		c.APIKeySHA256 = sha
		return nil
	}
}

// WithCORSAllowedOrigins sets the allowed CORS origins
func WithCORSAllowedOrigins(origins ...string) Option {
	return func(c *ServerConfig) error {
		c.CORSAllowedOrigins = origins
		return nil
	}
}

// WithCategories replaces the category layout
func WithCategories(categories ...CategoryConfig) Option {
	return func(c *ServerConfig) error {
		c.Categories = categories
		return nil
	}
}
