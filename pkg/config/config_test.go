package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "s3cret"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "foodshop-api", cfg.Server.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxSize)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Contains(t, cfg.Upload.AllowedTypes, "image/webp")
	assert.Empty(t, cfg.Etcd.Endpoints)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
database:
  driver: sqlite
  database: shop
auth:
  jwt_secret: "from-file"
  session_ttl: 2h
identity:
  provider: static
  static_tokens:
    - token: dev-token
      uid: dev-1
      phone: "+15550000001"
`)
	t.Setenv("SHOP_AUTH_JWT_SECRET", "from-env")
	t.Setenv("SHOP_SERVER_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "shop.db", cfg.Database.DSN())
	require.Len(t, cfg.Identity.StaticTokens, 1)
	assert.Equal(t, "+15550000001", cfg.Identity.StaticTokens[0].Phone)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		cfg := &Config{
			Database: DatabaseConfig{Driver: "mysql"},
			Identity: IdentityConfig{Provider: "firebase"},
			Upload:   UploadConfig{Backend: "local", MaxSize: 1},
		}
		assert.ErrorContains(t, cfg.Validate(), "jwt_secret")
	})

	t.Run("gridfs needs mongo", func(t *testing.T) {
		cfg := &Config{
			Database: DatabaseConfig{Driver: "mysql"},
			Identity: IdentityConfig{Provider: "firebase"},
			Upload:   UploadConfig{Backend: "gridfs", MaxSize: 1},
			Auth:     AuthConfig{JWTSecret: "x"},
		}
		assert.ErrorContains(t, cfg.Validate(), "mongodb.enabled")
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := &Config{
			Database: DatabaseConfig{Driver: "oracle"},
			Identity: IdentityConfig{Provider: "firebase"},
			Upload:   UploadConfig{Backend: "local", MaxSize: 1},
			Auth:     AuthConfig{JWTSecret: "x"},
		}
		assert.ErrorContains(t, cfg.Validate(), "oracle")
	})
}

func TestDSN(t *testing.T) {
	mysql := DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, Username: "u", Password: "p", Database: "shop"}
	assert.Equal(t, "u:p@tcp(db:3306)/shop?charset=utf8mb4&parseTime=True&loc=Local", mysql.DSN())

	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, Username: "u", Password: "p", Database: "shop"}
	assert.Equal(t, "host=db user=u password=p dbname=shop port=5432 sslmode=disable", pg.DSN())

	explicit := DatabaseConfig{Driver: "mysql", RawDSN: "custom"}
	assert.Equal(t, "custom", explicit.DSN())
}
