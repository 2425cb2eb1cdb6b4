package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	schemadeploy "github.com/getpup/schemadeploy"
	"github.com/getpup/schemadeploy/versioning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnv sets a minimal valid environment and clears the optional variables
// this package reads, so the host environment cannot leak into tests.
func setEnv(t *testing.T, overrides map[string]string) {
	t.Helper()
	env := map[string]string{
		"DB_TYPE":                 "",
		"POSTGRES_HOST":           "db.internal",
		"PORT":                    "",
		"POSTGRES_DB":             "app",
		"POSTGRES_USER":           "deploy",
		"POSTGRES_PASSWORD":       "s3cret",
		"DB_SSLMODE":              "",
		"TRACKING_SCHEMA":         "",
		"AVAILABLE_SCHEMAS":       "core",
		"CHANGELOG_EXTENSION":     "",
		"LOG_LEVEL":               "",
		"TAG":                     "",
		"SCHEMA_VERSION":          "",
		"VERSION_FILE":            filepath.Join(t.TempDir(), "VERSION"),
		"JAVA_BIN":                "",
		"LIQUIBASE_JAR":           "",
		"LIQUIBASE_CONNECTOR_JAR": "",
		"DEPLOY_TIMEOUT":          "",
		"EMAIL_HOST":              "",
		"EMAIL_PORT":              "",
		"EMAIL_USER":              "",
		"EMAIL_PASSWORD":          "",
		"EMAIL_RECIPIENTS":        "",
		"PUSHGATEWAY_URL":         "",
	}
	for k, v := range overrides {
		env[k] = v
	}
	for k, v := range env {
		if v == "" {
			unsetEnv(t, k)
			continue
		}
		t.Setenv(k, v)
	}
}

// unsetEnv removes k for the duration of the test so envconfig defaults apply.
func unsetEnv(t *testing.T, k string) {
	t.Helper()
	t.Setenv(k, "")
	require.NoError(t, os.Unsetenv(k))
}

func TestFromEnv_AppliesDefaults(t *testing.T) {
	setEnv(t, nil)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, schemadeploy.DialectPostgres, cfg.Database.Type)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "db_logs", cfg.Database.TrackingSchema)
	assert.Equal(t, "java", cfg.Liquibase.JavaBin)
	assert.Equal(t, "lib/liquibase-core.jar", cfg.Liquibase.Jar)
	assert.Equal(t, 30*time.Minute, cfg.Liquibase.Timeout)
	assert.Equal(t, "smtp.gmail.com", cfg.Email.Host)
	assert.Equal(t, 587, cfg.Email.Port)
	assert.Empty(t, cfg.Email.Recipients)
	assert.Equal(t, ".sql", cfg.Extension)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestFromEnv_ParsesLists(t *testing.T) {
	setEnv(t, map[string]string{
		"AVAILABLE_SCHEMAS": "core, audit ,,reporting",
		"EMAIL_RECIPIENTS":  "ops@example.com, dba@example.com",
		"EMAIL_USER":        "deploy@example.com",
	})

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"core", "audit", "reporting"}, cfg.Schemas)
	assert.Equal(t, []string{"ops@example.com", "dba@example.com"}, cfg.Email.Recipients)
}

func TestFromEnv_NormalizesExtension(t *testing.T) {
	setEnv(t, map[string]string{"CHANGELOG_EXTENSION": "xml"})

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ".xml", cfg.Extension)
}

func TestFromEnv_ReportsEveryProblem(t *testing.T) {
	setEnv(t, map[string]string{
		"DB_TYPE":           "oracle",
		"POSTGRES_DB":       "",
		"AVAILABLE_SCHEMAS": "",
	})

	_, err := FromEnv()
	require.Error(t, err)

	assert.ErrorIs(t, err, schemadeploy.ErrUnsupportedDialect)
	assert.Contains(t, err.Error(), "AVAILABLE_SCHEMAS")
	assert.Contains(t, err.Error(), "POSTGRES_DB")
}

func TestFromEnv_SQLiteNeedsNoHost(t *testing.T) {
	setEnv(t, map[string]string{
		"DB_TYPE":       "sqlite",
		"POSTGRES_HOST": "",
		"POSTGRES_DB":   "/var/lib/app.db",
	})

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/app.db", cfg.Target())
}

func TestFromEnv_RecipientsRequireUser(t *testing.T) {
	setEnv(t, map[string]string{"EMAIL_RECIPIENTS": "ops@example.com"})

	_, err := FromEnv()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMAIL_USER")
}

func TestProcess_SkipsValidation(t *testing.T) {
	setEnv(t, map[string]string{"AVAILABLE_SCHEMAS": "", "POSTGRES_DB": ""})

	cfg, err := Process()
	require.NoError(t, err)

	assert.Empty(t, cfg.Schemas)
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	setEnv(t, nil)
	unsetEnv(t, "AVAILABLE_SCHEMAS")
	unsetEnv(t, "TAG")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("AVAILABLE_SCHEMAS=core,audit\nTAG=v3.0.0\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("AVAILABLE_SCHEMAS")
		os.Unsetenv("TAG")
	})

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, []string{"core", "audit"}, cfg.Schemas)
	assert.Equal(t, "v3.0.0", cfg.Version())
}

func TestLoad_EnvironmentWinsOverEnvFile(t *testing.T) {
	setEnv(t, map[string]string{"TAG": "v1.1.1"})

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TAG=v9.9.9\n"), 0o644))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "v1.1.1", cfg.Version())
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	setEnv(t, nil)

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.NoError(t, err)
}

func TestVersion_Resolution(t *testing.T) {
	versionFile := filepath.Join(t.TempDir(), "VERSION")

	t.Run("build default", func(t *testing.T) {
		cfg := Config{VersionFile: versionFile}
		assert.Equal(t, versioning.DefaultVersion, cfg.Version())
	})

	require.NoError(t, os.WriteFile(versionFile, []byte("2.3.4\n"), 0o644))

	t.Run("version file", func(t *testing.T) {
		cfg := Config{VersionFile: versionFile}
		assert.Equal(t, "2.3.4", cfg.Version())
	})

	t.Run("override beats version file", func(t *testing.T) {
		cfg := Config{VersionFile: versionFile, VersionOverride: "5.0.0"}
		assert.Equal(t, "5.0.0", cfg.Version())
	})

	t.Run("tag beats everything", func(t *testing.T) {
		cfg := Config{VersionFile: versionFile, VersionOverride: "5.0.0", Tag: "v6.0.0"}
		assert.Equal(t, "v6.0.0", cfg.Version())
	})
}

func TestVersion_ResolvedOnceAtLoad(t *testing.T) {
	versionFile := filepath.Join(t.TempDir(), "VERSION")
	require.NoError(t, os.WriteFile(versionFile, []byte("1.4.0\n"), 0o644))
	setEnv(t, map[string]string{"VERSION_FILE": versionFile})

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", cfg.Version())

	require.NoError(t, os.WriteFile(versionFile, []byte("1.5.0\n"), 0o644))
	assert.Equal(t, "1.4.0", cfg.Version())

	require.NoError(t, os.Remove(versionFile))
	assert.Equal(t, "1.4.0", cfg.Version())
}

func TestSecrets(t *testing.T) {
	cfg := Config{
		Database: Database{Password: "db-pass"},
		Email:    Email{Password: "mail-pass"},
	}

	assert.ElementsMatch(t, []string{"db-pass", "mail-pass"}, cfg.Secrets())
}

func TestDatabase_Conn(t *testing.T) {
	d := Database{Host: "h", Port: "1", Name: "n", User: "u", Password: "p", SSLMode: "require"}

	conn := d.Conn()

	assert.Equal(t, "h", conn.Host)
	assert.Equal(t, "require", conn.SSLMode)
	assert.Equal(t, "p", conn.Password)
}
