package taskcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/taskcache/taskcache/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
	tempDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

func (suite *ConfigTestSuite) TestDefaults() {
	config, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.False(suite.T(), config.Enabled)
	assert.Equal(suite.T(), "directory", config.Provider)
	assert.Equal(suite.T(), ".task-cache", config.Directory)
}

func (suite *ConfigTestSuite) TestConfigFile() {
	path := filepath.Join(suite.tempDir, "taskcache.yaml")
	content := []byte("enabled: true\nprovider: memory\ndirectory: /var/cache/tasks\n")
	require.NoError(suite.T(), os.WriteFile(path, content, 0o644))

	config, err := LoadConfig(path)
	require.NoError(suite.T(), err)

	assert.True(suite.T(), config.Enabled)
	assert.Equal(suite.T(), "memory", config.Provider)
	assert.Equal(suite.T(), "/var/cache/tasks", config.Directory)
}

func (suite *ConfigTestSuite) TestEnvironmentOverride() {
	suite.T().Setenv("TASKCACHE_ENABLED", "true")
	suite.T().Setenv("TASKCACHE_DIRECTORY", suite.tempDir)

	config, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.True(suite.T(), config.Enabled)
	assert.Equal(suite.T(), suite.tempDir, config.Directory)
}

func (suite *ConfigTestSuite) TestMissingConfigFile() {
	_, err := LoadConfig(filepath.Join(suite.tempDir, "does-not-exist.yaml"))
	assert.Error(suite.T(), err)
}

func (suite *ConfigTestSuite) TestNewStoreDirectory() {
	config := &BuildConfig{Provider: "directory", Directory: filepath.Join(suite.tempDir, "cache")}
	store, err := config.NewStore(nil)
	require.NoError(suite.T(), err)
	assert.IsType(suite.T(), &cache.DirectoryStore{}, store)
	assert.DirExists(suite.T(), config.Directory)
}

func (suite *ConfigTestSuite) TestNewStoreSQLite() {
	config := &BuildConfig{Provider: "sqlite", Directory: filepath.Join(suite.tempDir, "cache")}
	store, err := config.NewStore(nil)
	require.NoError(suite.T(), err)
	assert.IsType(suite.T(), cache.SQLiteStore{}, store)
}

func (suite *ConfigTestSuite) TestNewStoreMemory() {
	config := &BuildConfig{Provider: "memory"}
	store, err := config.NewStore(nil)
	require.NoError(suite.T(), err)
	assert.IsType(suite.T(), cache.MemStore{}, store)
}

func (suite *ConfigTestSuite) TestNewStoreUnsupportedProvider() {
	config := &BuildConfig{Provider: "redis"}
	_, err := config.NewStore(nil)
	assert.Error(suite.T(), err)
}
