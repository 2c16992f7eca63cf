package pg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Host:                "db.local",
		Port:                5433,
		User:                "svc",
		Password:            "s3cret",
		Database:            "appdb",
		SSLMode:             "disable",
		SearchPath:          "public",
		ApplicationName:     "datakit",
		ConnectTimeout:      10 * time.Second,
		PoolMaxConns:        8,
		PoolMinConns:        2,
		PoolMaxConnLifetime: time.Hour,
		PoolMaxConnIdleTime: 30 * time.Minute,
	}
}

func TestConfigDSN(t *testing.T) {
	dsn := testConfig().dsn()

	assert.Contains(t, dsn, "host=db.local")
	assert.Contains(t, dsn, "port=5433")
	assert.Contains(t, dsn, "dbname=appdb")
	assert.Contains(t, dsn, "search_path=public")
	assert.Contains(t, dsn, "connect_timeout=10")
	assert.Contains(t, dsn, "application_name=datakit")
}

func TestConfigDSNOmitsEmptyApplicationName(t *testing.T) {
	cfg := testConfig()
	cfg.ApplicationName = ""

	assert.NotContains(t, cfg.dsn(), "application_name")
}

func TestPoolConfig(t *testing.T) {
	poolCfg, err := testConfig().poolConfig()
	require.NoError(t, err)

	assert.Equal(t, int32(8), poolCfg.MaxConns)
	assert.Equal(t, int32(2), poolCfg.MinConns)
	assert.Equal(t, time.Hour, poolCfg.MaxConnLifetime)
	assert.Equal(t, 30*time.Minute, poolCfg.MaxConnIdleTime)
	assert.Equal(t, "db.local", poolCfg.ConnConfig.Host)
	assert.Equal(t, uint16(5433), poolCfg.ConnConfig.Port)
	assert.Equal(t, "datakit", poolCfg.ConnConfig.RuntimeParams["application_name"])
}
