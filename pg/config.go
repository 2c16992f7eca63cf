package pg

import (
	"fmt"
	"strings"
	"time"
)

// Config holds PostgreSQL connection and pool settings. Fields are loaded
// from YAML by cfgloader; the password carries a mask tag so config dumps
// never print it.
type Config struct {
	// Debug enables SQL query logging.
	Debug bool `yaml:"debug" default:"false"`

	Host     string `yaml:"host"     validate:"required"`
	Port     int    `yaml:"port"     validate:"required"`
	User     string `yaml:"user"     validate:"required"`
	Password string `yaml:"password" validate:"required" mask:"true"`
	Database string `yaml:"database" validate:"required"`

	// SSLMode accepts the standard libpq values.
	SSLMode string `yaml:"sslmode" default:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`

	// SearchPath is the schema search path set on every pooled connection.
	SearchPath string `yaml:"search_path" default:"public"`

	// ApplicationName identifies pooled connections in pg_stat_activity.
	ApplicationName string `yaml:"application_name" default:"datakit"`

	// ConnectTimeout bounds the initial connection handshake.
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"10s"`

	PoolMaxConns        int32         `yaml:"pool_max_conns"          default:"4"`
	PoolMinConns        int32         `yaml:"pool_min_conns"          default:"1"`
	PoolMaxConnLifetime time.Duration `yaml:"pool_max_conn_lifetime"  default:"1h"`
	PoolMaxConnIdleTime time.Duration `yaml:"pool_max_conn_idle_time" default:"30m"`
}

// dsn renders the configuration as a libpq keyword/value connection string.
func (c Config) dsn() string {
	pairs := []string{
		"host=" + c.Host,
		fmt.Sprintf("port=%d", c.Port),
		"user=" + c.User,
		"password=" + c.Password,
		"dbname=" + c.Database,
		"sslmode=" + c.SSLMode,
		"search_path=" + c.SearchPath,
		fmt.Sprintf("connect_timeout=%d", int(c.ConnectTimeout.Seconds())),
	}
	if c.ApplicationName != "" {
		pairs = append(pairs, "application_name="+c.ApplicationName)
	}
	return strings.Join(pairs, " ")
}
