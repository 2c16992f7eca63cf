package cache

import "time"

// Config defines the configuration options for the redis entity cache.
type Config struct {
	// Addrs is the list of redis server addresses in the format
	// "host:port,host2:port2".
	Addrs string `yaml:"addrs" validate:"required"`

	// Username is the username for the redis server/cluster.
	Username string `yaml:"username"`

	// Password is the password for the redis server/cluster.
	Password string `yaml:"password" mask:"true"`

	// IsClusterMode indicates whether the redis server is a redis cluster.
	IsClusterMode bool `yaml:"is_cluster_mode"`

	// KeyPrefix namespaces every key written by this cache.
	KeyPrefix string `yaml:"key_prefix" default:"datakit"`

	// TTL is the default expiration for cached entries.
	TTL time.Duration `yaml:"ttl" default:"10m"`
}
