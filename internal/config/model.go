// internal/config/model.go
//
// Typed configuration model for sitewarden.
//
// Context
// -------
// These structs define the shape of the tree that loader.go builds from
// three overlay layers:
//
//   - optional `.env`                              dotenv values,
//   - `conf/moderation.yaml`                       primary static file,
//   - `SITEWARDEN_`-prefixed environment overrides highest precedence.
//
// Values that begin with `vault:` are secret references.  They survive
// unmarshalling untouched and are swapped for plain strings by
// ResolveSecrets once the Vault client is up.
//
// Struct tags use `koanf:"…"`; koanf ignores `yaml` tags.

package config

import "time"

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// Database holds the DSN template and its secret.
//
// DSN keeps one `%s` verb where the password goes, so operators can tweak
// host, port, or flags in YAML while the password lives in Vault.
type Database struct {
	DSN          string `koanf:"dsn"            validate:"required,dsn_template"`
	Password     string `koanf:"password"`
	MaxOpenConns int    `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `koanf:"max_idle_conns" validate:"gte=0"`
	Migrate      bool   `koanf:"migrate"`
}

// Assets selects and tunes the Asset Store driver.
type Assets struct {
	Driver         string        `koanf:"driver"          validate:"required,oneof=fs s3"`
	Root           string        `koanf:"root"            validate:"required_if=Driver fs"`
	PublicPrefix   string        `koanf:"public_prefix"`
	Bucket         string        `koanf:"bucket"          validate:"required_if=Driver s3"`
	Region         string        `koanf:"region"`
	Endpoint       string        `koanf:"endpoint"`
	AccessKeyID    string        `koanf:"access_key_id"`
	SecretKey      string        `koanf:"secret_key"`
	ReleaseTimeout time.Duration `koanf:"release_timeout"`
	Parallelism    int           `koanf:"parallelism"     validate:"gte=0"`
}

// Moderation holds the enforcement policy.
type Moderation struct {
	StrikeThreshold int           `koanf:"strike_threshold" validate:"gte=0"`
	SuspensionGrace time.Duration `koanf:"suspension_grace"`
}

// Flags tunes the platform-flag cache.
type Flags struct {
	TTL time.Duration `koanf:"ttl"`
}

// GeoIP points at an optional GeoLite2 database.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

// Identity configures the trusted gateway in front of the admin surface.
type Identity struct {
	GatewaySecret string `koanf:"gateway_secret" validate:"required"`
}

// Log controls the file logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Paths is resolved at runtime; YAML must not set it.
type Paths struct {
	Root string
}

// Config is the immutable aggregate returned by Load().
type Config struct {
	HTTP       HTTP       `koanf:"http"`
	Database   Database   `koanf:"database"`
	Assets     Assets     `koanf:"assets"`
	Moderation Moderation `koanf:"moderation"`
	Flags      Flags      `koanf:"flags"`
	GeoIP      GeoIP      `koanf:"geoip"`
	Identity   Identity   `koanf:"identity"`
	Log        Log        `koanf:"log"`
	Paths      Paths      `koanf:"-"`
}

// applyDefaults fills optional tunables left empty by every layer.
func applyDefaults(c *Config) {
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 15
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Assets.ReleaseTimeout == 0 {
		c.Assets.ReleaseTimeout = 5 * time.Second
	}
	if c.Assets.Parallelism == 0 {
		c.Assets.Parallelism = 4
	}
	if c.Moderation.StrikeThreshold == 0 {
		c.Moderation.StrikeThreshold = 3
	}
	if c.Moderation.SuspensionGrace == 0 {
		c.Moderation.SuspensionGrace = 7 * 24 * time.Hour
	}
	if c.Flags.TTL == 0 {
		c.Flags.TTL = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
