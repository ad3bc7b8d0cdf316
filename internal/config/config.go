package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type ServerConfig struct {
	Port        string `envconfig:"PORT" default:"5000"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
	StaticDir   string `envconfig:"STATIC_DIR" default:"web"`
	LogoDir     string `envconfig:"LOGO_DIR" default:"."`
	DBPath      string `envconfig:"DB_PATH" default:"mailhub.db"`

	IdleInterval    time.Duration `envconfig:"IDLE_INTERVAL" default:"1s"`
	BackoffInterval time.Duration `envconfig:"BACKOFF_INTERVAL" default:"10s"`

	// pacing toward the SMTP endpoints, independent of the per-tenant windows
	SMTPSendRPS   float64 `envconfig:"SMTP_RPS" default:"5"`
	SMTPSendBurst int     `envconfig:"SMTP_BURST" default:"10"`

	// env prefixes of the configured brands; the first one is the primary
	// tenant that unrecognized brands route to
	Brands []string `envconfig:"BRANDS" default:"TALRN,LEADERS"`
}

// TenantConfig is loaded once per brand prefix (e.g. TALRN_SERVER) and never
// mutated afterwards.
type TenantConfig struct {
	Server string        `envconfig:"SERVER" required:"true"`
	Port   int           `envconfig:"PORT" default:"465"`
	User   string        `envconfig:"USER" required:"true"`
	Pass   string        `envconfig:"PASS" required:"true"`
	Name   string        `envconfig:"NAME" required:"true"`
	Logo   string        `envconfig:"LOGO"`
	CID    string        `envconfig:"CID" required:"true"`
	Limit  int           `envconfig:"LIMIT" default:"150"`
	Window time.Duration `envconfig:"WINDOW" default:"1h"`
}

type Config struct {
	Server  ServerConfig
	Tenants []TenantConfig
}

func Load() Config {
	var s ServerConfig
	if err := envconfig.Process("", &s); err != nil {
		panic(err)
	}

	tenants := make([]TenantConfig, 0, len(s.Brands))
	for _, prefix := range s.Brands {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		var t TenantConfig
		if err := envconfig.Process(prefix, &t); err != nil {
			panic(err)
		}
		tenants = append(tenants, t)
	}
	if len(tenants) == 0 {
		panic("no brands configured")
	}
	return Config{Server: s, Tenants: tenants}
}
