package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver     string // postgres or sqlite
	SQLitePath string
	Seed       bool
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
	ApplicationName string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint      string
	PublicURL     string
	AccessKey     string
	SecretKey     string
	BucketAvatars string
	UseSSL        bool
	Region        string
	MaxAvatarSize int64
}

type SecurityConfig struct {
	JWTSecret    string
	JWTTTL       time.Duration
	MaxSessions  int
	CookieName   string
	SecureCookie bool
}

type WebhookConfig struct {
	APIKey          string
	SignatureSecret string
	MaxSkew         time.Duration
}

type RangeConfig struct {
	Min float64
	Max float64
}

type IngestionConfig struct {
	DefaultLocation string
	MaxClockSkew    time.Duration
	Ranges          map[string]RangeConfig
}

type RealtimeConfig struct {
	RedisChannel string
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

type RetentionConfig struct {
	Readings time.Duration
}

type EnergyConfig struct {
	TariffPerKWh   float64
	RollupInterval time.Duration
}

type DashboardConfig struct {
	Timezone string
}

type MQTTConfig struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
	QoS      byte
}

type WorkerConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type SimulatorConfig struct {
	Mode     string // http or mqtt
	Target   string
	Location string
	Interval time.Duration
	Count    int
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Database         DatabaseConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Webhook          WebhookConfig
	Ingestion        IngestionConfig
	Realtime         RealtimeConfig
	Retention        RetentionConfig
	Energy           EnergyConfig
	Dashboard        DashboardConfig
	MQTT             MQTTConfig
	Worker           WorkerConfig
	Simulator        SimulatorConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("SMARTHOME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when database.driver is postgres")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Security.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("security.jwtsecret is required in production")
		}
		c.Security.JWTSecret = "development-only-secret"
	}
	if _, err := time.LoadLocation(c.Dashboard.Timezone); err != nil {
		return fmt.Errorf("dashboard.timezone: %w", err)
	}
	for name, r := range c.Ingestion.Ranges {
		if r.Min > r.Max {
			return fmt.Errorf("ingestion.ranges.%s: min %v exceeds max %v", name, r.Min, r.Max)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.sqlitepath", "smarthome.db")
	v.SetDefault("database.seed", true)

	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 2)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.connmaxidletime", "5m")
	v.SetDefault("postgres.connecttimeout", "10s")
	v.SetDefault("postgres.applicationname", "smarthome")

	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketavatars", "smarthome-avatars")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.maxavatarsize", 2<<20)

	v.SetDefault("security.jwtttl", "24h")
	v.SetDefault("security.maxsessions", 10)
	v.SetDefault("security.cookiename", "token")

	v.SetDefault("webhook.maxskew", "5m")

	v.SetDefault("ingestion.defaultlocation", "Home")
	v.SetDefault("ingestion.maxclockskew", "5m")
	v.SetDefault("ingestion.ranges.temperature.min", -40)
	v.SetDefault("ingestion.ranges.temperature.max", 100)
	v.SetDefault("ingestion.ranges.humidity.min", 0)
	v.SetDefault("ingestion.ranges.humidity.max", 100)
	v.SetDefault("ingestion.ranges.current.min", 0)
	v.SetDefault("ingestion.ranges.current.max", 100)
	v.SetDefault("ingestion.ranges.light.min", 0)
	v.SetDefault("ingestion.ranges.light.max", 10000)
	v.SetDefault("ingestion.ranges.energy.min", 0)
	v.SetDefault("ingestion.ranges.energy.max", 1000)
	v.SetDefault("ingestion.ranges.voltage.min", 0)
	v.SetDefault("ingestion.ranges.voltage.max", 300)
	v.SetDefault("ingestion.ranges.power.min", 0)
	v.SetDefault("ingestion.ranges.power.max", 10000)

	v.SetDefault("realtime.sendbuffer", 64)
	v.SetDefault("realtime.writetimeout", "10s")
	v.SetDefault("realtime.pinginterval", "30s")

	v.SetDefault("retention.readings", "2160h") // 90 days

	v.SetDefault("energy.tariffperkwh", 0.15)
	v.SetDefault("energy.rollupinterval", "1h")

	v.SetDefault("dashboard.timezone", "UTC")

	v.SetDefault("mqtt.broker", "tcp://127.0.0.1:1883")
	v.SetDefault("mqtt.clientid", "smarthome-ingestor")
	v.SetDefault("mqtt.topic", "home/+/sensors")
	v.SetDefault("mqtt.qos", 1)

	v.SetDefault("worker.stream", "smarthome:tasks")
	v.SetDefault("worker.group", "smarthome-workers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "30s")

	v.SetDefault("simulator.mode", "http")
	v.SetDefault("simulator.target", "http://127.0.0.1:3000/api/sensordata")
	v.SetDefault("simulator.location", "Living Room")
	v.SetDefault("simulator.interval", "5s")
	v.SetDefault("simulator.count", 0)
}
