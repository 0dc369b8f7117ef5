package api_gateway_config

import (
	"time"

	"github.com/NordCoder/enotary/internal/obs"
	"github.com/NordCoder/enotary/internal/outbox"
	pg "github.com/NordCoder/enotary/internal/repository/postgres"
	rds "github.com/NordCoder/enotary/internal/repository/redis"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	GRPCAddr        string        `mapstructure:"grpc_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type Kafka struct {
	Enable            bool     `mapstructure:"enable"`
	Brokers           []string `mapstructure:"brokers"`
	SecurityTopic     string   `mapstructure:"security_topic"`
	Partitions        int      `mapstructure:"partitions"`
	ReplicationFactor int      `mapstructure:"replication_factor"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (lc *Log) AsLoggerConfig(app App) obs.LogConfig {
	return obs.LogConfig{
		Level:  lc.Level,
		Pretty: lc.Pretty,
		App:    "enotary/" + app.Name,
		Env:    app.Env,
		Ver:    app.Version,
	}
}

type Auth struct {
	JWTSecret        string        `mapstructure:"jwt_secret"`
	Issuer           string        `mapstructure:"issuer"`
	AccessTTL        time.Duration `mapstructure:"access_ttl"`
	RefreshTTL       time.Duration `mapstructure:"refresh_ttl"`
	RevokeAllOnReuse bool          `mapstructure:"revoke_all_on_reuse"`
	LoginRPS         float64       `mapstructure:"login_rps"`
	LoginBurst       int           `mapstructure:"login_burst"`
	BcryptCost       int           `mapstructure:"bcrypt_cost"`
}

type Admin struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Phone    string `mapstructure:"phone"`
}

type Storage struct {
	Driver         string `mapstructure:"driver"`
	UploadDir      string `mapstructure:"upload_dir"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

type Config struct {
	App     App                 `mapstructure:"app"`
	Server  Server              `mapstructure:"server"`
	DB      pg.Config           `mapstructure:"db"`
	Redis   rds.Config          `mapstructure:"redis"`
	Kafka   Kafka               `mapstructure:"kafka"`
	OTEL    OTEL                `mapstructure:"otel"`
	Log     Log                 `mapstructure:"log"`
	Auth    Auth                `mapstructure:"auth"`
	Admin   Admin               `mapstructure:"admin"`
	Storage Storage             `mapstructure:"storage"`
	Outbox  outbox.RunnerConfig `mapstructure:"outbox"`
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
