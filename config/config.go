package config

import (
	"errors"
	"github.com/spf13/viper"
	"strings"
)

type Config struct {
	App      App       `yaml:"app"`
	Server   Server    `yaml:"server"`
	Database Database  `yaml:"database"`
	Storage  Storage   `yaml:"storage"`
	Queue    *RabbitMQ `yaml:"rabbitmq"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort    string `yaml:"http_port"`
	Workers     int    `yaml:"workers"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Storage struct {
	Backend string `yaml:"backend"`
	Local   Local  `yaml:"local"`
	Minio   Minio  `yaml:"minio"`
	S3      S3     `yaml:"s3"`
}

type Local struct {
	Dir string `yaml:"dir"`
}

type Minio struct {
	URL             string `yaml:"url"`
	AccessID        string `yaml:"access_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Secure          bool   `yaml:"secure"`
}

type S3 struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type RabbitMQ struct {
	Enabled      bool   `json:"enabled"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "develop")
	v.SetDefault("server.port", "4000")
	v.SetDefault("server.workers", 1)
	v.SetDefault("server.max_upload_mb", 512)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data.db")
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local.dir", "uploads")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.kind", "topic")
	v.SetDefault("rabbitmq.exchange_name", "recording_exchange")
}

// Load reads config.yaml from path when present. Every key can be overridden
// from the environment, e.g. SERVER_PORT or STORAGE_BACKEND.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	port := v.GetString("server.port")
	if p := v.GetString("port"); p != "" {
		port = p
	}

	return &Config{
		App: App{
			Environment: v.GetString("app.environment"),
			Host:        v.GetString("app.host"),
			Protocol:    v.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort:    port,
			Workers:     v.GetInt("server.workers"),
			MaxUploadMB: v.GetInt64("server.max_upload_mb"),
		},
		Database: Database{
			Driver: v.GetString("database.driver"),
			DSN:    v.GetString("database.dsn"),
		},
		Storage: Storage{
			Backend: v.GetString("storage.backend"),
			Local: Local{
				Dir: v.GetString("storage.local.dir"),
			},
			Minio: Minio{
				URL:             v.GetString("storage.minio.url"),
				AccessID:        v.GetString("storage.minio.access_id"),
				SecretAccessKey: v.GetString("storage.minio.secret_access_key"),
				Bucket:          v.GetString("storage.minio.bucket"),
				Prefix:          v.GetString("storage.minio.prefix"),
				Secure:          v.GetBool("storage.minio.secure"),
			},
			S3: S3{
				Bucket:          v.GetString("storage.s3.bucket"),
				Region:          v.GetString("storage.s3.region"),
				Endpoint:        v.GetString("storage.s3.endpoint"),
				Prefix:          v.GetString("storage.s3.prefix"),
				AccessKeyID:     v.GetString("storage.s3.access_key_id"),
				SecretAccessKey: v.GetString("storage.s3.secret_access_key"),
			},
		},
		Queue: &RabbitMQ{
			Enabled:      v.GetBool("rabbitmq.enabled"),
			Host:         v.GetString("rabbitmq.host"),
			Port:         v.GetInt("rabbitmq.port"),
			User:         v.GetString("rabbitmq.user"),
			Pass:         v.GetString("rabbitmq.pass"),
			ExchangeName: v.GetString("rabbitmq.exchange_name"),
			Kind:         v.GetString("rabbitmq.kind"),
		},
	}, nil
}
