// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек бота
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" validate:"required"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	DailyLimit              int    `yaml:"daily_limit" env:"DAILY_LIMIT" env-default:"10" validate:"gt=0"`
	OutputDir               string `yaml:"output_dir" env:"OUTPUT_DIR" env-default:"output_video"`
	RabbitMQURL             string `yaml:"rabbitmq_url" env:"RABBITMQ_URL"`
	Telegram                `yaml:"telegram"`
	RedisConnection         `yaml:"redis_connection"`
	OpsServer               `yaml:"ops_server"`
	Extractor               `yaml:"extractor"`
}

// Telegram структура для настройки транспорта Telegram
type Telegram struct {
	Token       string `yaml:"token" env:"TELEGRAM_BOT_TOKEN" validate:"required"`
	PollTimeout int    `yaml:"poll_timeout" env-default:"60"`
	SupportURL  string `yaml:"support_url" env-default:"https://t.me/yoursupport"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"5s"`
}

// OpsServer структура для настройки служебного HTTP-сервера (health, metrics)
type OpsServer struct {
	AddressOps  string        `yaml:"addressops" env-default:":8081"`
	TimeoutOps  time.Duration `yaml:"timeoutops" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// Extractor структура для настройки клиента сервиса извлечения видео
type Extractor struct {
	HomeURL           string        `yaml:"home_url" env-default:"https://svxtract.com/"`
	DownloadURL       string        `yaml:"download_url" env-default:"https://svxtract.com/function/download/downloader.php"`
	RequestTimeout    time.Duration `yaml:"request_timeout" env-default:"45s"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env-default:"1"`
	Burst             int           `yaml:"burst" env-default:"2"`
}

// MustLoad функция для загрузки конфига, путь к файлу берётся из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		log.Fatalf("invalid config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"MigrationsPath: %s\n"+
			"DailyLimit: %d\n"+
			"OutputDir: %s\n"+
			"RabbitMQURL: %s\n"+
			"Telegram:\n"+
			"  PollTimeout: %d\n"+
			"  SupportURL: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"  MaxRetries: %d\n"+
			"  DialTimeout: %s\n"+
			"  Timeout: %s\n"+
			"OpsServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Extractor:\n"+
			"  HomeURL: %s\n"+
			"  DownloadURL: %s\n"+
			"  RequestTimeout: %s\n",
		c.Env,
		c.StorageConnectionString,
		c.MigrationsPath,
		c.DailyLimit,
		c.OutputDir,
		c.RabbitMQURL,
		c.PollTimeout,
		c.SupportURL,
		c.AddressRedis,
		c.DB,
		c.MaxRetries,
		c.DialTimeout,
		c.TimeoutRedis,
		c.AddressOps,
		c.TimeoutOps,
		c.IdleTimeout,
		c.HomeURL,
		c.DownloadURL,
		c.RequestTimeout,
	)
}
