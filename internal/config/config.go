package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 包含所有应用配置
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	AliyunOSS     AliyunOSSConfig     `mapstructure:"aliyun_oss"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Log           LogConfig           `mapstructure:"log"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Share         ShareConfig         `mapstructure:"share"`
	Upload        UploadConfig        `mapstructure:"upload"`
	User          UserConfig          `mapstructure:"user"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release / test
}

// DatabaseConfig Driver 可选 mysql / postgres / sqlite
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

type AliyunOSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"` // 例如: oss-cn-hangzhou.aliyuncs.com
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

type JWTConfig struct {
	SecretKey string        `mapstructure:"secret_key"`
	ExpiresIn time.Duration `mapstructure:"expires_in"`
	Issuer    string        `mapstructure:"issuer"`
}

// StorageConfig Type 可选 local / minio / aliyun_oss
type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalBasePath string `mapstructure:"local_base_path"`
	BucketName    string `mapstructure:"bucket_name"` // local 存储下作为子目录
}

type LogConfig struct {
	OutputPath string `mapstructure:"output_path"`
	ErrorPath  string `mapstructure:"error_path"`
	Level      string `mapstructure:"level"`
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type ShareConfig struct {
	FrontendURL string        `mapstructure:"frontend_url"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

type UploadConfig struct {
	MaxFiles    int   `mapstructure:"max_files"`
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

type UserConfig struct {
	DefaultQuota int64 `mapstructure:"default_quota"`
}

// DefaultQuota 30 GiB
const DefaultQuota int64 = 30 * 1024 * 1024 * 1024

var AppConfig *Config

// SetDefaults 注册所有默认值，没有配置文件时也能启动
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "root:root@tcp(localhost:3306)/supfile?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.bucket_name", "supfile")
	v.SetDefault("aliyun_oss.bucket_name", "supfile")
	v.SetDefault("jwt.secret_key", "change-me")
	v.SetDefault("jwt.expires_in", 7*24*time.Hour)
	v.SetDefault("jwt.issuer", "supfile")
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_base_path", "./uploads")
	v.SetDefault("storage.bucket_name", "files")
	v.SetDefault("log.output_path", "logs/app.log")
	v.SetDefault("log.error_path", "logs/error.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("elasticsearch.enabled", false)
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.index", "supfile-items")
	v.SetDefault("share.frontend_url", "http://localhost:3000")
	v.SetDefault("share.cache_ttl", 10*time.Minute)
	v.SetDefault("upload.max_files", 10)
	v.SetDefault("upload.max_file_size", int64(100*1024*1024))
	v.SetDefault("user.default_quota", DefaultQuota)
}

// LoadConfig 加载配置: 默认值 < 配置文件 < 环境变量
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/supfile/")

	// 例如 SUPFILE_DATABASE_DSN 对应 database.dsn
	v.SetEnvPrefix("SUPFILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Println("Warning: config file not found, using environment variables or default values.")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	AppConfig = cfg
	log.Println("Configuration loaded successfully with Viper.")
	return cfg, nil
}
