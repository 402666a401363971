package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	DB     DBConfig     `mapstructure:"db"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
	Ledger LedgerConfig `mapstructure:"ledger"`
	Worker WorkerConfig `mapstructure:"worker"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

// DSN 返回 gorm postgres 驱动使用的连接串
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port)
}

// URL 返回 golang-migrate 使用的连接 URL
func (c DBConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" or "kafka"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
}

type LedgerConfig struct {
	DisplayPrecision  int32  `mapstructure:"display_precision"`    // network_limits 未配置精度时使用
	ReconcileSpec     string `mapstructure:"reconcile_spec"`       // cron 表达式
	RelayIntervalMs   int    `mapstructure:"relay_interval_ms"`    // outbox 轮询间隔
	ConfirmationTopic string `mapstructure:"confirmation_topic"`   // 外部索引器推送确认数的主题
	EventsTopic       string `mapstructure:"events_topic"`         // 账本事件主题
	LimitsCacheTTLSec int    `mapstructure:"limits_cache_ttl_sec"` // 提现限额缓存
	ReconcileWorkers  int    `mapstructure:"reconcile_workers"`
	InternalToken     string `mapstructure:"internal_token"` // 内部推送接口的共享密钥，为空不校验
	Testnet           bool   `mapstructure:"testnet"`        // BTC 地址按 testnet3 校验
}

type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

var Global Config

func Init() {
	// .env 只用于本地开发，找不到不算错误
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name
	viper.AddConfigPath(".")      // optionally look for config in the working directory
	viper.AddConfigPath("./config")

	// 环境变量设置: DB_HOST 覆盖 db.host
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "ledger_user")
	viper.SetDefault("db.password", "ledger_password")
	viper.SetDefault("db.name", "ledger_db")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.mq_type", "redis")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.group_id", "ledger_confirmation_group")

	viper.SetDefault("ledger.display_precision", 8)
	viper.SetDefault("ledger.reconcile_spec", "@every 5m")
	viper.SetDefault("ledger.relay_interval_ms", 500)
	viper.SetDefault("ledger.confirmation_topic", "chain_events_confirmation")
	viper.SetDefault("ledger.events_topic", "ledger_events")
	viper.SetDefault("ledger.limits_cache_ttl_sec", 300)
	viper.SetDefault("ledger.reconcile_workers", 4)
	viper.SetDefault("ledger.testnet", false)

	viper.SetDefault("worker.concurrency", 5)
}
