package config

import (
    "strings"
    "time"

    "github.com/spf13/viper"
)

// Config 服务配置（yaml + 环境变量覆盖）
type Config struct {
    Server struct {
        Addr  string `mapstructure:"addr"`
        Debug bool   `mapstructure:"debug"`
    } `mapstructure:"server"`

    Log struct {
        Level string `mapstructure:"level"`
    } `mapstructure:"log"`

    Database struct {
        DSN string `mapstructure:"dsn"`
        // ShardDSNs 非空时按 owner 哈希分片写 timeline log
        ShardDSNs    []string `mapstructure:"shard_dsns"`
        MaxOpenConns int      `mapstructure:"max_open_conns"`
        MaxIdleConns int      `mapstructure:"max_idle_conns"`
    } `mapstructure:"database"`

    Redis struct {
        Addr     string `mapstructure:"addr"`
        Password string `mapstructure:"password"`
        DB       int    `mapstructure:"db"`
    } `mapstructure:"redis"`

    Nats struct {
        URL       string `mapstructure:"url"`
        Stream    string `mapstructure:"stream"`
        Subject   string `mapstructure:"subject"`
        Durable   string `mapstructure:"durable"`
    } `mapstructure:"nats"`

    Sentry struct {
        DSN string `mapstructure:"dsn"`
    } `mapstructure:"sentry"`

    Otel struct {
        Endpoint string `mapstructure:"endpoint"`
        Enabled  bool   `mapstructure:"enabled"`
    } `mapstructure:"otel"`

    Timeline Timeline `mapstructure:"timeline"`
}

// Timeline push/pull 混合扇出模型的业务阈值
type Timeline struct {
    CelebrityThreshold     int64         `mapstructure:"celebrity_threshold"`
    MegaCelebrityThreshold int64         `mapstructure:"mega_celebrity_threshold"`
    CacheCapacity          int64         `mapstructure:"cache_capacity"`
    CacheTTL               time.Duration `mapstructure:"cache_ttl"`
    ActiveWindow           time.Duration `mapstructure:"active_window"`
    FanoutLimitCelebrity   int           `mapstructure:"fanout_limit_celebrity"`
    FanoutLimitMega        int           `mapstructure:"fanout_limit_mega"`
    FanoutBatchSize        int           `mapstructure:"fanout_batch_size"`
    FanoutConcurrency      int           `mapstructure:"fanout_concurrency"`
    FanoutMaxAttempts      int           `mapstructure:"fanout_max_attempts"`
    FanoutWritesPerSecond  int           `mapstructure:"fanout_writes_per_second"`
    FanoutBudget           time.Duration `mapstructure:"fanout_budget"`
    RequestDeadline        time.Duration `mapstructure:"request_deadline"`
    CallDeadline           time.Duration `mapstructure:"call_deadline"`
    CelebrityLookback      time.Duration `mapstructure:"celebrity_lookback"`
    ProfileCacheTTL        time.Duration `mapstructure:"profile_cache_ttl"`
}

// Load 读取 config.yaml（可选）并套用默认值；环境变量前缀 TIMELINE_
func Load() (*Config, error) {
    v := viper.New()
    v.SetConfigName("config")
    v.SetConfigType("yaml")
    v.AddConfigPath(".")
    v.AddConfigPath("./config")
    v.SetEnvPrefix("timeline")
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
    v.AutomaticEnv()

    setDefaults(v)

    if err := v.ReadInConfig(); err != nil {
        // 配置文件缺失时全部走默认值/环境变量
        if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
            return nil, err
        }
    }

    var cfg Config
    if err := v.Unmarshal(&cfg); err != nil {
        return nil, err
    }
    return &cfg, nil
}

func setDefaults(v *viper.Viper) {
    v.SetDefault("server.addr", ":8080")
    v.SetDefault("server.debug", false)
    v.SetDefault("log.level", "info")
    v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=timeline port=5432 sslmode=disable")
    v.SetDefault("database.max_open_conns", 50)
    v.SetDefault("database.max_idle_conns", 10)
    v.SetDefault("redis.addr", "localhost:6379")
    v.SetDefault("redis.db", 0)
    v.SetDefault("nats.url", "nats://localhost:4222")
    v.SetDefault("nats.stream", "POSTS")
    v.SetDefault("nats.subject", "post.created")
    v.SetDefault("nats.durable", "timeline-fanout")
    v.SetDefault("otel.enabled", false)

    v.SetDefault("timeline.celebrity_threshold", int64(1_000_000))
    v.SetDefault("timeline.mega_celebrity_threshold", int64(10_000_000))
    v.SetDefault("timeline.cache_capacity", int64(800))
    v.SetDefault("timeline.cache_ttl", 24*time.Hour)
    v.SetDefault("timeline.active_window", 7*24*time.Hour)
    v.SetDefault("timeline.fanout_limit_celebrity", 10_000)
    v.SetDefault("timeline.fanout_limit_mega", 1_000)
    v.SetDefault("timeline.fanout_batch_size", 1_000)
    v.SetDefault("timeline.fanout_concurrency", 8)
    v.SetDefault("timeline.fanout_max_attempts", 5)
    v.SetDefault("timeline.fanout_writes_per_second", 5_000)
    v.SetDefault("timeline.fanout_budget", 30*time.Second)
    v.SetDefault("timeline.request_deadline", 2*time.Second)
    v.SetDefault("timeline.call_deadline", 500*time.Millisecond)
    v.SetDefault("timeline.celebrity_lookback", 24*time.Hour)
    v.SetDefault("timeline.profile_cache_ttl", 5*time.Minute)
}
