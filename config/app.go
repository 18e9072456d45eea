package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/assockit/core"
	"github.com/rushteam/assockit/rules"
)

// EnvPrefix 是环境变量前缀，例如 ASSOCKIT_MINING_MIN_SUPPORT=0.02。
const EnvPrefix = "ASSOCKIT_"

// ConfigPathEnvVar 指定配置文件路径。
const ConfigPathEnvVar = "ASSOCKIT_CONFIG"

// DefaultConfigPaths 是未显式指定时依次查找的配置文件。
var DefaultConfigPaths = []string{
	"assockit.yaml",
	"assockit.yml",
	"/etc/assockit/config.yaml",
}

// AppConfig 是应用级配置：默认值 → YAML 文件 → ASSOCKIT_ 环境变量。
type AppConfig struct {
	Mining    MiningSection    `koanf:"mining"`
	Rules     RulesSection     `koanf:"rules"`
	Recommend RecommendSection `koanf:"recommend"`
	Store     StoreSection     `koanf:"store"`
	Log       LogSection       `koanf:"log"`
}

type MiningSection struct {
	MinSupport float64 `koanf:"min_support"`
	Workers    int     `koanf:"workers"` // 0 表示 GOMAXPROCS
}

type RulesSection struct {
	Metric       string  `koanf:"metric"`        // confidence / lift / leverage / conviction
	MinThreshold float64 `koanf:"min_threshold"` // 按 Metric 过滤的阈值
}

type RecommendSection struct {
	TopN          int     `koanf:"top_n"` // <= 0 表示不截断
	MinConfidence float64 `koanf:"min_confidence"`
}

type StoreSection struct {
	Backend        string `koanf:"backend"` // memory / redis / badger
	Key            string `koanf:"key"`     // 快照 key
	RedisAddr      string `koanf:"redis_addr"`
	RedisDB        int    `koanf:"redis_db"`
	BadgerPath     string `koanf:"badger_path"`
	BadgerInMemory bool   `koanf:"badger_in_memory"`
}

type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json / console
}

// DefaultAppConfig 返回内置默认配置。
func DefaultAppConfig() *AppConfig {
	d := &core.DefaultMiningConfig{}
	return &AppConfig{
		Mining: MiningSection{MinSupport: d.DefaultMinSupport()},
		Rules: RulesSection{
			Metric:       d.DefaultMetric(),
			MinThreshold: d.DefaultMinConfidence(),
		},
		Recommend: RecommendSection{
			TopN:          d.DefaultTopN(),
			MinConfidence: d.DefaultMinConfidence(),
		},
		Store: StoreSection{
			Backend:    "memory",
			Key:        "assockit:snapshot",
			RedisAddr:  "127.0.0.1:6379",
			BadgerPath: "./data/assockit",
		},
		Log: LogSection{Level: "info", Format: "json"},
	}
}

// LoadAppConfig 加载配置。path 为空时依次尝试 ASSOCKIT_CONFIG 与 DefaultConfigPaths，
// 都不存在则只使用默认值与环境变量。
func LoadAppConfig(path string) (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultAppConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &AppConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sections = []string{"mining", "rules", "recommend", "store", "log"}

// envTransformFunc 把 ASSOCKIT_MINING_MIN_SUPPORT 映射为 mining.min_support，
// 不属于任何配置段的变量（例如 ASSOCKIT_CONFIG）返回空串被忽略。
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	for _, s := range sections {
		if rest, ok := strings.CutPrefix(key, s+"_"); ok && rest != "" {
			return s + "." + rest
		}
	}
	return ""
}

// Validate 校验取值范围。
func (c *AppConfig) Validate() error {
	if !(c.Mining.MinSupport > 0 && c.Mining.MinSupport <= 1) {
		return core.InvalidInputError(core.ModuleConfig, "min_support must be in (0, 1]", "mining.min_support", c.Mining.MinSupport)
	}
	if c.Mining.Workers < 0 {
		return core.InvalidInputError(core.ModuleConfig, "workers must not be negative", "mining.workers", c.Mining.Workers)
	}
	metric, err := rules.ParseMetric(c.Rules.Metric)
	if err != nil {
		return err
	}
	if err := metric.ValidateThreshold(c.Rules.MinThreshold); err != nil {
		return err
	}
	if math.IsNaN(c.Recommend.MinConfidence) || c.Recommend.MinConfidence < 0 || c.Recommend.MinConfidence > 1 {
		return core.InvalidInputError(core.ModuleConfig, "min_confidence must be in [0, 1]", "recommend.min_confidence", c.Recommend.MinConfidence)
	}
	switch c.Store.Backend {
	case "memory", "redis", "badger":
	default:
		return core.InvalidInputError(core.ModuleConfig, "unknown store backend", "store.backend", c.Store.Backend)
	}
	if c.Store.Key == "" {
		return core.InvalidInputError(core.ModuleConfig, "store key must not be empty", "store.key", c.Store.Key)
	}
	return nil
}
