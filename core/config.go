package core

import "time"

// MiningConfig 是挖掘 / 规则 / 推荐相关的配置接口，用于提供默认值。
type MiningConfig interface {
	// DefaultMinSupport 返回默认的最小支持度
	DefaultMinSupport() float64

	// DefaultMinConfidence 返回默认的最小置信度
	DefaultMinConfidence() float64

	// DefaultMetric 返回默认的规则过滤度量
	DefaultMetric() string

	// DefaultTopN 返回默认的推荐条数
	DefaultTopN() int

	// DefaultTimeout 返回默认的召回超时时间
	DefaultTimeout() time.Duration
}

// DefaultMiningConfig 是默认的配置实现。
type DefaultMiningConfig struct{}

func (c *DefaultMiningConfig) DefaultMinSupport() float64 {
	return 0.01
}

func (c *DefaultMiningConfig) DefaultMinConfidence() float64 {
	return 0.5
}

func (c *DefaultMiningConfig) DefaultMetric() string {
	return "confidence"
}

func (c *DefaultMiningConfig) DefaultTopN() int {
	return 5
}

func (c *DefaultMiningConfig) DefaultTimeout() time.Duration {
	return 2 * time.Second
}
