package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 是听歌识曲核心的顶层配置结构。
type Config struct {
	Sampler     SamplerConfig     `yaml:"sampler"`
	Fingerprint FingerprintConfig `yaml:"fingerprint"`
	Offsets     OffsetsConfig     `yaml:"offsets"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Database    DatabaseConfig    `yaml:"database"`
	Log         LogConfig         `yaml:"log"`
}

// SamplerConfig 流采样配置。
type SamplerConfig struct {
	// TargetSeconds 目标采样时长（秒）。
	TargetSeconds int `yaml:"target_seconds"`
	// HardTimeoutSeconds 采样硬超时（秒），低码率电台不会无限等待。
	HardTimeoutSeconds int `yaml:"hard_timeout_seconds"`
	// BitrateKbps 估算码率（kbps），用于把时长换算成目标字节数。
	BitrateKbps int `yaml:"bitrate_kbps"`
	// MinViableBytes 低于此字节数视为采样失败。
	MinViableBytes int `yaml:"min_viable_bytes"`
	// HLSSegments HLS 流最多下载的 ts 片段数。
	HLSSegments int `yaml:"hls_segments"`
}

// FingerprintConfig 指纹识别服务配置。
type FingerprintConfig struct {
	// Secondary 付费兜底引擎："acrcloud" 或 "tencent"，为空则禁用兜底。
	Secondary string         `yaml:"secondary"`
	ACRCloud  ACRCloudConfig `yaml:"acrcloud"`
	Tencent   TencentConfig  `yaml:"tencent"`
}

// ACRCloudConfig ACRCloud 识别配置。
type ACRCloudConfig struct {
	Host         string `yaml:"host"`
	AccessKey    string `yaml:"access_key"`
	AccessSecret string `yaml:"access_secret"`
}

// TencentConfig 腾讯云 AME 听歌识曲配置。
type TencentConfig struct {
	SecretID  string `yaml:"secret_id"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
}

// OffsetsConfig 播放位置修正常量（秒）。
// 每个指纹服务对不同流类型存在固定的经验延迟偏差，这里允许按需调整。
type OffsetsConfig struct {
	Primary   OffsetPair `yaml:"primary"`
	Secondary OffsetPair `yaml:"secondary"`
}

// OffsetPair 区分 HLS 分片流与直连流的修正值。
// 显式配置的 0 同样生效，只有未配置的字段才落默认值。
type OffsetPair struct {
	HLS    float64 `yaml:"hls"`
	Direct float64 `yaml:"direct"`

	hlsSet    bool
	directSet bool
}

// UnmarshalYAML 记录字段是否被显式设置，区分 0 和"未配置"。
func (p *OffsetPair) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		HLS    *float64 `yaml:"hls"`
		Direct *float64 `yaml:"direct"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.HLS != nil {
		p.HLS = *raw.HLS
		p.hlsSet = true
	}
	if raw.Direct != nil {
		p.Direct = *raw.Direct
		p.directSet = true
	}
	return nil
}

// CatalogConfig 歌曲目录搜索后端配置。
type CatalogConfig struct {
	// QQBaseURL QQ 音乐搜索接口基础地址。
	QQBaseURL string `yaml:"qq_base_url"`
	// NeteaseBaseURL 网易云音乐接口基础地址。
	NeteaseBaseURL string `yaml:"netease_base_url"`
	// ITunesBaseURL iTunes 查询接口基础地址（发行日期补全）。
	ITunesBaseURL string `yaml:"itunes_base_url"`
}

// DatabaseConfig 数据库配置。
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	// 展开环境变量，如 ${RADIOAPP_ACR_SECRET}
	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// Default 返回一份填充了默认值的配置。
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.Sampler.TargetSeconds == 0 {
		cfg.Sampler.TargetSeconds = 15
	}
	if cfg.Sampler.HardTimeoutSeconds == 0 {
		cfg.Sampler.HardTimeoutSeconds = 12
	}
	if cfg.Sampler.BitrateKbps == 0 {
		cfg.Sampler.BitrateKbps = 128
	}
	if cfg.Sampler.MinViableBytes == 0 {
		cfg.Sampler.MinViableBytes = 1000
	}
	if cfg.Sampler.HLSSegments == 0 {
		cfg.Sampler.HLSSegments = 3
	}

	if cfg.Fingerprint.ACRCloud.Host == "" {
		cfg.Fingerprint.ACRCloud.Host = "identify-ap-southeast-1.acrcloud.com"
	}
	if cfg.Fingerprint.Tencent.Region == "" {
		cfg.Fingerprint.Tencent.Region = "ap-guangzhou"
	}

	// 经验修正值：主引擎对 HLS 分片流有约 -12s 的整体滞后，
	// 兜底引擎对两类流均有约 -0.5s 偏差。可按实际电台调整。
	if !cfg.Offsets.Primary.hlsSet {
		cfg.Offsets.Primary.HLS = -12
	}
	if !cfg.Offsets.Primary.directSet {
		cfg.Offsets.Primary.Direct = -0.5
	}
	if !cfg.Offsets.Secondary.hlsSet {
		cfg.Offsets.Secondary.HLS = -0.5
	}
	if !cfg.Offsets.Secondary.directSet {
		cfg.Offsets.Secondary.Direct = -0.5
	}

	if cfg.Catalog.QQBaseURL == "" {
		cfg.Catalog.QQBaseURL = "https://c.y.qq.com"
	}
	if cfg.Catalog.NeteaseBaseURL == "" {
		cfg.Catalog.NeteaseBaseURL = "http://music.163.com"
	}
	if cfg.Catalog.ITunesBaseURL == "" {
		cfg.Catalog.ITunesBaseURL = "https://itunes.apple.com"
	}

	if cfg.Database.Path == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.Database.Path = home + "/.radioapp/radioapp.db"
		} else {
			cfg.Database.Path = "./radioapp.db"
		}
	} else if strings.HasPrefix(cfg.Database.Path, "~/") {
		// Go 不会自动展开 ~，需要手动替换为用户主目录
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.Database.Path = home + cfg.Database.Path[1:]
		}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// 去除密钥两端可能的空白（环境变量展开后常见）
	cfg.Fingerprint.ACRCloud.AccessKey = strings.TrimSpace(cfg.Fingerprint.ACRCloud.AccessKey)
	cfg.Fingerprint.ACRCloud.AccessSecret = strings.TrimSpace(cfg.Fingerprint.ACRCloud.AccessSecret)
	cfg.Fingerprint.Tencent.SecretID = strings.TrimSpace(cfg.Fingerprint.Tencent.SecretID)
	cfg.Fingerprint.Tencent.SecretKey = strings.TrimSpace(cfg.Fingerprint.Tencent.SecretKey)
}
