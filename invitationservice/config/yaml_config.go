// --- File: invitationservice/config/yaml_config.go ---
package config

import (
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
)

type YamlCorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	Role           string   `yaml:"role"`
}

type YamlRedisConfig struct {
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	CacheEnabled bool   `yaml:"cache_enabled"`
}

type YamlAWSConfig struct {
	Region                 string `yaml:"region"`
	PlatformApplicationARN string `yaml:"platform_application_arn"`
	SendFromEmail          string `yaml:"send_from_email"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	ProjectID              string          `yaml:"project_id"`
	ListenAddr             string          `yaml:"listen_addr"`
	Domain                 string          `yaml:"domain"`
	StorageBackend         string          `yaml:"storage_backend"`
	TopicID                string          `yaml:"topic_id"`
	SubscriptionID         string          `yaml:"subscription_id"`
	SubscriptionDLQTopicID string          `yaml:"subscription_dlq_topic_id"`
	CorsConfig             YamlCorsConfig  `yaml:"cors"`
	RedisConfig            YamlRedisConfig `yaml:"redis"`
	AWSConfig              YamlAWSConfig   `yaml:"aws"`
	NumPipelineWorkers     int             `yaml:"num_pipeline_workers"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	cfg := &Config{
		ProjectID:      baseCfg.ProjectID,
		ListenAddr:     baseCfg.ListenAddr,
		Domain:         baseCfg.Domain,
		StorageBackend: baseCfg.StorageBackend,
		TopicID:        baseCfg.TopicID,
		SubscriptionID: baseCfg.SubscriptionID,
		CorsConfig: middleware.CorsConfig{
			AllowedOrigins: baseCfg.CorsConfig.AllowedOrigins,
			Role:           middleware.CorsRole(baseCfg.CorsConfig.Role),
		},
		Redis: RedisConfig{
			Addr:         baseCfg.RedisConfig.Addr,
			Password:     baseCfg.RedisConfig.Password,
			DB:           baseCfg.RedisConfig.DB,
			CacheEnabled: baseCfg.RedisConfig.CacheEnabled,
		},
		AWS: AWSConfig{
			Region:                 baseCfg.AWSConfig.Region,
			PlatformApplicationARN: baseCfg.AWSConfig.PlatformApplicationARN,
			SendFromEmail:          baseCfg.AWSConfig.SendFromEmail,
		},
		SubscriptionDLQTopicID: baseCfg.SubscriptionDLQTopicID,
		NumPipelineWorkers:     baseCfg.NumPipelineWorkers,
	}

	if cfg.SubscriptionID != "" {
		cfg.PubsubConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(cfg.SubscriptionID)
	}

	logger.Debug("YAML config mapping complete",
		"project_id", cfg.ProjectID,
		"listen_addr", cfg.ListenAddr,
		"storage_backend", cfg.StorageBackend,
	)

	return cfg, nil
}
