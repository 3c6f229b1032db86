// Package config provides configuration parsing and validation for the
// triage service.
package config

import (
	"fmt"
	"time"
)

// Config holds all configuration parameters for the triage service.
type Config struct {
	KafkaBrokers        string
	RiskFlaggedTopic    string
	NotificationsTopic  string
	ConsumerGroupID     string
	PostgresDSN         string
	RedisAddr           string
	HTTPPort            string
	RecentRiskThreshold int
	RecentRiskWindow    time.Duration
	MessageTimeout      time.Duration
}

// Validate checks that all required configuration fields are set and have
// valid values. Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.KafkaBrokers == "" {
		return fmt.Errorf("kafka-brokers cannot be empty")
	}
	if c.RiskFlaggedTopic == "" {
		return fmt.Errorf("risk-flagged-topic cannot be empty")
	}
	if c.NotificationsTopic == "" {
		return fmt.Errorf("notifications-topic cannot be empty")
	}
	if c.ConsumerGroupID == "" {
		return fmt.Errorf("consumer-group-id cannot be empty")
	}
	if c.PostgresDSN == "" {
		return fmt.Errorf("postgres-dsn cannot be empty")
	}
	if c.HTTPPort == "" {
		return fmt.Errorf("http-port cannot be empty")
	}
	if c.RecentRiskThreshold <= 0 {
		return fmt.Errorf("recent-risk-threshold must be > 0")
	}
	if c.RecentRiskWindow <= 0 {
		return fmt.Errorf("recent-risk-window must be > 0")
	}
	if c.MessageTimeout <= 0 {
		return fmt.Errorf("message-timeout must be > 0")
	}
	return nil
}
