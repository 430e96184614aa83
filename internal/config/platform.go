package config

import (
	"os"
	"strconv"
	"time"
)

type PlatformConfig struct {
	ManagementFeePercent float64
	DistributionLockTTL  time.Duration
}

func LoadPlatformConfig() *PlatformConfig {
	return &PlatformConfig{
		ManagementFeePercent: getEnvAsFloat("PLATFORM_MANAGEMENT_FEE_PERCENT", 10.0),
		DistributionLockTTL:  getEnvAsDuration("PLATFORM_DISTRIBUTION_LOCK_TTL", 2*time.Minute),
	}
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
