package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 60*time.Second, cfg.TokenTTL)
	assert.Equal(t, 15*time.Second, cfg.PayloadFreshness)
	assert.Equal(t, 0.58, cfg.BiometricThreshold)
	assert.Equal(t, 30, cfg.ScanRatePerMinute)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CHECKPOINT_TOKEN_TTL", "90s")
	t.Setenv("CHECKPOINT_BIOMETRIC_THRESHOLD", "0.55")
	t.Setenv("CHECKPOINT_NONCE_CACHE_SIZE", "128")

	cfg := FromEnv()
	assert.Equal(t, 90*time.Second, cfg.TokenTTL)
	assert.Equal(t, 0.55, cfg.BiometricThreshold)
	assert.Equal(t, 128, cfg.NonceCacheSize)
}

func TestAgentKeyring(t *testing.T) {
	cfg := Server{AgentKeys: "kiosk-1=$2a$10$hash, kiosk-2=$2a$10$other,,bad-pair"}
	keyring := cfg.AgentKeyring()
	assert.Equal(t, map[string]string{
		"kiosk-1": "$2a$10$hash",
		"kiosk-2": "$2a$10$other",
	}, keyring)
}

func TestDevSubjectIDs(t *testing.T) {
	t.Setenv("CHECKPOINT_DEV_SITE", "hq")
	t.Setenv("CHECKPOINT_DEV_SUBJECTS", "emp-1, emp-2,,emp-3")

	cfg := FromEnv()
	assert.Equal(t, "hq", cfg.DevSiteID)
	assert.Equal(t, []string{"emp-1", "emp-2", "emp-3"}, cfg.DevSubjectIDs())
	assert.Nil(t, Server{}.DevSubjectIDs())
}

func TestBrokers(t *testing.T) {
	cfg := Server{KafkaBrokers: "kafka-1:9092, kafka-2:9092,kafka-1:9092"}
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers())
	assert.Nil(t, Server{}.Brokers())
}
