package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "order-created-topic", cfg.Kafka.TopicOrderCreated)
	assert.Equal(t, "payment-created-topic", cfg.Kafka.TopicPaymentCreated)
	assert.Equal(t, "order-service-group", cfg.Kafka.ConsumerGroup)
	assert.Equal(t, 5, cfg.Business.DefaultPageSize)
	assert.Equal(t, 0.5, cfg.Breaker.FailureRatio)
	assert.Contains(t, cfg.UserService.ByIDPath, "{id}")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("USER_SERVICE_URL", "http://users:8080/")
	t.Setenv("USER_SERVICE_TIMEOUT_MS", "750")
	t.Setenv("BREAKER_FAILURE_RATIO", "0.25")
	t.Setenv("BREAKER_OPEN_SECONDS", "30")
	t.Setenv("DB_AUTO_MIGRATE", "false")

	cfg := Load()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "http://users:8080", cfg.UserService.URL)
	assert.Equal(t, 750*time.Millisecond, cfg.UserService.Timeout)
	assert.Equal(t, 0.25, cfg.Breaker.FailureRatio)
	assert.Equal(t, 30*time.Second, cfg.Breaker.OpenTimeout)
	assert.False(t, cfg.Database.AutoMigrate)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("BREAKER_FAILURE_RATIO", "2")
	t.Setenv("BREAKER_MIN_REQUESTS", "many")
	t.Setenv("MAX_PAGE_SIZE", "-4")

	cfg := Load()

	assert.Equal(t, 0.5, cfg.Breaker.FailureRatio)
	assert.Equal(t, uint32(5), cfg.Breaker.MinRequests)
	assert.Equal(t, 100, cfg.Business.MaxPageSize)
}
