package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinanceConfigPrefix(t *testing.T) {
	cfg := DefaultFinanceConfig()
	assert.Equal(t, "DON", cfg.Prefix(SourceDonation))
	assert.Equal(t, "PAY", cfg.Prefix("unknown"))
}

func TestDecodeFinanceConfigMergesDefaults(t *testing.T) {
	v := viper.New()
	v.Set("finance.referencePrefixes", map[string]string{"Donation": "GIFT"})
	v.Set("finance.refundRetryAttempts", 5)
	v.Set("finance.defaultPageSize", 25)
	v.Set("finance.maxPageSize", 100)

	cfg, err := decodeFinanceConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "GIFT", cfg.Prefix(SourceDonation))
	assert.Equal(t, "REG", cfg.Prefix(SourceRegistration))
	assert.Equal(t, 5, cfg.RefundRetryAttempts)
}

func TestValidateFinanceConfigRejectsCollisions(t *testing.T) {
	cfg := DefaultFinanceConfig()
	cfg.ReferencePrefixes[SourceEvent] = "DON"
	assert.Error(t, validateFinanceConfig(cfg))

	cfg = DefaultFinanceConfig()
	cfg.ReferencePrefixes[SourceEvent] = "REFUND"
	assert.Error(t, validateFinanceConfig(cfg))

	cfg = DefaultFinanceConfig()
	cfg.RefundRetryAttempts = 0
	assert.Error(t, validateFinanceConfig(cfg))
}
