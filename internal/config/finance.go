package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// FinanceConfig is the club's finance settings object. It is read once at
// startup and swapped atomically when finance.yml changes on disk.
type FinanceConfig struct {
	ReferencePrefixes   map[string]string `mapstructure:"referencePrefixes"`
	RefundRetryAttempts int               `mapstructure:"refundRetryAttempts"`
	DefaultPageSize     int               `mapstructure:"defaultPageSize"`
	MaxPageSize         int               `mapstructure:"maxPageSize"`
}

// Source keys used in ReferencePrefixes.
const (
	SourceDonation     = "donation"
	SourceRegistration = "registration"
	SourceMembership   = "membership"
	SourceSponsorship  = "sponsorship"
	SourceEvent        = "event"
	SourceInvoice      = "invoice"
	SourceMerchandise  = "merchandise"
	SourceManual       = "manual"
	SourceLedger       = "ledger"
)

func DefaultFinanceConfig() FinanceConfig {
	return FinanceConfig{
		ReferencePrefixes: map[string]string{
			SourceDonation:     "DON",
			SourceRegistration: "REG",
			SourceMembership:   "MEM",
			SourceSponsorship:  "SPN",
			SourceEvent:        "EVT",
			SourceInvoice:      "INV",
			SourceMerchandise:  "MER",
			SourceManual:       "PAY",
			SourceLedger:       "TXN",
		},
		RefundRetryAttempts: 3,
		DefaultPageSize:     50,
		MaxPageSize:         500,
	}
}

// Prefix returns the reference prefix for source, falling back to the
// manual payment prefix.
func (c FinanceConfig) Prefix(source string) string {
	if p := strings.TrimSpace(c.ReferencePrefixes[strings.ToLower(source)]); p != "" {
		return strings.ToUpper(p)
	}
	if p := strings.TrimSpace(c.ReferencePrefixes[SourceManual]); p != "" {
		return strings.ToUpper(p)
	}
	return "PAY"
}

type FinanceConfigHolder struct {
	current atomic.Value // holds FinanceConfig
}

// NewStaticFinanceConfigHolder returns a holder that never reloads.
func NewStaticFinanceConfigHolder(cfg FinanceConfig) *FinanceConfigHolder {
	holder := &FinanceConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewFinanceConfigHolder(log *zap.Logger) (*FinanceConfigHolder, error) {
	log = log.Named("finance.config")
	v := viper.New()

	v.SetConfigName("finance")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/clubledger")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CLUBLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultFinanceConfig()
	v.SetDefault("finance.referencePrefixes", defaults.ReferencePrefixes)
	v.SetDefault("finance.refundRetryAttempts", defaults.RefundRetryAttempts)
	v.SetDefault("finance.defaultPageSize", defaults.DefaultPageSize)
	v.SetDefault("finance.maxPageSize", defaults.MaxPageSize)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
		log.Info("finance.yml not found, using defaults")
	}

	cfg, err := decodeFinanceConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticFinanceConfigHolder(cfg)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeFinanceConfig(v)
		if err != nil {
			log.Warn("finance config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("finance config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *FinanceConfigHolder) Get() FinanceConfig {
	return h.current.Load().(FinanceConfig)
}

func decodeFinanceConfig(v *viper.Viper) (FinanceConfig, error) {
	var cfg FinanceConfig
	if err := v.UnmarshalKey("finance", &cfg); err != nil {
		return FinanceConfig{}, err
	}
	defaults := DefaultFinanceConfig()
	merged := make(map[string]string, len(defaults.ReferencePrefixes))
	for k, p := range defaults.ReferencePrefixes {
		merged[k] = p
	}
	for k, p := range cfg.ReferencePrefixes {
		merged[strings.ToLower(k)] = p
	}
	cfg.ReferencePrefixes = merged
	if err := validateFinanceConfig(cfg); err != nil {
		return FinanceConfig{}, err
	}
	return cfg, nil
}

func validateFinanceConfig(cfg FinanceConfig) error {
	if cfg.RefundRetryAttempts < 1 {
		return errors.New("finance.refundRetryAttempts must be at least 1")
	}
	if cfg.DefaultPageSize < 1 {
		return errors.New("finance.defaultPageSize must be at least 1")
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		return errors.New("finance.maxPageSize must not be below defaultPageSize")
	}
	seen := make(map[string]string, len(cfg.ReferencePrefixes))
	for source, prefix := range cfg.ReferencePrefixes {
		prefix = strings.ToUpper(strings.TrimSpace(prefix))
		if prefix == "" || strings.ContainsAny(prefix, "- ") {
			return fmt.Errorf("finance.referencePrefixes.%s is invalid", source)
		}
		if prefix == "REFUND" {
			return fmt.Errorf("finance.referencePrefixes.%s collides with refund references", source)
		}
		if other, ok := seen[prefix]; ok {
			return fmt.Errorf("finance.referencePrefixes.%s duplicates %s", source, other)
		}
		seen[prefix] = source
	}
	return nil
}
