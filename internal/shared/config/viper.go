package config

import (
	"strings"
	"time"

	"github.com/deliverykit/calsync/internal/shared/logutil"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ViperConfig reads keys from the environment first and then from an optional config file.
type ViperConfig struct {
	log logutil.Log
	v   *viper.Viper
}

func NewViperConfig(log logutil.Log, v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	return &ViperConfig{
		log: log,
		v:   v,
	}
}

func NewViperConfigFromFile(log logutil.Log, path string) (*ViperConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}

	return NewViperConfig(log, v), nil
}

func (c ViperConfig) getValue(key string) string {
	return strings.TrimSpace(c.v.GetString(strings.ToUpper(key)))
}

func (c ViperConfig) GetString(key string) string {
	return c.getValue(key)
}

func (c ViperConfig) GetDuration(key string, def time.Duration) time.Duration {
	cfgStr := c.getValue(key)
	if cfgStr == "" {
		return def
	}

	d, err := time.ParseDuration(cfgStr)
	if err != nil {
		c.log.Warnf("Config: invalid %s %q: %s", key, cfgStr, err)
		return def
	}

	return d
}

func (c ViperConfig) GetInt(key string, def int) int {
	cfgStr := c.getValue(key)
	if cfgStr == "" {
		return def
	}

	v, err := cast.ToIntE(cfgStr)
	if err != nil {
		c.log.Warnf("Config: invalid %s %q: %s", key, cfgStr, err)
		return def
	}

	return v
}

func (c ViperConfig) GetBool(key string, def bool) bool {
	cfgStr := c.getValue(key)
	if cfgStr == "" {
		return def
	}

	v, err := cast.ToBoolE(cfgStr)
	if err != nil {
		c.log.Warnf("Config: invalid %s %q", key, cfgStr)
		return def
	}

	return v
}

// Set overrides a key, used by CLI flags.
func (c *ViperConfig) Set(key string, value interface{}) {
	c.v.Set(strings.ToUpper(key), value)
}
