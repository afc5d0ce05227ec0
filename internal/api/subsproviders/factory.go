package subsproviders

import (
	"fmt"
	"time"

	"github.com/deliverykit/calsync/internal/api/subsproviders/implementations"
	"github.com/deliverykit/calsync/internal/api/subsproviders/subsprovider"
	"github.com/deliverykit/calsync/internal/shared/config"
	"github.com/deliverykit/calsync/internal/shared/logutil"
)

type Factory interface {
	// Build returns a retrying client for the given credentials.
	Build(apiKey, shopURL string) (subsprovider.Provider, error)

	// BuildDefault uses PROVIDER_API_KEY and PROVIDER_SHOP_URL from config.
	BuildDefault() (subsprovider.Provider, error)
}

type basicFactory struct {
	log      logutil.Log
	cfg      config.Config
	provider string
}

func NewBasicFactory(log logutil.Log, cfg config.Config) Factory {
	return &basicFactory{
		log:      log,
		cfg:      cfg,
		provider: implementations.SealProviderName,
	}
}

func (f basicFactory) buildImpl(apiKey, shopURL string) (subsprovider.Provider, error) {
	switch f.provider {
	case implementations.SealProviderName:
		opts := implementations.DefaultSealOptions()
		if scheme := f.cfg.GetString("PROVIDER_SCHEME"); scheme != "" {
			opts.Scheme = scheme
		}
		if appPath := f.cfg.GetString("PROVIDER_APP_PATH"); appPath != "" {
			opts.AppPath = appPath
		}
		opts.RequestTimeout = f.cfg.GetDuration("PROVIDER_REQUEST_TIMEOUT", opts.RequestTimeout)

		return implementations.NewSeal(f.log.Child("seal"), apiKey, shopURL, opts)
	default:
		return nil, fmt.Errorf("invalid provider name %q", f.provider)
	}
}

func (f basicFactory) Build(apiKey, shopURL string) (subsprovider.Provider, error) {
	p, err := f.buildImpl(apiKey, shopURL)
	if err != nil {
		return nil, err
	}

	return implementations.NewStableProvider(p, f.log.Child("retry"),
		f.cfg.GetDuration("PROVIDER_RETRY_BASE_DELAY", time.Second),
		f.cfg.GetInt("PROVIDER_MAX_ATTEMPTS", implementations.DefaultMaxAttempts)), nil
}

func (f basicFactory) BuildDefault() (subsprovider.Provider, error) {
	return f.Build(f.cfg.GetString("PROVIDER_API_KEY"), f.cfg.GetString("PROVIDER_SHOP_URL"))
}
