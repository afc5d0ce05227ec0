package implementations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deliverykit/calsync/internal/api/subsproviders/subsprovider"
	"github.com/deliverykit/calsync/internal/shared/logutil"
	"github.com/levigross/grequests"
	"github.com/pkg/errors"
)

const SealProviderName = "seal"

const maxLoggedBodyLen = 512

type SealOptions struct {
	Scheme         string
	AppPath        string
	RequestTimeout time.Duration
}

func DefaultSealOptions() SealOptions {
	return SealOptions{
		Scheme:         "https",
		AppPath:        "apps/seal",
		RequestTimeout: 10 * time.Second,
	}
}

// Seal talks to the Seal Subscriptions REST API of one shop.
type Seal struct {
	log logutil.Log

	apiKey         string
	apiRoot        string
	requestTimeout time.Duration
}

var _ subsprovider.Provider = &Seal{}

func NewSeal(log logutil.Log, apiKey, shopHost string, opts SealOptions) (*Seal, error) {
	if apiKey == "" {
		return nil, errors.New("no seal api key")
	}

	host, err := normalizeShopHost(shopHost)
	if err != nil {
		return nil, err
	}

	if opts.Scheme == "" {
		opts.Scheme = "https"
	}
	appPath := strings.Trim(opts.AppPath, "/")
	apiRoot := fmt.Sprintf("%s://%s/api/v1", opts.Scheme, host)
	if appPath != "" {
		apiRoot = fmt.Sprintf("%s://%s/%s/api/v1", opts.Scheme, host, appPath)
	}

	return &Seal{
		log:            log,
		apiKey:         apiKey,
		apiRoot:        apiRoot,
		requestTimeout: opts.RequestTimeout,
	}, nil
}

// normalizeShopHost accepts both "shop.example.com" and "https://shop.example.com/".
func normalizeShopHost(shop string) (string, error) {
	shop = strings.TrimSpace(shop)
	if shop == "" {
		return "", errors.New("no shop url")
	}

	if !strings.Contains(shop, "://") {
		return strings.TrimRight(shop, "/"), nil
	}

	u, err := url.Parse(shop)
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse shop url %q", shop)
	}
	if u.Host == "" {
		return "", fmt.Errorf("no host in shop url %q", shop)
	}

	return u.Host, nil
}

func (s Seal) Name() string {
	return SealProviderName
}

func (s Seal) APIRoot() string {
	return s.apiRoot
}

func (s Seal) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	ro := &grequests.RequestOptions{
		Context: ctx,
		Headers: map[string]string{
			"Authorization": "Bearer " + s.apiKey,
			"Accept":        "application/json",
		},
		UserAgent: "calsync",
	}
	if body != nil {
		ro.JSON = body
	}

	callErr := func(status int, err error) error {
		return &subsprovider.CallError{
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: status,
			Err:        err,
		}
	}

	resp, err := grequests.Req(method, s.apiRoot+endpoint, ro)
	if err != nil {
		return callErr(0, err)
	}

	if !resp.Ok {
		respBody := resp.String()
		if len(respBody) > maxLoggedBodyLen {
			respBody = respBody[:maxLoggedBodyLen] + "..."
		}
		return callErr(resp.StatusCode, fmt.Errorf("unexpected response: %s", respBody))
	}

	// 204 and other empty 2xx bodies leave out untouched
	respBytes := bytes.TrimSpace(resp.Bytes())
	if len(respBytes) != 0 {
		if err = json.Unmarshal(respBytes, out); err != nil {
			return callErr(resp.StatusCode, errors.Wrap(err, "failed to decode response json"))
		}
	}

	s.log.Debugf("seal", "%s %s: status %d", method, endpoint, resp.StatusCode)
	return nil
}

func subscriptionEndpoint(id string) string {
	return "/subscriptions/" + url.PathEscape(id)
}

func (s Seal) CreateSubscription(ctx context.Context, payload subsprovider.CreatePayload) (*subsprovider.Subscription, error) {
	var sub subsprovider.Subscription
	if err := s.do(ctx, http.MethodPost, "/subscriptions", payload, &sub); err != nil {
		return nil, err
	}
	if sub.ID == "" {
		return nil, &subsprovider.CallError{
			Method:     http.MethodPost,
			Endpoint:   "/subscriptions",
			StatusCode: http.StatusOK,
			Err:        subsprovider.ErrEmptyID,
		}
	}

	s.log.Infof("Created seal subscription %s for customer %s", sub.ID, payload.CustomerID)
	return &sub, nil
}

func (s Seal) GetSubscription(ctx context.Context, id string) (*subsprovider.Subscription, error) {
	var sub subsprovider.Subscription
	if err := s.do(ctx, http.MethodGet, subscriptionEndpoint(id), nil, &sub); err != nil {
		return nil, err
	}

	return &sub, nil
}

func (s Seal) UpdateSubscription(ctx context.Context, id string,
	payload subsprovider.UpdatePayload) (*subsprovider.Subscription, error) {

	var sub subsprovider.Subscription
	if err := s.do(ctx, http.MethodPatch, subscriptionEndpoint(id), payload, &sub); err != nil {
		return nil, err
	}
	if sub.ID == "" {
		sub.ID = id
	}

	return &sub, nil
}
