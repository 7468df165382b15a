package playback

import (
	"context"
	"errors"
	"strings"
	"time"

	"fitadmin/config"
	"fitadmin/internal/logger"
	"fitadmin/internal/metrics"
)

const (
	APINameHLSSessionURL = "GET_HLS_STREAMING_SESSION_URL"

	PlaybackModeOnDemand   = "ON_DEMAND"
	PlaybackModeLiveReplay = "LIVE_REPLAY"

	FragmentSelectorServerTimestamp = "SERVER_TIMESTAMP"
	ContainerFormatFragmentedMP4    = "FRAGMENTED_MP4"
	DiscontinuityModeAlways         = "ALWAYS"
	DisplayFragmentTimestampAlways  = "ALWAYS"

	MaxFragmentResults = 5000
	SessionExpiry      = time.Hour
	DefaultRegion      = "ap-northeast-1"
)

type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	PlaybackMode    string
}

func ConfigFrom(cfg config.Config) Config {
	return Config{
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		Region:          cfg.AWSRegion,
		PlaybackMode:    cfg.KVSPlaybackMode,
	}
}

func (c Config) validate() error {
	if strings.TrimSpace(c.AccessKeyID) == "" || strings.TrimSpace(c.SecretAccessKey) == "" {
		return ErrConfigurationMissing
	}
	return nil
}

// SessionRequest is everything the provider needs for the second call.
type SessionRequest struct {
	Endpoint                 string
	StreamName               string
	PlaybackMode             string
	FragmentSelectorType     string
	Window                   Window
	ContainerFormat          string
	DiscontinuityMode        string
	DisplayFragmentTimestamp string
	MaxFragmentResults       int64
	ExpiresSeconds           int32
}

// Provider is the streaming service. An empty endpoint or URL with a nil
// error is treated as unavailable.
type Provider interface {
	GetDataEndpoint(ctx context.Context, streamName, apiName string) (string, error)
	GetSessionURL(ctx context.Context, req SessionRequest) (string, error)
}

type Result struct {
	URL    string
	Window Window
}

type Negotiator struct {
	cfg       Config
	configErr error
	provider  Provider
	now       func() time.Time
	log       logger.Logger
}

// New checks the credentials once. A negotiator built without them still
// resolves but every Negotiate call fails with ErrConfigurationMissing before
// reaching the provider.
func New(cfg Config, provider Provider) *Negotiator {
	log := logger.New("playback").File("negotiator").Function("New")

	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.PlaybackMode == "" {
		cfg.PlaybackMode = PlaybackModeOnDemand
	}

	configErr := cfg.validate()
	if configErr != nil {
		log.Warn("KVS playback disabled", "reason", configErr.Error())
	}

	return &Negotiator{
		cfg:       cfg,
		configErr: configErr,
		provider:  provider,
		now:       time.Now,
		log:       logger.New("playback").File("negotiator"),
	}
}

func (n *Negotiator) WithClock(now func() time.Time) *Negotiator {
	n.now = now
	return n
}

func (n *Negotiator) Configured() bool {
	return n.configErr == nil
}

// Negotiate resolves the search window from hints and makes the two provider
// calls in order. Each call starts a fresh session; nothing is memoized.
func (n *Negotiator) Negotiate(ctx context.Context, hints Hints) (Result, error) {
	log := n.log.Function("Negotiate")

	if strings.TrimSpace(hints.StreamName) == "" {
		return Result{}, ErrStreamNameRequired
	}
	if n.configErr != nil {
		metrics.RecordPlaybackNegotiation(outcome(n.configErr), 0)
		return Result{}, n.configErr
	}

	window := Resolve(hints, n.now())
	started := time.Now()

	url, err := n.negotiate(ctx, hints.StreamName, window)
	metrics.RecordPlaybackNegotiation(outcome(err), time.Since(started))
	if err != nil {
		log.Warn("HLS negotiation failed",
			"streamName", hints.StreamName,
			"start", window.Start,
			"end", window.End,
			"error", err,
		)
		return Result{Window: window}, err
	}

	log.Info("HLS session issued", "streamName", hints.StreamName, "start", window.Start, "end", window.End)
	return Result{URL: url, Window: window}, nil
}

func (n *Negotiator) negotiate(ctx context.Context, streamName string, window Window) (string, error) {
	endpoint, err := n.provider.GetDataEndpoint(ctx, streamName, APINameHLSSessionURL)
	if err != nil {
		return "", classify(err, ErrEndpointUnavailable)
	}
	if endpoint == "" {
		return "", ErrEndpointUnavailable
	}

	url, err := n.provider.GetSessionURL(ctx, SessionRequest{
		Endpoint:                 endpoint,
		StreamName:               streamName,
		PlaybackMode:             n.cfg.PlaybackMode,
		FragmentSelectorType:     FragmentSelectorServerTimestamp,
		Window:                   window,
		ContainerFormat:          ContainerFormatFragmentedMP4,
		DiscontinuityMode:        DiscontinuityModeAlways,
		DisplayFragmentTimestamp: DisplayFragmentTimestampAlways,
		MaxFragmentResults:       MaxFragmentResults,
		ExpiresSeconds:           int32(SessionExpiry / time.Second),
	})
	if err != nil {
		return "", classify(err, ErrSessionUnavailable)
	}
	if url == "" {
		return "", ErrSessionUnavailable
	}

	return url, nil
}

func outcome(err error) string {
	var providerErr *ProviderError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrConfigurationMissing):
		return "configuration_missing"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrEndpointUnavailable):
		return "endpoint_unavailable"
	case errors.Is(err, ErrSessionUnavailable):
		return "session_unavailable"
	case errors.As(err, &providerErr):
		return "provider_error"
	default:
		return "error"
	}
}
