package playback

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kinesisvideo"
	kvtypes "github.com/aws/aws-sdk-go-v2/service/kinesisvideo/types"
	"github.com/aws/aws-sdk-go-v2/service/kinesisvideoarchivedmedia"
	amtypes "github.com/aws/aws-sdk-go-v2/service/kinesisvideoarchivedmedia/types"
)

// AWSProvider talks to Kinesis Video Streams. The archived media client is
// built per call because its base endpoint is the per-stream data endpoint.
type AWSProvider struct {
	awsCfg     aws.Config
	control    *kinesisvideo.Client
	httpClient aws.HTTPClient
	baseURL    string
}

type AWSOption func(*AWSProvider)

// WithHTTPClient replaces the transport for both clients.
func WithHTTPClient(client aws.HTTPClient) AWSOption {
	return func(p *AWSProvider) { p.httpClient = client }
}

// WithControlEndpoint points the control plane client at a fixed URL.
func WithControlEndpoint(url string) AWSOption {
	return func(p *AWSProvider) { p.baseURL = url }
}

func NewAWSProvider(ctx context.Context, cfg Config, opts ...AWSOption) (*AWSProvider, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	p := &AWSProvider{awsCfg: awsCfg}
	for _, opt := range opts {
		opt(p)
	}

	p.control = kinesisvideo.NewFromConfig(awsCfg, func(o *kinesisvideo.Options) {
		if p.httpClient != nil {
			o.HTTPClient = p.httpClient
		}
		if p.baseURL != "" {
			o.BaseEndpoint = aws.String(p.baseURL)
		}
	})

	return p, nil
}

func (p *AWSProvider) GetDataEndpoint(ctx context.Context, streamName, apiName string) (string, error) {
	out, err := p.control.GetDataEndpoint(ctx, &kinesisvideo.GetDataEndpointInput{
		StreamName: aws.String(streamName),
		APIName:    kvtypes.APIName(apiName),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.DataEndpoint), nil
}

func (p *AWSProvider) GetSessionURL(ctx context.Context, req SessionRequest) (string, error) {
	media := kinesisvideoarchivedmedia.NewFromConfig(p.awsCfg, func(o *kinesisvideoarchivedmedia.Options) {
		o.BaseEndpoint = aws.String(req.Endpoint)
		if p.httpClient != nil {
			o.HTTPClient = p.httpClient
		}
	})

	start := req.Window.Start
	end := req.Window.End
	out, err := media.GetHLSStreamingSessionURL(ctx, &kinesisvideoarchivedmedia.GetHLSStreamingSessionURLInput{
		StreamName:   aws.String(req.StreamName),
		PlaybackMode: amtypes.HLSPlaybackMode(req.PlaybackMode),
		HLSFragmentSelector: &amtypes.HLSFragmentSelector{
			FragmentSelectorType: amtypes.HLSFragmentSelectorType(req.FragmentSelectorType),
			TimestampRange: &amtypes.HLSTimestampRange{
				StartTimestamp: &start,
				EndTimestamp:   &end,
			},
		},
		ContainerFormat:                 amtypes.ContainerFormat(req.ContainerFormat),
		DiscontinuityMode:               amtypes.HLSDiscontinuityMode(req.DiscontinuityMode),
		DisplayFragmentTimestamp:        amtypes.HLSDisplayFragmentTimestamp(req.DisplayFragmentTimestamp),
		MaxMediaPlaylistFragmentResults: aws.Int64(req.MaxFragmentResults),
		Expires:                         aws.Int32(req.ExpiresSeconds),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.HLSStreamingSessionURL), nil
}

var _ Provider = (*AWSProvider)(nil)
