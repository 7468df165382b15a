package playback

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kvsCall struct {
	host string
	path string
	body map[string]any
}

// kvsRoundTripper answers the two Kinesis Video REST-JSON operations.
type kvsRoundTripper struct {
	mu        sync.Mutex
	calls     []kvsCall
	endpoint  string
	sessionOK bool
	errorType string
	status    int
}

func (m *kvsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var body map[string]any
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(raw, &body)
	}

	m.mu.Lock()
	m.calls = append(m.calls, kvsCall{host: req.URL.Host, path: req.URL.Path, body: body})
	m.mu.Unlock()

	if m.errorType != "" {
		header := http.Header{
			"Content-Type":     {"application/json"},
			"X-Amzn-Errortype": {m.errorType + ":http://internal.amazon.com/coral/com.amazonaws.kinesis.video/"},
		}
		payload := `{"Message":"provider said no"}`
		return &http.Response{StatusCode: m.status, Header: header, Body: io.NopCloser(strings.NewReader(payload))}, nil
	}

	var payload string
	switch req.URL.Path {
	case "/getDataEndpoint":
		payload = `{"DataEndpoint":"` + m.endpoint + `"}`
	case "/getHLSStreamingSessionURL":
		if m.sessionOK {
			payload = `{"HLSStreamingSessionURL":"https://media.kvs.test/hls/v1/getHLSMasterPlaylist.m3u8?SessionToken=abc"}`
		} else {
			payload = `{}`
		}
	default:
		return &http.Response{StatusCode: http.StatusNotFound, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(`{}`))}, nil
	}

	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(payload)),
	}, nil
}

func newTestAWSProvider(t *testing.T, rt *kvsRoundTripper) *AWSProvider {
	t.Helper()
	provider, err := NewAWSProvider(context.Background(), validConfig,
		WithHTTPClient(&http.Client{Transport: rt}),
		WithControlEndpoint("https://kinesisvideo.kvs.test"),
	)
	require.NoError(t, err)
	return provider
}

func TestAWSProvider_TwoStepNegotiation(t *testing.T) {
	rt := &kvsRoundTripper{endpoint: "https://b-1234.kvs.test", sessionOK: true}
	negotiator := New(validConfig, newTestAWSProvider(t, rt))

	result, err := negotiator.Negotiate(context.Background(), Hints{StreamName: "exam-1766572119961"})
	require.NoError(t, err)
	assert.Contains(t, result.URL, "getHLSMasterPlaylist.m3u8")

	require.Len(t, rt.calls, 2)

	endpointCall := rt.calls[0]
	assert.Equal(t, "kinesisvideo.kvs.test", endpointCall.host)
	assert.Equal(t, "/getDataEndpoint", endpointCall.path)
	assert.Equal(t, "GET_HLS_STREAMING_SESSION_URL", endpointCall.body["APIName"])
	assert.Equal(t, "exam-1766572119961", endpointCall.body["StreamName"])

	sessionCall := rt.calls[1]
	assert.Equal(t, "b-1234.kvs.test", sessionCall.host)
	assert.Equal(t, "/getHLSStreamingSessionURL", sessionCall.path)
	assert.Equal(t, "ON_DEMAND", sessionCall.body["PlaybackMode"])
	assert.Equal(t, "FRAGMENTED_MP4", sessionCall.body["ContainerFormat"])
	assert.Equal(t, "ALWAYS", sessionCall.body["DiscontinuityMode"])
	assert.Equal(t, "ALWAYS", sessionCall.body["DisplayFragmentTimestamp"])
	assert.EqualValues(t, 5000, sessionCall.body["MaxMediaPlaylistFragmentResults"])
	assert.EqualValues(t, 3600, sessionCall.body["Expires"])

	selector, ok := sessionCall.body["HLSFragmentSelector"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "SERVER_TIMESTAMP", selector["FragmentSelectorType"])

	timestampRange, ok := selector["TimestampRange"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, float64(1766572119961-120000)/1000, timestampRange["StartTimestamp"], 0.001)
	assert.InDelta(t, float64(1766572119961+300000)/1000, timestampRange["EndTimestamp"], 0.001)
}

func TestAWSProvider_EmptyResponses(t *testing.T) {
	t.Run("no data endpoint", func(t *testing.T) {
		rt := &kvsRoundTripper{endpoint: ""}
		_, err := New(validConfig, newTestAWSProvider(t, rt)).Negotiate(context.Background(), Hints{StreamName: "exam-1"})
		assert.ErrorIs(t, err, ErrEndpointUnavailable)
		assert.Len(t, rt.calls, 1)
	})

	t.Run("no session url", func(t *testing.T) {
		rt := &kvsRoundTripper{endpoint: "https://b-1.kvs.test"}
		_, err := New(validConfig, newTestAWSProvider(t, rt)).Negotiate(context.Background(), Hints{StreamName: "exam-1"})
		assert.ErrorIs(t, err, ErrSessionUnavailable)
		assert.Len(t, rt.calls, 2)
	})
}

func TestAWSProvider_ClassifiesServiceErrors(t *testing.T) {
	tests := []struct {
		name      string
		errorType string
		status    int
		want      error
	}{
		{"not found", "ResourceNotFoundException", http.StatusNotFound, ErrNotFound},
		{"access denied", "AccessDeniedException", http.StatusForbidden, ErrAccessDenied},
		{"not authorized", "NotAuthorizedException", http.StatusUnauthorized, ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &kvsRoundTripper{errorType: tt.errorType, status: tt.status}
			_, err := New(validConfig, newTestAWSProvider(t, rt)).Negotiate(context.Background(), Hints{StreamName: "exam-1"})
			assert.ErrorIs(t, err, tt.want)
			assert.Len(t, rt.calls, 1)
		})
	}
}
