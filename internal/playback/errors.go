package playback

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

var (
	ErrConfigurationMissing = errors.New("AWS credentials are not configured")
	ErrStreamNameRequired   = errors.New("streamName is required")
	ErrEndpointUnavailable  = errors.New("unable to get data endpoint")
	ErrSessionUnavailable   = errors.New("unable to get HLS URL")
	ErrNotFound             = errors.New("stream not found or expired")
	ErrAccessDenied         = errors.New("insufficient AWS permission")
)

// ProviderError carries a provider failure that has no dedicated sentinel.
type ProviderError struct {
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// classify maps a provider error onto the sentinel taxonomy. Unknown provider
// errors keep their own message.
func classify(err error, step error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ResourceNotFoundException":
			return fmt.Errorf("%w: %s", ErrNotFound, apiErr.ErrorMessage())
		case "AccessDeniedException", "NotAuthorizedException", "UnrecognizedClientException", "InvalidSignatureException":
			return fmt.Errorf("%w: %s", ErrAccessDenied, apiErr.ErrorMessage())
		}
		return &ProviderError{Code: apiErr.ErrorCode(), Message: apiErr.ErrorMessage(), Err: err}
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAccessDenied) {
		return err
	}
	return fmt.Errorf("%w: %w", step, err)
}

// Message is the user-facing text for err. Classified failures get a fixed
// message; everything else passes the provider's text through.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrNotFound.Error()
	case errors.Is(err, ErrAccessDenied):
		return ErrAccessDenied.Error()
	default:
		return err.Error()
	}
}
