package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-cli/internal/observability"
	"github.com/i474232898/weather-cli/internal/weather"
)

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 1 << 20

// HTTPClientConfig bundles the HTTP client and request settings shared by providers.
type HTTPClientConfig struct {
	Client    *http.Client
	UserAgent string
}

var errServerStatus = errors.New("server error")

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// doRequest performs exactly one outbound call through the circuit breaker.
//
// Transport failures, 429 and 5xx responses are returned as weather.ErrTransport; every
// other response is handed back to the caller for provider-specific status handling.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	provider weather.ProviderID,
	req *http.Request,
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("%w: http client not configured", weather.ErrTransport)
	}

	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	if id := weather.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: HTTP %d", errServerStatus, resp.StatusCode)
		}
		return resp, nil
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		observability.RecordProviderCall(string(provider), "error", elapsed)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker open: %w", weather.ErrTransport, err)
		}
		return nil, fmt.Errorf("%w: %w", weather.ErrTransport, err)
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected result type from circuit breaker", weather.ErrTransport)
	}
	observability.RecordProviderCall(string(provider), statusLabel(resp.StatusCode), elapsed)
	return resp, nil
}

// checkStatus maps the status codes every provider shares onto the error taxonomy.
func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", weather.ErrAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d", weather.ErrNotFound, resp.StatusCode)
	default:
		return fmt.Errorf("%w: unexpected HTTP %d", weather.ErrTransport, resp.StatusCode)
	}
}

// decodeJSON reads a provider body into v. Read failures are transport errors,
// undecodable bodies are normalization errors.
func decodeJSON(body io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read response body: %w", weather.ErrTransport, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", weather.ErrNormalization, err)
	}
	return nil
}

// checkDateWindow rejects dates after today or before earliest (zero earliest = no lower bound).
func checkDateWindow(clock clockwork.Clock, provider weather.ProviderID, date, earliest time.Time) error {
	day := weather.Day(date)
	today := weather.Day(clock.Now())
	if day.After(today) {
		return fmt.Errorf("%w: %s has no data for future date %s", weather.ErrUnsupportedDate, provider.Name(), weather.FormatDate(day))
	}
	if !earliest.IsZero() && day.Before(earliest) {
		return fmt.Errorf("%w: %s history starts at %s, got %s",
			weather.ErrUnsupportedDate, provider.Name(), weather.FormatDate(earliest), weather.FormatDate(day))
	}
	return nil
}

func unixOrNow(clock clockwork.Clock, sec int64) time.Time {
	if sec <= 0 {
		return clock.Now().UTC()
	}
	return time.Unix(sec, 0).UTC()
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return "auth_error"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	default:
		return "error"
	}
}
