package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

var (
	//ErrCircuitOpen is wrapped into the error returned while a provider's breaker refuses calls
	ErrCircuitOpen = errors.New("circuit breaker open")

	errServerError = errors.New("server error")
)

//UpstreamError reports a failed call to a third party weather service. The message is meant
//to be passed on to API clients as is.
type UpstreamError struct {
	Provider string
	Message  string
	Err      error
}

func (e *UpstreamError) Error() string {
	return e.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

type upstreamResponse struct {
	status int
	body   []byte
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
	})
}

//get performs a single GET through the breaker. Every received response is returned, even on
//a 5xx status, which is only used to count failures towards tripping the breaker.
func get(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, url string) (*upstreamResponse, error) {
	result, err := cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		r := &upstreamResponse{status: resp.StatusCode, body: body}
		if resp.StatusCode >= http.StatusInternalServerError {
			return r, errServerError
		}

		return r, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, err.Error())
	}

	if r, ok := result.(*upstreamResponse); ok && r != nil {
		return r, nil
	}

	return nil, err
}
