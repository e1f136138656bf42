package client_test

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jonwraymond/adminops/client"
	"github.com/jonwraymond/adminops/resilience"
)

func ExampleExecutor_Execute() {
	clock := resilience.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	codes := []int{503, 503, 200}
	calls := 0
	transport := client.TransportFunc(func(context.Context, *client.TransportRequest) (*client.TransportResponse, error) {
		code := codes[calls]
		calls++
		return &client.TransportResponse{StatusCode: code, Header: http.Header{}}, nil
	})

	exec, _ := client.NewExecutor(client.ExecutorConfig{
		Profile:   "prod",
		BaseURL:   "https://splunk.example.com:8089",
		Transport: transport,
		Retry:     resilience.NewRetryPolicy(resilience.RetryConfig{Clock: clock}),
		Breaker:   resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Clock: clock}),
		Clock:     clock,
	})

	resp, err := exec.Execute(context.Background(), client.RequestSpec{
		Method: http.MethodPost,
		Path:   "/services/server/control/restart",
	}, 3)
	if err != nil {
		fmt.Println(client.KindOf(err))
		return
	}

	fmt.Println(resp.StatusCode, resp.Attempts)
	fmt.Println(clock.Sleeps())
	// Output:
	// 200 3
	// [1s 2s]
}

func ExampleKindOf() {
	err := fmt.Errorf("restarting prod: %w", &client.MaxRetriesExceededError{
		Attempts: 4,
		Err:      &client.ConnectionRefusedError{Addr: "splunk:8089"},
	})

	fmt.Println(client.KindOf(err))
	// Output:
	// max_retries_exceeded
}
