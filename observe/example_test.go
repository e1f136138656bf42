package observe_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/adminops/observe"
)

func ExampleNewObserver_validation() {
	_, err := observe.NewObserver(context.Background(), observe.Config{})
	if errors.Is(err, observe.ErrMissingServiceName) {
		fmt.Println("Caught: missing service name")
	}
	// Output:
	// Caught: missing service name
}

func ExampleCallMeta_SpanName() {
	fmt.Println(observe.CallMeta{Method: "GET", Path: "/services/server/info"}.SpanName())
	fmt.Println(observe.CallMeta{Operation: "create_job"}.SpanName())
	// Output:
	// adminops.GET /services/server/info
	// adminops.create_job
}

func ExampleMiddleware_Wrap() {
	mw := observe.NewMiddleware(observe.NopTracer(), observe.NopMetrics(), observe.NopLogger())

	call := mw.Wrap(func(ctx context.Context, meta observe.CallMeta) error {
		fmt.Println("calling", meta.Method, meta.Path)
		return nil
	})

	err := call(context.Background(), observe.CallMeta{Method: "GET", Path: "/services/apps/local"})
	fmt.Println("err:", err)
	// Output:
	// calling GET /services/apps/local
	// err: <nil>
}
