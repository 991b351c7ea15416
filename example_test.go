package teardown_test

import (
	"context"
	"fmt"
	"time"

	"github.com/cleitonmarx/teardown"
	"github.com/cleitonmarx/teardown/phase"
)

func Example() {
	c := teardown.New(phase.Set{
		"stop-accepting": {Timeout: time.Second},
		"drain":          {DependsOn: []string{"stop-accepting"}, Timeout: 2 * time.Second},
		"close-storage":  {DependsOn: []string{"drain"}, Recover: false},
	})

	c.AddTask("stop-accepting", "http-listener", func(context.Context) error {
		fmt.Println("listener closed")
		return nil
	})
	c.AddTask("drain", "in-flight", func(context.Context) error {
		fmt.Println("requests drained")
		return nil
	})
	c.AddTask("close-storage", "db", func(context.Context) error {
		fmt.Println("database closed")
		return nil
	})

	err := c.Shutdown(context.Background(), teardown.ReasonRequested)
	fmt.Println("err:", err)
	// Output:
	// listener closed
	// requests drained
	// database closed
	// err: <nil>
}

func ExampleCoordinator_Order() {
	c := teardown.New(phase.Builtin())
	order, _ := c.Order()
	for _, name := range order {
		fmt.Println(name, c.Timeout(name))
	}
	// Output:
	// before-service-unbind 5s
	// service-unbind 5s
	// service-requests-done 5s
	// service-stop 5s
	// before-process-exit 5s
	// process-exit 10s
}

func ExampleResult_RecoveredErrors() {
	c := teardown.New(phase.Set{
		"flush": {Recover: true},
		"exit":  {DependsOn: []string{"flush"}},
	})
	c.AddTask("flush", "metrics", func(context.Context) error {
		return fmt.Errorf("collector unreachable")
	})

	outcome := c.Run(teardown.ReasonRequested)
	<-outcome.Done()
	fmt.Println("err:", outcome.Err())
	fmt.Println("recovered:", outcome.Result().RecoveredErrors() != nil)
	// Output:
	// err: <nil>
	// recovered: true
}
