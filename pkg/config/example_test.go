package config_test

import (
	"fmt"

	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
)

// ExampleNewBaseConfig demonstrates the default configuration.
func ExampleNewBaseConfig() {
	cfg := config.NewBaseConfig("points", "qdrant")

	fmt.Printf("Batch Size: %d\n", cfg.Performance.BatchSize)
	fmt.Printf("Request Timeout: %s\n", cfg.Timeouts.Request)
	fmt.Printf("Retry Attempts: %d\n", cfg.Reliability.RetryAttempts)

	// Output:
	// Batch Size: 1000
	// Request Timeout: 30s
	// Retry Attempts: 3
}

// ExampleParseOptionList shows how host catalog entries become Options.
func ExampleParseOptionList() {
	opts := config.ParseOptionList([]string{"api_url=http://localhost:6333", "api_key=secret"})

	url, _ := opts.Require("api_url", core.ServerLevel)
	fmt.Println(url)

	_, err := opts.Require("collection_name", core.TableLevel)
	fmt.Println(err)

	// Output:
	// http://localhost:6333
	// config: required option `collection_name` is not specified
}
