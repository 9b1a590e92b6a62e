package config_test

import (
	"fmt"

	"github.com/wonny/marketpulse/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Store driver: %s\n", cfg.Store.Driver)
	fmt.Printf("Data source: %s\n", cfg.Fetch.Source)
	fmt.Printf("Windows: ma=%d vol=%d\n", cfg.Pipeline.MAWindow, cfg.Pipeline.VolWindow)
}
