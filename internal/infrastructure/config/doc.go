// Package config handles loading and validating ZikDomotica configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The two settings most deployments override are the controller websocket
// address and the HTTP listen port, available as ZIKDOMOTICA_CONTROLLER_URL
// and ZIKDOMOTICA_API_PORT.
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Controller.URL)
package config
