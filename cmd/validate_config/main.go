// Command validate_config loads a gateway config (plus its confdir
// fragments) and reports what it resolved to, without starting
// anything. Adapted from the teacher's validate_config debug tool,
// generalized from its CHINT-specific device/register dump to the
// registry-driven connector/bridge config.
package main

import (
	"fmt"
	"os"

	"github.com/iotgw/iotgwd/internal/config"

	_ "github.com/iotgw/iotgwd/internal/connector/httpconn"
	_ "github.com/iotgw/iotgwd/internal/connector/modbusconn"
	_ "github.com/iotgw/iotgwd/internal/connector/mqttconn"
	_ "github.com/iotgw/iotgwd/internal/connector/opaque"
	_ "github.com/iotgw/iotgwd/internal/connector/spiconn"
	_ "github.com/iotgw/iotgwd/internal/connector/uartconn"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: validate_config <config-file> [confdir]")
		os.Exit(2)
	}

	configPath := os.Args[1]
	confDir := ""
	if len(os.Args) > 2 {
		confDir = os.Args[2]
	}

	fmt.Printf("loading config from %s\n", configPath)
	cfg, err := config.LoadAll(configPath, confDir)
	if err != nil {
		fmt.Printf("error loading config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("config loaded\n")
	fmt.Printf("  gateway name: %s\n", cfg.Gateway.Name)
	fmt.Printf("  log level:    %s\n", cfg.Gateway.LogLevel)
	fmt.Printf("  metrics port: %d\n", cfg.Gateway.MetricsPort)

	fmt.Printf("\nconnectors: %d\n", len(cfg.Connectors))
	for name, c := range cfg.Connectors {
		fmt.Printf("  - %s: type=%s tags=%v\n", name, c.Type, c.Tags)
	}

	fmt.Printf("\nbridges: %d\n", len(cfg.Bridges))
	for name, b := range cfg.Bridges {
		fmt.Printf("  - %s: %s -> %s transform=%v topic_prefix=%q\n", name, b.From, b.To, b.Transform, b.TopicPrefix)
	}

	fmt.Println("\nconfiguration is valid")
}
