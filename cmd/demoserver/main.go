// Command demoserver starts a simulated Shodan API and charging-station fleet.
// Usage: go run ./cmd/demoserver [port]
// Default port: 9999
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/raysh454/evscout/internal/demoserver"
)

func main() {
	cfg := demoserver.DefaultConfig()

	// Optional: custom port from command line
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}

	base := fmt.Sprintf("http://localhost:%d", cfg.Port)

	fmt.Println("===========================================")
	fmt.Println("   evscout Demo Server - Charger Fleet")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Point evscout at this server with:")
	fmt.Printf("  shodan.base_url:      %s\n", base)
	fmt.Printf("  device_url_template:  %s\n", demoserver.DeviceURLTemplate(base))
	fmt.Printf("  SHODAN_API_KEY=%s\n", cfg.APIKey)
	fmt.Println()
	fmt.Println("Simulated devices:")
	for _, d := range cfg.Fleet {
		fmt.Printf("  %-15s %-28s %s\n", d.IP, d.Title, d.Behavior)
	}
	fmt.Println()

	server := demoserver.NewDemoServer(cfg)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
