package main

import (
	log "github.com/sirupsen/logrus"

	_ "pulseflow/docs"
	"pulseflow/internal/config"
	"pulseflow/internal/server"
)

// @title           PulseFlow API
// @version         1.0
// @description     Collaborative task boards with teams, sharing and live notifications.

// @contact.name   PulseFlow team
// @contact.url    https://pulseflow.com/support
// @contact.email  support@pulseflow.com

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg := config.Load()

	s, err := server.Init(cfg)
	if err != nil {
		log.Fatalf("❌ Server initialization failed: %v", err)
	}

	s.Run()
}
