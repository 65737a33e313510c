package main

import (
	"os"
)

// @title CampusConnect API
// @version 1.0
// @description Campus social network, marketplace and livestream API with JWT authentication.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
