// Command issuetoken mints a bearer token for AUTH_MODE=jwt deployments. It reads JWT_SECRET
// and TOKEN_EXPIRY from the same environment/.env as the server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/username/stockfolio/backend/src/config"
	"github.com/username/stockfolio/backend/src/security"
)

func main() {
	var (
		userID = flag.String("user", "", "User id to put in the token subject")
		ttl    = flag.Duration("ttl", 0, "Token lifetime (defaults to TOKEN_EXPIRY)")
	)
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: issuetoken -user <id> [-ttl 24h]")
		os.Exit(2)
	}

	config.LoadConfig()
	if len(config.Cfg.JWTSecret) < 32 {
		log.Fatal("JWT_SECRET must be set and at least 32 characters long")
	}
	lifetime := config.Cfg.TokenExpiry
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, err := security.NewAuthService(config.Cfg.JWTSecret).GenerateToken(*userID, lifetime)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}
