// Command ledger-token issues a bearer token for an owner, signed with
// JWT_SECRET, for local use and scripting against the API.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"reseller/internal/cli"
	"reseller/internal/config"
	"reseller/internal/middleware/auth"
)

func main() {
	owner := flag.String("owner", "", "owner ID placed in the token subject (required)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	if strings.TrimSpace(*owner) == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	if len(cfg.JWTSecret) < config.MinJWTSecretLength {
		logger.Error("JWT_SECRET is missing or too short", "min_length", config.MinJWTSecretLength)
		os.Exit(1)
	}

	token, err := auth.New(cfg.JWTSecret, cfg.JWTIssuer).IssueToken(*owner, *ttl)
	if err != nil {
		logger.Error("Failed to issue token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
