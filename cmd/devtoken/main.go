// Package main prints a signed bearer token for a user id, for local development.
package main

import (
	"flag"
	"fmt"
	"log"

	"chat-relay/internal/config"
	"chat-relay/internal/services"
)

var (
	userID   = flag.String("user", "", "user id to issue the token for")
	username = flag.String("name", "", "display name stored in the token")
)

func main() {
	flag.Parse()
	if *userID == "" {
		log.Fatal("-user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	token, err := services.NewTokenService(cfg.JWTSecret).Issue(*userID, *username)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
