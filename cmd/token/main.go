package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/eldtechnologies/chats/internal/crypto"
)

func main() {
	_ = godotenv.Load()

	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "Token signing secret (defaults to $JWT_SECRET)")
	userID := flag.String("user", "", "User UUID")
	username := flag.String("username", "", "Username claim (optional)")
	ttl := flag.Duration("ttl", time.Hour, "Token lifetime")
	flag.Parse()

	if *secret == "" || *userID == "" {
		fmt.Fprintln(os.Stderr, "Usage: token -user <user-uuid> [-username <name>] [-ttl 1h] [-secret <secret>]")
		fmt.Fprintln(os.Stderr, "  Reads the secret from JWT_SECRET if -secret is not specified")
		os.Exit(1)
	}

	id, err := uuid.Parse(*userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid user ID: %v\n", err)
		os.Exit(1)
	}

	issuer, err := crypto.NewTokenIssuer(*secret, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid secret: %v\n", err)
		os.Exit(1)
	}

	token, expiresAt, err := issuer.Issue(id, *username)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Authorization: Bearer %s\n", token)
	fmt.Printf("Expires: %s\n", expiresAt.UTC().Format(time.RFC3339))
}
