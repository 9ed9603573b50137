package main

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
)

func main() {
	size := flag.Int("bytes", 48, "Number of random bytes (min 32)")
	flag.Parse()

	if *size < 32 {
		fmt.Fprintln(os.Stderr, "Usage: genkey [-bytes N]  (N must be at least 32)")
		os.Exit(1)
	}

	secret := make([]byte, *size)
	if _, err := rand.Read(secret); err != nil {
		panic(err)
	}

	fmt.Printf("JWT_SECRET=%s\n", base64.RawURLEncoding.EncodeToString(secret))
}
