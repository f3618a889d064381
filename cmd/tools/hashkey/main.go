package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/noah-isme/backend-mithai/internal/auth"
)

// hashkey prints the argon2id hash for ADMIN_API_KEY_HASH. The key is read
// from -key or, when omitted, the first line of stdin.
func main() {
	key := flag.String("key", "", "admin API key to hash")
	flag.Parse()

	raw := *key
	if raw == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("read key: %v", err)
		}
		raw = line
	}
	raw = strings.TrimSpace(raw)
	if len(raw) < 16 {
		log.Fatal("key must be at least 16 characters")
	}

	hash, err := auth.HashKey(raw)
	if err != nil {
		log.Fatalf("hash key: %v", err)
	}
	fmt.Println(hash)
}
