// Command cmd prints a new master key for TOTP_ENCRYPTION_KEY, or with -check
// validates the key already present in the environment.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dmitrymomot/mfakit/pkg/totp"
)

func main() {
	check := flag.Bool("check", false, "validate TOTP_ENCRYPTION_KEY instead of generating a new key")
	flag.Parse()

	if *check {
		if _, err := totp.LoadKeys(totp.Config{EncryptionKey: os.Getenv("TOTP_ENCRYPTION_KEY")}); err != nil {
			log.Fatalf("TOTP_ENCRYPTION_KEY is unusable: %v", err)
		}
		fmt.Println("TOTP_ENCRYPTION_KEY ok")
		return
	}

	encodedKey, err := totp.GenerateEncodedEncryptionKey()
	if err != nil {
		log.Fatalf("generate master key: %v", err)
	}
	fmt.Printf("TOTP_ENCRYPTION_KEY=%s\n", encodedKey)
}
