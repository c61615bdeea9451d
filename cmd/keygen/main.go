// Command keygen prints a random signing secret for JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/warden/warden/internal/auth"
)

func main() {
	size := flag.Int("bytes", auth.DefaultSecretBytes, "number of random bytes")
	flag.Parse()

	secret, err := auth.GenerateSigningSecret(*size)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if err := auth.ValidateSigningSecret(secret); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Println(secret)
}
