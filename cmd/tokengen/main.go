// Command tokengen generates bearer tokens for exercising the vault API
// locally. Tokens use the dev signing key and will NOT work in production.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// devSigningKey matches config.FromEnv when JWT_SIGNING_KEY is not set.
const devSigningKey = "dev-secret-key-change-in-production"

type tokenOutput struct {
	Token     string `json:"token"`
	OwnerID   string `json:"owner_id"`
	ExpiresIn string `json:"expires_in"`
	Usage     string `json:"usage"`
}

func main() {
	ownerID := flag.String("owner-id", "", "Owner ID to embed as the token subject. Generated if empty.")
	signingKey := flag.String("signing-key", devSigningKey, "HMAC signing key (must match JWT_SIGNING_KEY)")
	issuer := flag.String("issuer", "", "Issuer claim (optional, must match SATSVAULT_JWT_ISSUER)")
	audience := flag.String("audience", "", "Audience claim (optional, must match SATSVAULT_JWT_AUDIENCE)")
	ttl := flag.Duration("ttl", time.Hour, "Token time-to-live")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	subject := *ownerID
	if subject == "" {
		subject = uuid.NewString()
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
	}
	if *issuer != "" {
		claims.Issuer = *issuer
	}
	if *audience != "" {
		claims.Audience = jwt.ClaimStrings{*audience}
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(*signingKey))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing token: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(tokenOutput{
			Token:     token,
			OwnerID:   subject,
			ExpiresIn: ttl.String(),
			Usage:     "Authorization: Bearer <token>",
		})
		return
	}

	fmt.Println("Vault Bearer Token")
	fmt.Println("==================")
	fmt.Printf("Owner ID:   %s\n", subject)
	fmt.Printf("Expires In: %s\n", ttl)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/v1/vault/metadata")
}
