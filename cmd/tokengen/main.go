// Command tokengen mints HS256 access tokens for local development and
// manual testing.  Production tokens come from the identity provider; this
// tool signs with the same JWT_SECRET the server verifies with.
//
//	go run ./cmd/tokengen -sub alice -role CUSTOMER -email alice@example.com
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

func main() {
	config.LoadDotEnv()

	sub := flag.String("sub", "", "token subject, used as booking owner or check-in actor")
	role := flag.String("role", model.RoleCustomer, "ADMIN, STAFF or CUSTOMER")
	email := flag.String("email", "", "optional email claim for notifications")
	ttl := flag.Duration("ttl", defaultTTL(), "token lifetime")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret (defaults to $JWT_SECRET)")
	flag.Parse()

	r := strings.ToUpper(*role)
	if r != model.RoleAdmin && r != model.RoleStaff && r != model.RoleCustomer {
		logrus.Fatalf("unknown role %q", *role)
	}
	if *secret == "" {
		logrus.Fatal("no signing secret: set JWT_SECRET or pass -secret")
	}

	tok, err := utils.NewAccessToken(*secret, *sub, r, *email, *ttl)
	if err != nil {
		logrus.Fatalf("mint token: %v", err)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}

// defaultTTL honours ACCESS_TOKEN_TTL_MIN and falls back to one hour.
func defaultTTL() time.Duration {
	var minutes int
	if _, err := fmt.Sscan(os.Getenv("ACCESS_TOKEN_TTL_MIN"), &minutes); err == nil && minutes > 0 {
		return time.Duration(minutes) * time.Minute
	}
	return time.Hour
}
