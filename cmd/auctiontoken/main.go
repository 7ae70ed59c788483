// Package main выпускает bearer-токен участника аукциона.
//
// Пример: AUTH_SECRET=secret auctiontoken -sub alice -ttl 1h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mmeshcher/escrow-auction/internal/middleware"
)

type options struct {
	Secret string `env:"AUTH_SECRET"`
}

func main() {
	var opts options
	if err := env.Parse(&opts); err != nil {
		fmt.Fprintln(os.Stderr, "parse env:", err)
		os.Exit(1)
	}

	subject := flag.String("sub", "", "participant identity")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.StringVar(&opts.Secret, "s", opts.Secret, "JWT signing secret")
	flag.Parse()

	if opts.Secret == "" {
		fmt.Fprintln(os.Stderr, "signing secret is required: set AUTH_SECRET or -s")
		os.Exit(2)
	}

	token, err := middleware.NewAuthMiddleware(opts.Secret).IssueToken(*subject, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
