package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonwraymond/navcache/auth"
)

// token prints a signed HS256 token for local testing of the API.
func token(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	configPath := fs.String("config", "navd.yaml", "configuration file")
	sub := fs.String("sub", "", "subject (user id)")
	tenant := fs.String("tenant", "", "tenant id")
	roles := fs.String("roles", "", "comma-separated roles")
	perms := fs.String("perms", "", "comma-separated permission tokens")
	admin := fs.Bool("admin", false, "system administrator")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sub == "" {
		return fmt.Errorf("token: -sub is required")
	}

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return err
	}

	id := &auth.Identity{
		Subject:     *sub,
		TenantID:    *tenant,
		Roles:       splitList(*roles),
		Permissions: splitList(*perms),
		SystemAdmin: *admin,
	}
	tok, err := auth.SignHS256(cfg.Auth.JWT, []byte(cfg.Auth.SigningKey), id, *ttl)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	_, err = fmt.Fprintln(stdout, tok)
	return err
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
