// Command create-admin registers an administrator in the configured store.
//
//	create-admin -email hr@example.com -name "HR" -password secret123
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/config"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/auth"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/jwt"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/repository"
	serviceAuth "github.com/rakhaabhirama/leave-tracker-pro-63/internal/service/auth"
)

func main() {
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "administrator email")
	name := flag.String("name", os.Getenv("ADMIN_NAME"), "display name")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "password (min 8 characters)")
	flag.Parse()

	if err := run(auth.CreateAdminRequest{Email: *email, Name: *name, Password: *password}); err != nil {
		fmt.Fprintln(os.Stderr, "create-admin:", err)
		os.Exit(1)
	}
}

func run(req auth.CreateAdminRequest) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx := context.Background()
	repos, err := repository.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.Close()

	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return err
	}

	admin, err := serviceAuth.NewAuthService(repos.Admins, JWTService).CreateAdmin(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("created admin %s (%s)\n", admin.Email, admin.ID)
	return nil
}
