package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"fixitfast/backend/internal/analysis"
	"fixitfast/backend/internal/config"
	"fixitfast/backend/internal/identity"
	"fixitfast/backend/internal/storage"

	"github.com/spf13/pflag"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const usage = `Usage: admin <command> [flags]

Commands:
  token --user ID                  issue a bearer token for a user
  set-city --user ID --city NAME   set the operating city of an admin or labour account
  normalize-cities                 trim stored user cities
  dashboard --user ID              print the dashboard a user would see
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	cfg := config.Load()
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI

	if err := run(context.Background(), os.Stdout, storageSvc, cfg, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, s storage.Storage, cfg config.Config, command string, args []string) error {
	flagSet := pflag.NewFlagSet(command, pflag.ContinueOnError)
	flagSet.SetOutput(out)
	userID := flagSet.String("user", "", "user id")
	city := flagSet.String("city", "", "city name")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	switch command {
	case "token":
		if cfg.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is not set")
		}
		tok, err := issueToken(ctx, s, identity.NewTokens(cfg.JWTSecret, cfg.JWTTTL), *userID)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, tok)
	case "set-city":
		if err := setCity(ctx, s, *userID, *city); err != nil {
			return err
		}
		fmt.Fprintf(out, "User %s now operates in %q.\n", *userID, strings.TrimSpace(*city))
	case "normalize-cities":
		scanned, updated, err := normalizeCities(ctx, s)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Normalize complete. Scanned: %d, Updated: %d\n", scanned, updated)
	case "dashboard":
		return printDashboard(ctx, out, s, *userID)
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func issueToken(ctx context.Context, s storage.Storage, tokens *identity.Tokens, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("--user is required")
	}
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return tokens.Issue(user)
}

func setCity(ctx context.Context, s storage.Storage, userID, city string) error {
	if userID == "" {
		return fmt.Errorf("--user is required")
	}
	city = strings.TrimSpace(city)
	if city == "" {
		return fmt.Errorf("--city is required")
	}
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	user.City = city
	return s.SaveUser(ctx, user)
}

// normalizeCities trims surrounding whitespace from every stored user city.
func normalizeCities(ctx context.Context, s storage.Storage) (scanned, updated int, err error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return 0, 0, err
	}
	for i := range users {
		scanned++
		trimmed := strings.TrimSpace(users[i].City)
		if trimmed == users[i].City {
			continue
		}
		users[i].City = trimmed
		if err := s.SaveUser(ctx, &users[i]); err != nil {
			return scanned, updated, err
		}
		updated++
	}
	return scanned, updated, nil
}

func printDashboard(ctx context.Context, out io.Writer, s storage.Storage, userID string) error {
	if userID == "" {
		return fmt.Errorf("--user is required")
	}
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	view, err := analysis.NewEngine(s).Dashboard(ctx, user.Actor())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
