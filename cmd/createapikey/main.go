package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/avelora/keygate-api/internal/domain/apikey"
	"github.com/avelora/keygate-api/internal/storage/postgres"
	"github.com/avelora/keygate-api/internal/util"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	orgIDFlag := flag.String("org", "", "Organization ID the key belongs to (required)")
	envFlag := flag.String("env", "test", "Key environment: live or test")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	orgID, err := uuid.Parse(*orgIDFlag)
	if err != nil {
		log.Fatalf("A valid -org UUID is required: %v", err)
	}

	env := apikey.Environment(*envFlag)
	if env != apikey.EnvLive && env != apikey.EnvTest {
		log.Fatalf("-env must be 'live' or 'test', got %q", *envFlag)
	}

	fullKey, prefix, secretHash, err := util.GenerateAPIKey(env)
	if err != nil {
		log.Fatalf("Failed to generate API key: %v", err)
	}

	fmt.Printf("Generated API Key (SAVE THIS securely!):\n%s\n\n", fullKey)
	fmt.Printf("Prefix: %s\n", prefix)

	logger, _ := zap.NewDevelopment()
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	repo := postgres.NewAPIKeyRepository(pool, logger)

	newKeyRecord := &apikey.APIKey{
		OrganizationID: orgID,
		SecretHash:     secretHash,
		Prefix:         prefix,
		Environment:    env,
		Scopes:         apikey.DefaultScopes,
		IsActive:       true,
	}

	keyID, err := repo.Create(context.Background(), newKeyRecord)
	if err != nil {
		log.Fatalf("Failed to save API key to database: %v", err)
	}

	fmt.Printf("\nAPI Key saved to database with ID: %s\n", keyID)
}
