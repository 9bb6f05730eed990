package main

import (
	"context"
	"flag"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"

	"ai-content-boost/internal/config"
	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/repository"
	"ai-content-boost/internal/infra/db/postgres"
	"ai-content-boost/internal/infra/redis"
	"ai-content-boost/internal/infra/security"
)

// This script sets up a clean, predictable state for manual end-to-end
// testing: empty tables, fresh schema, known tenants and flags.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	// --- Connect to Postgres ---
	pool, err := postgres.Connect(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	// --- Connect to Redis ---
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	// 1. Clean the Redis cache to remove any stale status entries.
	log.Println("[1/4] Wiping Redis cache...")
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Fatalf("failed to flush redis: %v", err)
	}

	// 2. Make sure the schema exists before truncating it.
	log.Println("[2/4] Applying migrations...")
	if err := postgres.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// 3. Clean the database completely.
	log.Println("[3/4] Wiping all existing database data...")
	_, err = pool.Exec(ctx, `
		TRUNCATE
			tenants, jobs, quota_holds, usage_ledger, idempotency_index,
			decision_log, event_log, dispatch_queue, admin_flags
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	// 4. Seed the tenants every E2E scenario assumes.
	log.Println("[4/4] Seeding test tenants and flags...")
	var cipher *security.SecretCipher
	if cfg.Security.EncryptionKey != "" {
		cipher, err = security.NewSecretCipher(cfg.Security.EncryptionKey)
		if err != nil {
			log.Fatalf("secret cipher: %v", err)
		}
	}
	seedTenantsAndFlags(ctx, pool, cipher)

	log.Println("--- ✅ E2E Environment Setup Complete ---")
}

// seedTenantsAndFlags writes the fixed tenants the E2E scenarios sign with.
func seedTenantsAndFlags(ctx context.Context, pool *pgxpool.Pool, cipher *security.SecretCipher) {
	tenantRepo := postgres.NewTenantRepo(pool, cipher)
	flagRepo := postgres.NewFlagRepo(pool)

	tenants := []struct {
		ID     string
		Name   string
		Plan   string
		Quota  int64
		Secret string
	}{
		{"acme", "Acme Web Shop", "starter", 200, "acme-dev-secret"},
		{"globex", "Globex Media", "pro", 1000, "globex-dev-secret"},
		// A deliberately tiny quota for exercising the 402 path.
		{"smallco", "Smallco Tryout", "starter", 10, "smallco-dev-secret"},
	}
	for _, t := range tenants {
		tenant, err := model.NewTenant(t.ID, t.Name, t.Plan, t.Quota, t.Secret)
		if err != nil {
			log.Printf("failed to build tenant %s: %v", t.ID, err)
			continue
		}
		if err := tenantRepo.Save(ctx, repository.NoTX, tenant); err != nil {
			log.Printf("failed to save tenant %s: %v", t.ID, err)
		}
	}

	if _, err := flagRepo.Set(ctx, repository.NoTX, model.FlagForceDegraded, "off"); err != nil {
		log.Printf("failed to set %s: %v", model.FlagForceDegraded, err)
	}
}
