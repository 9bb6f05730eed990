package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"ai-content-boost/internal/config"
	"ai-content-boost/internal/domain"
	"ai-content-boost/internal/domain/model"
	"ai-content-boost/internal/domain/ports/repository"
	pg "ai-content-boost/internal/infra/db/postgres"
	"ai-content-boost/internal/infra/security"
)

// Seeds a handful of development tenants plus the operational flags, so a
// fresh database answers signed requests right away. Safe to re-run: existing
// tenants are left untouched.
func main() {
	// ---- Config ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	var cipher *security.SecretCipher
	if cfg.Security.EncryptionKey != "" {
		cipher, err = security.NewSecretCipher(cfg.Security.EncryptionKey)
		if err != nil {
			log.Fatalf("secret cipher: %v", err)
		}
	}

	tenantRepo := pg.NewTenantRepo(pool, cipher)
	flagRepo := pg.NewFlagRepo(pool)

	seed := []struct {
		ID     string
		Name   string
		Plan   string
		Quota  int64
		Secret string
	}{
		{"acme", "Acme Web Shop", "starter", 200, "acme-dev-secret"},
		{"globex", "Globex Media", "pro", 1000, "globex-dev-secret"},
		{"initech", "Initech Blog Network", "ultra", 5000, "initech-dev-secret"},
	}

	for _, s := range seed {
		_, err := tenantRepo.FindByID(ctx, repository.NoTX, s.ID)
		if err == nil {
			fmt.Printf("tenant %s already present, skipping\n", s.ID)
			continue
		}
		if !errors.Is(err, domain.ErrTenantNotFound) {
			log.Fatalf("lookup tenant %q: %v", s.ID, err)
		}
		tenant, err := model.NewTenant(s.ID, s.Name, s.Plan, s.Quota, s.Secret)
		if err != nil {
			log.Fatalf("build tenant %q: %v", s.ID, err)
		}
		if err := tenantRepo.Save(ctx, repository.NoTX, tenant); err != nil {
			log.Fatalf("save tenant %q: %v", s.ID, err)
		}
		fmt.Printf("seeded: %s (plan=%s, quota=%d AEJ/month)\n", s.ID, s.Plan, s.Quota)
	}

	if _, err := flagRepo.Set(ctx, repository.NoTX, model.FlagForceDegraded, "off"); err != nil {
		log.Fatalf("set flag %s: %v", model.FlagForceDegraded, err)
	}
	fmt.Printf("flag %s = off\n", model.FlagForceDegraded)

	fmt.Println("✅ Seeding complete.")
}
