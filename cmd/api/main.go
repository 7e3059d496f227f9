package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/rabble-claw/studio-coop/internal/config"
	"github.com/rabble-claw/studio-coop/internal/logging"
	miniostore "github.com/rabble-claw/studio-coop/internal/repository/minio"
	"github.com/rabble-claw/studio-coop/internal/repository/ports"
	"github.com/rabble-claw/studio-coop/internal/repository/postgres"
	"github.com/rabble-claw/studio-coop/internal/service"
	transport "github.com/rabble-claw/studio-coop/internal/transport/http"
	"github.com/rabble-claw/studio-coop/internal/util"
)

func main() {
	cfg := config.Load()

	if cfg.LogstashTCPAddr != "" {
		writer, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr)
		if err != nil {
			log.Printf("Warning: logstash writer disabled: %v", err)
		} else {
			defer writer.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, writer))
		}
	}

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepo(db)
	membershipRepo := postgres.NewMembershipRepo(db)
	orgRepo := postgres.NewOrganizationRepo(db)

	var storage ports.ObjectStorage
	if cfg.MinIOEndpoint != "" {
		client, err := miniostore.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
		if err != nil {
			log.Printf("Warning: object storage disabled: %v", err)
		} else {
			storage = miniostore.NewStorage(client)
		}
	}

	sessionTTL, err := time.ParseDuration(cfg.SessionTTL)
	if err != nil {
		sessionTTL = 24 * time.Hour
	}
	tokens := util.NewJWTManager(cfg.JWTSecret, sessionTTL)
	auth := service.NewAuthService(userRepo, membershipRepo, tokens, cfg.GoogleAudience)

	mapper, err := service.NewColumnMapper(service.DefaultFieldPatterns())
	if err != nil {
		log.Fatalf("build column mapper: %v", err)
	}
	migrations := service.NewMigrationService(userRepo, membershipRepo, orgRepo, storage, mapper, service.MigrationServiceConfig{
		Bucket:       cfg.MinIOBucketMigration,
		MaxRows:      cfg.ImportMaxRows,
		MaxFileBytes: cfg.ImportMaxBytes,
	})

	e := transport.NewRouter(cfg.AllowOrigins)
	transport.RegisterAuth(e, auth)
	transport.RegisterMigrations(e, auth, migrations)
	transport.RegisterSwagger(e)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
