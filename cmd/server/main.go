package main

import (
	"log"
	"time"

	"github.com/lumapix/moments-backend/internal/api"
	"github.com/lumapix/moments-backend/internal/cluster"
	"github.com/lumapix/moments-backend/internal/config"
	"github.com/lumapix/moments-backend/internal/database"
	"github.com/lumapix/moments-backend/internal/geocode"
	"github.com/lumapix/moments-backend/internal/handler"
	"github.com/lumapix/moments-backend/internal/labeling"
	"github.com/lumapix/moments-backend/internal/repository"
	"github.com/lumapix/moments-backend/internal/service"
	"github.com/lumapix/moments-backend/internal/source"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	mediaRepo := repository.NewMediaRepository(db)
	clusterRepo := repository.NewClusterRepository(db)
	dayGroupRepo := repository.NewDayGroupRepository(db)
	stateRepo := repository.NewStateRepository(db)
	geocodeRepo := repository.NewGeocodeRepository(db)

	geocodeTTL := time.Duration(cfg.GeocodeTTLDays) * 24 * time.Hour
	if purged, err := geocodeRepo.PurgeOlderThan(time.Now().Add(-geocodeTTL).UnixMilli()); err != nil {
		log.Printf("Failed to purge stale geocode entries: %v", err)
	} else if purged > 0 {
		log.Printf("Purged %d stale geocode entries", purged)
	}
	places := geocode.NewCache(geocodeRepo, geocode.NoopProvider{}, geocodeTTL)

	var loc *time.Location
	if cfg.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Printf("Invalid timezone %q, falling back to system local: %v", cfg.Timezone, err)
			loc = nil
		}
	}
	labeler := labeling.NewLabeler(places, loc)

	src, err := source.NewManifestSource(cfg.ManifestPath)
	if err != nil {
		log.Fatal("Failed to load media manifest:", err)
	}

	strategy := cluster.NewDBSCANStrategy(cfg.ClusterMinPoints, cfg.MaxMergeDistance)
	index := service.NewIndexService(
		src, mediaRepo, clusterRepo, dayGroupRepo, stateRepo,
		labeler, places, strategy, cfg.ScanBatchSize,
	)
	library := service.NewLibraryService(src, mediaRepo, clusterRepo, dayGroupRepo, stateRepo)
	checker := service.NewConsistencyService(mediaRepo, clusterRepo, dayGroupRepo, stateRepo)

	router := api.SetupRouter(cfg, api.Handlers{
		Scan:        handler.NewScanHandler(index),
		Albums:      handler.NewAlbumHandler(library),
		Media:       handler.NewMediaHandler(library),
		Consistency: handler.NewConsistencyHandler(checker),
	})

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
