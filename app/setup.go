package app

import (
	"fmt"
	"log"

	"github.com/ogzhnbygl/vivolearn/api"
	"github.com/ogzhnbygl/vivolearn/config"
	"github.com/ogzhnbygl/vivolearn/database"
	"github.com/ogzhnbygl/vivolearn/router"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/ogzhnbygl/vivolearn/services/cron"
	"github.com/ogzhnbygl/vivolearn/services/storage"
	"github.com/ogzhnbygl/vivolearn/utils/auth"
	"github.com/ogzhnbygl/vivolearn/utils/cache"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	if getEnv.JWT_SECRET == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		print("Connection settings come from DB_HOST, DB_PORT, DB_NAME, DB_USER_NAME and DB_PASSWORD\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		print("Error running migrations:\n")
		return err
	}

	// Redis is optional: without it views are not cached and login is not rate limited
	var redisCache *cache.RedisCache
	if getEnv.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(getEnv.REDIS_URL)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v. Running without cache.", err)
			redisCache = nil
		}
	}

	// Cover storage is optional as well
	var covers services.CoverUploader
	storageConfig := storage.Config{
		AccessKey: getEnv.STORAGE_ACCESS_KEY,
		SecretKey: getEnv.STORAGE_SECRET_KEY,
		Bucket:    getEnv.STORAGE_BUCKET,
		Region:    getEnv.STORAGE_REGION,
		Endpoint:  getEnv.STORAGE_ENDPOINT,
		CDNURL:    getEnv.STORAGE_CDN_URL,
	}
	if storageConfig.Enabled() {
		client, err := storage.NewSpacesClient(storageConfig)
		if err != nil {
			log.Printf("Warning: Failed to initialize cover storage: %v", err)
		} else {
			covers = client
		}
	}

	svc := router.NewServices(store.DB(), redisCache, auth.JWTConfig{
		Secret:        getEnv.JWT_SECRET,
		Expiry:        getEnv.JWT_EXPIRY,
		RefreshExpiry: getEnv.JWT_REFRESH_EXPIRY,
		Issuer:        getEnv.JWT_ISSUER,
	}, covers)

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if getEnv.CRON_ENABLED {
		cronManager = cron.NewCronManager(store.DB(), svc.Blacklist, svc.Notifications, svc.Catalog, redisCache)
		if err := cronManager.Start(); err != nil {
			// Don't fail the app, just log the warning
			log.Printf("Warning: Failed to start cron jobs: %v", err)
			cronManager = nil
		}
	}

	// Defer closing DB, Redis and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		if redisCache != nil {
			redisCache.Close()
		}
		store.Close()
	}()

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT), store)
	app := server.GetEngine()

	// Setup Routes (security middleware is attached inside)
	router.SetupRoutes(app, store, svc, router.RouteConfig{
		AllowedOrigins: getEnv.ALLOWED_ORIGINS,
	})

	// Get the PORT & Start the Server
	return server.Run()

}
