package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"geoplaces/internal/config"
	"geoplaces/internal/database"
	"geoplaces/internal/handler"
	"geoplaces/internal/middleware"
	"geoplaces/internal/queue"
	"geoplaces/internal/repository"
	"geoplaces/internal/router"
	queuepublisher "geoplaces/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db := database.NewRouter(cfg.DatabaseURL, cfg.DBMinConns, cfg.DBMaxConns, cfg.Roles)
	defer db.Close()

	// Tokens live in redis when one is reachable; otherwise an in-memory
	// store keeps a single instance working (tokens die with the process).
	rdb := config.NewRedisClient()
	var tokens repository.TokenStore
	if rdb != nil {
		tokens = repository.NewRedisTokenStore(rdb, cfg.TokenTTL)
	} else {
		log.Println("redis unavailable, falling back to in-memory token store")
		tokens = repository.NewMemoryTokenStore(cfg.TokenTTL)
	}

	var events handler.EventPublisher
	if cfg.RabbitURL != "" {
		events = queuepublisher.New(cfg.RabbitURL)
		go queue.StartPlaceLogConsumer(cfg.RabbitURL)
	}

	placeRepo := repository.NewPlaceRepo()
	listRepo := repository.NewListRepo()
	userRepo := repository.NewUserRepo()
	groupRepo := repository.NewGroupRepo()
	routeRepo := repository.NewRouteRepo()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization, "X-Auth-Token"},
	}))
	e.Use(middleware.Authenticate(tokens, cfg.SecretKey, cfg.Roles))
	if rdb != nil {
		// Both run after authentication: the cache keys on identity and
		// the limiter can bucket per role.
		e.Use(middleware.RateLimit(config.LoadRateLimitConfig(), rdb))
		e.Use(middleware.ResponseCache(config.LoadCacheConfig(), rdb))
	}

	router.RegisterPublic(e,
		handler.NewHealthHandler(db),
		handler.NewSearchHandler(cfg.Env, db, placeRepo, listRepo),
		handler.NewAnalyticsHandler(cfg.Env, db, placeRepo),
		handler.NewExportHandler(cfg.Env, db, placeRepo),
	)
	userHandler := handler.NewUserHandler(cfg.Env, cfg.SecretKey, cfg.BcryptCost, db, userRepo, tokens)
	router.RegisterAuth(e,
		handler.NewAuthHandler(cfg.Env, cfg.SecretKey, cfg.TokenTTL, cfg.Roles, db, tokens),
		userHandler,
	)
	router.RegisterUser(e,
		userHandler,
		handler.NewListHandler(cfg.Env, db, listRepo, placeRepo),
		handler.NewGroupHandler(cfg.Env, db, groupRepo, userRepo),
		handler.NewRouteHandler(cfg.Env, db, groupRepo, routeRepo),
	)
	router.RegisterPlaces(e, cfg.Roles,
		handler.NewPlaceHandler(cfg.Env, db, placeRepo, events),
		handler.NewUploadHandler(cfg.Env, db, placeRepo, events),
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
