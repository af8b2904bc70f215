package main

import (
	"context"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"clinic-service/internal/handler"
	"clinic-service/internal/middleware"
	"clinic-service/internal/model"
	"clinic-service/internal/repository"
	"clinic-service/pkg/config"
	"clinic-service/pkg/database"
	"clinic-service/pkg/jwtutil"
	"clinic-service/pkg/logger"
	"clinic-service/pkg/mediastore"
	"clinic-service/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: "clinic-service",
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting clinic service...", cfg.LogConfig()...)

	// Initialize database
	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Run migrations for all models
	if err := database.MigrateModels(
		&model.Organization{},
		&model.User{},
		&model.ProfessionalProfile{},
		&model.PatientProfile{},
		&model.PatientRecord{},
		&model.Ingredient{},
		&model.Meal{},
		&model.MealItem{},
		&model.DietPlan{},
		&model.PlanAllocation{},
		&model.RefreshToken{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database migrations completed")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics()
	log.Info("Prometheus metrics initialized")

	// Initialize the media store. Uploads are disabled when no bucket is
	// configured; the service still runs.
	media, err := mediastore.New(context.Background(), &cfg.Media)
	if err != nil {
		log.Fatal("Failed to initialize media store", zap.Error(err))
	}
	if media.Enabled() {
		log.Info("Media store initialized", zap.String("bucket", cfg.Media.Bucket))
	} else {
		log.Warn("Media store disabled, photo uploads unavailable")
	}

	// Wire the repository and handlers
	repo := repository.New(db, log)
	handler.Init(repo, media, cfg)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes - these don't belong under /api since they're for getting access to the API
	auth := e.Group("/auth")
	auth.POST("/login", handler.Login)
	auth.POST("/register", handler.Register)
	auth.POST("/refresh", handler.Refresh)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// Account management
	users := api.Group("/users")
	users.GET("/profile", handler.GetProfile)
	users.GET("", handler.ListUsers)
	users.POST("", handler.CreateUser)
	users.GET("/:id", handler.GetUser)
	users.PATCH("/:id", handler.UpdateUser)
	users.DELETE("/:id", handler.DeleteUser)

	// Clinical records
	patients := api.Group("/patients")
	patients.GET("", handler.ListPatients)
	patients.POST("", handler.CreatePatient)
	patients.GET("/:id", handler.GetPatient)
	patients.PATCH("/:id", handler.UpdatePatient)
	patients.DELETE("/:id", handler.DeletePatient)
	patients.POST("/:id/photo", handler.UploadPatientPhoto)

	// Diet plans and their weekly calendar
	plans := api.Group("/diet-plans")
	plans.GET("", handler.ListPlans)
	plans.POST("", handler.CreatePlan)
	plans.GET("/:id", handler.GetPlan)
	plans.PATCH("/:id", handler.UpdatePlan)
	plans.DELETE("/:id", handler.DeletePlan)
	plans.POST("/:id/allocations", handler.AddAllocation)
	plans.DELETE("/:id/allocations/:allocation_id", handler.RemoveAllocation)

	// Shared nutrition catalog
	ingredients := api.Group("/ingredients")
	ingredients.GET("", handler.ListIngredients)
	ingredients.GET("/:id", handler.GetIngredient)

	meals := api.Group("/meals")
	meals.GET("", handler.ListMeals)
	meals.POST("", handler.CreateMeal)
	meals.GET("/:id", handler.GetMeal)
	meals.PATCH("/:id", handler.UpdateMeal)
	meals.DELETE("/:id", handler.DeleteMeal)

	// Clinic management
	orgs := api.Group("/organizations")
	orgs.GET("/own", handler.GetOwnOrganization)
	orgs.GET("", handler.ListOrganizations)
	orgs.POST("", handler.CreateOrganization)
	orgs.GET("/:id", handler.GetOrganization)
	orgs.PATCH("/:id", handler.UpdateOrganization)
	orgs.DELETE("/:id", handler.DeleteOrganization)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
