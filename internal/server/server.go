// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/C0l0red/twitter-client/internal/cache"
	"github.com/C0l0red/twitter-client/internal/config"
	"github.com/C0l0red/twitter-client/internal/database"
	"github.com/C0l0red/twitter-client/internal/middleware"
	"github.com/C0l0red/twitter-client/internal/models"
	"github.com/C0l0red/twitter-client/internal/repository"
	"github.com/C0l0red/twitter-client/internal/twitter"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	tokenIssuer   = "twitter-client-api"
	tokenAudience = "twitter-client-user"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config    *config.Config
	db        *gorm.DB
	redis     *redis.Client
	userRepo  repository.UserRepository
	tweetRepo repository.TweetRepository
	engine    *twitter.Engine
	gateway   *twitter.Gateway
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	userRepo := repository.NewUserRepository(db)
	tweetRepo := repository.NewTweetRepository(db)

	client := twitter.NewClient(cfg)

	return &Server{
		config:    cfg,
		db:        db,
		redis:     redisClient,
		userRepo:  userRepo,
		tweetRepo: tweetRepo,
		engine:    twitter.NewEngine(client, userRepo),
		gateway:   twitter.NewGateway(client, userRepo, tweetRepo),
	}, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Request ID for tracing
	app.Use(requestid.New())

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware
	app.Use(middleware.StructuredLogger())

	// CORS middleware
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health check
	api.Get("/", s.HealthCheck)

	// Metrics endpoint
	api.Get("/metrics", monitor.New(monitor.Config{
		Title: "Twitter Client Metrics",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	// User routes
	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Delete("/me", s.DeleteMyAccount)
	users.Get("/", s.GetAllUsers)

	// Twitter linking and actions
	tw := protected.Group("/twitter")
	tw.Post("/link", s.BeginTwitterLink)
	tw.Post("/verify", s.CompleteTwitterLink)
	tw.Get("/link-to-id", s.ConvertTweetLink)
	tw.Get("/timeline", s.GetHomeTimeline)
	tw.Get("/users", s.GetTwitterUsers)

	tweets := tw.Group("/tweets")
	tweets.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "create_tweet"), s.MakeTweet)
	tweets.Post("/reply", middleware.RateLimit(s.redis, 10, time.Minute, "create_tweet"), s.ReplyTweet)
	tweets.Post("/quote", middleware.RateLimit(s.redis, 10, time.Minute, "create_tweet"), s.QuoteTweet)
	tweets.Get("/", s.GetTweets)
}

// HealthCheck handles health check requests
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "Twitter Client API",
		"status":  "healthy",
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware. It validates the
// bearer token and stores the authenticated user ID in the request context.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Authorization required"))
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(s.config.JWTSecret), nil
		})

		if err != nil || !token.Valid {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Invalid or expired token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Invalid token claims"))
		}

		if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != tokenIssuer {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Invalid token issuer"))
		}
		if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != tokenAudience {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Invalid token audience"))
		}

		sub, ok := claims["sub"].(string)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Invalid subject claim"))
		}

		userID, err := strconv.ParseUint(sub, 10, 32)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Invalid user ID in token"))
		}

		c.Locals("userID", uint(userID))

		return c.Next()
	}
}

// currentUser resolves the authenticated request to its full account record.
func (s *Server) currentUser(c *fiber.Ctx) (*models.User, error) {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return nil, models.NewUnauthenticatedError("")
	}
	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		if models.CodeOf(err) == models.CodeNotFound {
			return nil, models.NewUnauthenticatedError("")
		}
		return nil, err
	}
	return user, nil
}

// respondError translates an application error to its HTTP status.
func respondError(c *fiber.Ctx, err error) error {
	var status int
	switch models.CodeOf(err) {
	case models.CodeUnauthenticated, models.CodeAccountNotLinked:
		status = fiber.StatusUnauthorized
	case models.CodeUsernameTaken:
		status = fiber.StatusConflict
	case models.CodeNotFound:
		status = fiber.StatusNotFound
	case models.CodeValidation, models.CodeMalformedLink,
		models.CodeHandshakeNotStarted, models.CodeCallbackNotConfirmed,
		models.CodeVerifierRejected, models.CodeUpstreamRejected,
		models.CodeUpstreamRequestFailed, models.CodeCommitFailed:
		status = fiber.StatusBadRequest
	case models.CodeUpstreamUnreachable:
		status = fiber.StatusBadGateway
	default:
		status = fiber.StatusInternalServerError
	}
	return models.RespondWithError(c, status, err)
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "Twitter Client API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
