package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"arena-combat-server/handlers"
	"arena-combat-server/middleware"
	"arena-combat-server/models"
	"arena-combat-server/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		AppName: "arena-combat-server",
	})

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Player-ID, X-Player-Name",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(middleware.PlayerContextMiddleware())

	db, err := openDatabase()
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(&models.StoredRecord{}); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	store := services.NewGormStore(db)
	hub := services.NewHub()
	roomService := services.NewRoomService(store)
	matchService := services.NewMatchService(store)
	userService := services.NewUserService(store)
	pipeline := services.NewActionPipeline(roomService, matchService, hub)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	roomService.StartCleanupScheduler(ctx)

	handlers.SetupRoomRoutes(app, &handlers.RoomHandlers{
		Rooms:    roomService,
		Matches:  matchService,
		Pipeline: pipeline,
	})
	handlers.SetupMatchRoutes(app, &handlers.MatchHandlers{
		Matches: matchService,
	})
	handlers.SetupUserRoutes(app, &handlers.UserHandlers{
		Users: userService,
	})
	handlers.SetupSocketRoutes(app, &handlers.SocketHandlers{
		Rooms:    roomService,
		Pipeline: pipeline,
		Hub:      hub,
	})
	handlers.SetupHealthRoutes(app, &handlers.HealthHandlers{
		Rooms:   roomService,
		Matches: matchService,
		Hub:     hub,
		Store:   store,
	})

	app.Static("/", "./public")

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server running on http://localhost:%s", port)
	log.Printf("CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// openDatabase connects to Postgres when DATABASE_URL is set and falls back
// to a local SQLite file otherwise.
func openDatabase() (*gorm.DB, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}
	path := os.Getenv("SQLITE_PATH")
	if path == "" {
		path = "arena.db"
	}
	log.Printf("DATABASE_URL not set, using SQLite at %s", path)
	return gorm.Open(sqlite.Open(path), &gorm.Config{})
}
