package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nvelasco/ClubBookBack/internal/config"
	"github.com/nvelasco/ClubBookBack/internal/handlers"
	"github.com/nvelasco/ClubBookBack/internal/middleware"
	"github.com/nvelasco/ClubBookBack/internal/repository"
	"github.com/nvelasco/ClubBookBack/internal/services"
	realtime "github.com/nvelasco/ClubBookBack/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	placeRepo := repository.NewPlaceRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	var storageService services.StorageService
	if cfg.SupabaseURL != "" && cfg.SupabaseBucket != "" && cfg.SupabaseServiceKey != "" {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	authHandler := handlers.NewAuthHandler(userRepo, storageService, cfg.JWTSecret)
	sessionService := services.NewSessionService(db, sessionRepo, placeRepo)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	bookingService := services.NewBookingService(db, bookingRepo, paymentRepo, sessionRepo)
	bookingHandler := handlers.NewBookingHandler(bookingService)

	hub := realtime.NewHub()
	go hub.Run()
	chatService := services.NewChatService(db, conversationRepo, messageRepo, userRepo)
	chatHandler := handlers.NewChatHandler(chatService, hub, cfg.JWTSecret)

	auth := app.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)
	auth.Patch("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.UpdateMe)
	auth.Post("/update-profile-picture", middleware.AuthRequired(cfg.JWTSecret), authHandler.UpdateProfilePicture)

	protected := app.Group("", middleware.AuthRequired(cfg.JWTSecret))

	sessions := protected.Group("/sessions")
	sessions.Post("", sessionHandler.CreateSession)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Patch("/:id", sessionHandler.UpdateSession)

	places := protected.Group("/places")
	places.Get("/:id", sessionHandler.GetPlace)
	places.Patch("/:id", sessionHandler.UpdatePlace)

	bookings := protected.Group("/bookings")
	bookings.Post("", bookingHandler.CreateBooking)
	bookings.Get("", bookingHandler.ListBookings)
	bookings.Get("/booking-for-club", bookingHandler.ListBookingsForClub)

	protected.Get("/payments", bookingHandler.ListPayments)

	conversations := protected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Post("", chatHandler.CreateConversation)

	messages := protected.Group("/messages")
	messages.Get("", chatHandler.ListMessages)
	messages.Post("", chatHandler.SendMessage)

	app.Use("/realtime", chatHandler.RealtimeAuth)
	app.Get("/realtime", websocket.New(chatHandler.HandleRealtime))

	if cfg.DocsEnabled() {
		registerDocs(app)
	}
}
