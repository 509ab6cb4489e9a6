package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "eventcrm/docs"
	"eventcrm/internal/config"
	"eventcrm/internal/db"
	"eventcrm/internal/handlers"
	"eventcrm/internal/middleware"
	"eventcrm/internal/models"
	"eventcrm/internal/pdf"
	"eventcrm/internal/repositories"
	"eventcrm/internal/routes"
	"eventcrm/internal/services"
)

func Run() {
	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === DB ===
	conn, err := db.Open(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatal("database: ", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("closing database: %v", err)
		}
	}()

	// === Repos ===
	store := repositories.NewStore(conn)
	uow := repositories.NewUnitOfWork(conn)

	// === Services ===
	settingsService := services.NewSettingsService(store.Settings, models.NotificationSettings{
		EmailEnabled:             cfg.Notifications.EmailEnabled,
		TelegramEnabled:          cfg.Notifications.TelegramEnabled,
		ManagementSummaryEnabled: cfg.Notifications.ManagementSummaryEnabled,
		ManagementEmails:         cfg.Notifications.ManagementEmails,
		ManagementTelegramChatID: cfg.Notifications.ManagementTelegramChatID,
	})
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)
	telegramService, err := services.NewTelegramService(cfg.Telegram.BotToken)
	if err != nil {
		log.Printf("[tg][init][err] %v; telegram delivery disabled", err)
		telegramService = &services.TelegramService{}
	}
	pdfGen := pdf.NewDocumentGenerator(cfg.Files.RootDir, cfg.Files.FontPath)

	notifier := services.NewNotificationService(
		emailService,
		telegramService,
		pdfGen,
		store.Events,
		settingsService,
		cfg.Notifications.Workers,
	)
	scheduler := services.NewReminderScheduler(uow,
		cfg.Reminders.MorningHour, cfg.Reminders.MorningMinute, cfg.Reminders.Location())

	taskService := services.NewTaskService(store, uow, notifier)
	eventService := services.NewEventService(store, uow, scheduler, notifier)
	reminderService := services.NewReminderService(store)
	reportService := services.NewReportService(eventService, pdfGen)

	if !cfg.Reminders.Disabled {
		dispatcher := services.NewReminderDispatcher(store, notifier,
			cfg.Reminders.DispatchInterval, cfg.Reminders.BatchSize, cfg.Reminders.MaxLateness)
		go dispatcher.Start(ctx)
	}

	// === Handlers ===
	eventHandler := handlers.NewEventHandler(eventService, reminderService)
	taskHandler := handlers.NewTaskHandler(taskService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	reportHandler := handlers.NewReportHandler(reportService)

	// === Gin ===
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/healthz", func(c *gin.Context) {
		if err := conn.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	routes.SetupRoutes(router, []byte(cfg.Auth.JWTSecret), eventHandler, taskHandler, settingsHandler, reportHandler)

	// === Run ===
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server: ", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
