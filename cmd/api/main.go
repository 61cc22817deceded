package main

import (
	"context"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mrolimdev/qsb-teste/internal/ai"
	"github.com/mrolimdev/qsb-teste/internal/database"
	"github.com/mrolimdev/qsb-teste/internal/handlers"
	"github.com/mrolimdev/qsb-teste/internal/logging"
	"github.com/mrolimdev/qsb-teste/internal/middleware"
	"github.com/mrolimdev/qsb-teste/internal/notify"
	"github.com/mrolimdev/qsb-teste/internal/payment"
	"github.com/mrolimdev/qsb-teste/internal/store"
)

func main() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		log.Println("Could not find config.yaml, using environment variables only.")
	}

	logger, err := logging.Init(logging.Config{
		Level: viper.GetString("log.level"),
		Dev:   viper.GetBool("log.dev"),
	})
	if err != nil {
		log.Fatalf("Could not initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Connect()
	if err != nil {
		logger.Fatal("could not connect to the database", zap.Error(err))
	}

	jwtSecret := viper.GetString("jwt.secret_key")
	if jwtSecret == "" {
		logger.Fatal("JWT secret key not found in config")
	}
	geminiAPIKey := viper.GetString("gemini.api_key")
	if geminiAPIKey == "" {
		logger.Fatal("Gemini API key not found in config")
	}
	aiService, err := ai.NewService(context.Background(), geminiAPIKey)
	if err != nil {
		logger.Fatal("could not initialize AI service", zap.Error(err))
	}

	dispatcher := notify.NewDispatcher(
		viper.GetString("webhooks.send_code_url"),
		viper.GetString("webhooks.send_report_url"),
	)
	gateway := payment.NewGateway(
		viper.GetString("abacatepay.base_url"),
		viper.GetString("abacatepay.api_key"),
	)

	h := handlers.New(
		store.New(db),
		aiService,
		dispatcher,
		gateway,
		logger,
		jwtSecret,
		viper.GetString("admin.email"),
	)

	router := gin.Default()
	v1 := router.Group("/api/v1")
	{
		v1.POST("/sessions", h.CreateSessionHandler)
		v1.GET("/characters", h.CharactersHandler)
		v1.GET("/questions", h.QuestionsHandler)

		sess := v1.Group("/sessions/:sid")
		{
			sess.GET("", h.SessionStateHandler)
			sess.POST("/start", h.StartHandler)
			sess.POST("/language", h.SetLanguageHandler)
			sess.POST("/email", h.SubmitEmailHandler)
			sess.POST("/email/resend", h.ResendCodeHandler)
			sess.POST("/verify", h.VerifyCodeHandler)
			sess.POST("/logout", h.LogoutHandler)

			authorized := sess.Group("/", middleware.AuthMiddleware(jwtSecret))
			{
				authorized.POST("/name", h.SubmitNameHandler)
				authorized.POST("/quiz", h.SubmitQuizHandler)
				authorized.POST("/retake", h.RetakeHandler)
				authorized.GET("/narratives/compatibility", h.CompatibilityHandler)
				authorized.GET("/narratives/secondary", h.SecondaryAnalysisHandler)
				authorized.POST("/report", h.SendReportHandler)

				authorized.POST("/payment/open", h.OpenPaymentHandler)
				authorized.GET("/payment", h.PaymentStateHandler)
				authorized.POST("/payment/check", h.PaymentCheckHandler)
				authorized.POST("/payment/close", h.PaymentCloseHandler)
				authorized.POST("/payment/acknowledge", h.PaymentAcknowledgeHandler)
			}
		}

		admin := v1.Group("/admin", middleware.AuthMiddleware(jwtSecret), middleware.AdminOnly())
		{
			admin.GET("/users", h.ListUsersHandler)
			admin.POST("/users/:email/anonymize", h.AnonymizeUserHandler)
			admin.POST("/users/:email/grant", h.GrantAccessHandler)
			admin.POST("/characters", h.UpsertCharacterHandler)
			admin.DELETE("/characters/:id", h.DeleteCharacterHandler)
			admin.POST("/characters/generate", h.GenerateCharacterHandler)
			admin.POST("/characters/suggest-name", h.SuggestCharacterNameHandler)
		}
	}

	port := viper.GetString("server.port")
	if port == "" {
		port = "8080"
	}
	logger.Info("starting server", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
