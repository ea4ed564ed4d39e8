package main

import (
	"log"
	"os"

	"github.com/toc8730/StepSync/config"
	"github.com/toc8730/StepSync/controllers"
	"github.com/toc8730/StepSync/repositories/impl"
	"github.com/toc8730/StepSync/routes"
	"github.com/toc8730/StepSync/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	app := config.Load()

	// Initialize repositories
	repos := impl.NewRepos(app.DB)
	tx := impl.NewGormTx(app.DB)

	// Initialize services
	verifier := services.NewGoogleVerifier(app.GoogleClientIDs)
	authService := services.NewAuthService(repos, tx, verifier, app.JWTSecret)
	familyService := services.NewFamilyService(repos, tx)
	familyService.Mail = services.NewEmailService()
	scheduleService := services.NewScheduleService(repos, tx)
	taskGenService := services.NewTaskGenService(app.GroqAPIKey, app.GroqModel)

	// Set services in controllers
	controllers.SetAuthService(authService)
	controllers.SetFamilyService(familyService)
	controllers.SetScheduleService(scheduleService)
	controllers.SetTaskGenService(taskGenService)

	// Initialize Gin router
	r := gin.Default()

	// Register routes
	routes.RegisterRoutes(r, app.JWTSecret)

	// Start the server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	r.Run(":" + port)
}
