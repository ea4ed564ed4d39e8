package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/toc8730/StepSync/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// App holds the process-wide configuration and the database handle.
type App struct {
	DB              *gorm.DB
	JWTSecret       []byte
	GroqAPIKey      string
	GroqModel       string
	GoogleClientIDs []string
}

func Load() *App {
	app := &App{
		JWTSecret:       []byte(envOr("JWT_SECRET_KEY", "super-secret-key")),
		GroqAPIKey:      os.Getenv("GROQ_API_KEY"),
		GroqModel:       os.Getenv("GROQ_MODEL"),
		GoogleClientIDs: googleClientIDs(),
	}
	app.DB = openDatabase()
	return app
}

func openDatabase() *gorm.DB {
	host := os.Getenv("DB_HOST")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")
	port := os.Getenv("DB_PORT")

	sslmode := os.Getenv("DB_SSLMODE")
	if sslmode == "" {
		if strings.Contains(host, "render.com") {
			sslmode = "require"
		} else {
			sslmode = "disable"
		}
	}

	log.Printf("Connecting to database: host=%s user=%s dbname=%s port=%s sslmode=%s",
		host, user, dbname, port, sslmode)

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		host, user, password, dbname, port, sslmode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	log.Println("Successfully connected to database!")

	db.AutoMigrate(&models.User{}, &models.Family{}, &models.FamilyInvite{}, &models.FamilyLeaveRequest{})
	return db
}

// googleClientIDs collects every configured Google OAuth client id; tokens
// are accepted when their audience matches any of them.
func googleClientIDs() []string {
	var ids []string
	for _, raw := range strings.Split(os.Getenv("GOOGLE_CLIENT_IDS"), ",") {
		if id := strings.TrimSpace(raw); id != "" {
			ids = append(ids, id)
		}
	}
	for _, key := range []string{"GOOGLE_WEB_CLIENT_ID", "GOOGLE_ANDROID_CLIENT_ID", "GOOGLE_IOS_CLIENT_ID"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" && !contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}
