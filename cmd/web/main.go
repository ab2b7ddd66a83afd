package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/anshumansaged/kyokushin--sub000/internal/db"
	"github.com/anshumansaged/kyokushin--sub000/internal/middleware"
	"github.com/anshumansaged/kyokushin--sub000/internal/service"
	"github.com/anshumansaged/kyokushin--sub000/internal/store"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	database := db.InitDB()
	defer database.Close()

	if err := db.RunMigrations(database.DB); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	middleware.InitAuth()

	officialService := service.NewOfficialService(database, store.NewUserStore(database))
	if _, err := officialService.EnsureAdminUser(context.Background()); err != nil {
		log.Fatal("Failed to seed admin user:", err)
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = 24 * time.Hour
	sessionManager.Store = sqlite3store.New(database.DB)

	router := newRouter(sessionManager)

	log.Println("Server starting on http://localhost:8080")
	if err := http.ListenAndServe(":8080", router); err != nil {
		log.Fatal(err)
	}
}
