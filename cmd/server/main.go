package main

import (
	"log"
	"os"

	"emuhub/internal/db"
	"emuhub/internal/router"
	"emuhub/internal/services"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading env vars from system")
	}

	db.Init()

	ranking := services.GetRankingService()
	ranking.StartScheduledScoreUpdate()

	r := router.Setup()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("EmuHub server starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
