package db

import (
	"log"
	"os"

	"emuhub/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=emuhub port=5432 sslmode=disable TimeZone=UTC"
	}

	var err error
	// TranslateError turns driver-specific unique violations into
	// gorm.ErrDuplicatedKey, which the vote and config services rely on.
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established")

	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")

	seedGames()
}

// Migrate runs AutoMigrate for every model. Shared with the test bootstrap.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Game{},
		&models.Config{},
		&models.ConfigDetail{},
		&models.ConfigVersion{},
		&models.Comment{},
		&models.Vote{},
		&models.CommentVote{},
		&models.Favorite{},
		&models.ReputationLog{},
		&models.Report{},
		&models.Notification{},
	)
}

func seedGames() {
	var count int64
	DB.Model(&models.Game{}).Count(&count)
	if count > 0 {
		log.Println("Games already seeded, skipping")
		return
	}

	games := []models.Game{
		{Slug: "elden-rg", Title: "Elden Ring", Developer: "FromSoftware", Year: 2022},
		{Slug: "witcher3", Title: "The Witcher 3: Wild Hunt", Developer: "CD Projekt Red", Year: 2015},
		{Slug: "hades-00", Title: "Hades", Developer: "Supergiant Games", Year: 2020},
		{Slug: "cyber077", Title: "Cyberpunk 2077", Developer: "CD Projekt Red", Year: 2020},
	}

	for _, game := range games {
		if err := DB.Create(&game).Error; err != nil {
			log.Printf("Failed to create game %s: %v", game.Title, err)
		}
	}
	log.Println("Initial games created successfully")
}
