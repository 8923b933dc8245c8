//go:build ignore

package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/vinq/vinq-crm/internal/auth"
	"github.com/vinq/vinq-crm/internal/database"
	"github.com/vinq/vinq-crm/internal/database/models"
	"github.com/vinq/vinq-crm/pkg/config"
	"github.com/vinq/vinq-crm/pkg/util"
	"gorm.io/gorm"
)

type seedUser struct {
	first, last, email string
	role               models.Role
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	password := envOr("SEED_PASSWORD", "Vinq2024!")
	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	// Registration never hands out admin or manager, so seed users are
	// written directly.
	users := []seedUser{
		{"Admin", "VinQ", envOr("ADMIN_EMAIL", "admin@vinq.mx"), models.RoleAdmin},
		{"María", "González", "manager@vinq.mx", models.RoleManager},
		{"Carlos", "Ramírez", "carlos@vinq.mx", models.RoleAgent},
		{"Sofía", "López", "sofia@vinq.mx", models.RoleAgent},
	}

	var agents []models.User
	for _, su := range users {
		u, created, err := ensureUser(db, su, hash)
		if err != nil {
			log.Fatalf("failed to seed %s: %v", su.email, err)
		}
		if created {
			fmt.Printf("Created %s user: %s\n", u.Role, u.Email)
		} else {
			fmt.Printf("User already exists: %s\n", u.Email)
		}
		if u.Role == models.RoleAgent {
			agents = append(agents, *u)
		}
	}

	var properties int64
	if err := db.Model(&models.Property{}).Count(&properties).Error; err != nil {
		log.Fatalf("failed to count properties: %v", err)
	}
	if properties > 0 {
		fmt.Println("Sample data already present, skipping")
		return
	}
	if err := seedSamples(db, agents); err != nil {
		log.Fatalf("failed to seed sample data: %v", err)
	}
	fmt.Printf("Sample data created. Password for seeded users: %s\n", password)
}

func ensureUser(db *gorm.DB, su seedUser, hash string) (*models.User, bool, error) {
	var u models.User
	err := db.Where("email = ?", su.email).First(&u).Error
	if err == nil {
		return &u, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	u = models.User{
		FirstName:     su.first,
		LastName:      su.last,
		Email:         su.email,
		PasswordHash:  hash,
		Role:          su.role,
		Status:        models.UserStatusActive,
		EmailVerified: true,
	}
	if err := db.Create(&u).Error; err != nil {
		return nil, false, err
	}
	return &u, true, nil
}

func seedSamples(db *gorm.DB, agents []models.User) error {
	if len(agents) == 0 {
		return errors.New("no agents to own sample data")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		properties := []models.Property{
			{
				Title:       "Casa en Lomas de Chapultepec",
				Description: "Cuatro recámaras, jardín y estudio",
				Type:        models.PropertyTypeHouse,
				Price:       decimal.NewFromInt(12500000),
				Address:     models.Address{Street: "Paseo de la Reforma 2000", City: "Ciudad de México", State: "CDMX"},
				Features:    models.PropertyFeatures{Bedrooms: 4, Bathrooms: 3, Area: 420, Parking: 2},
				Amenities:   []string{"jardín", "estudio"},
			},
			{
				Title:       "Departamento en Polanco",
				Description: "Dos recámaras con balcón y amenidades",
				Type:        models.PropertyTypeApartment,
				Price:       decimal.NewFromInt(6800000),
				Address:     models.Address{Street: "Homero 1500", City: "Ciudad de México", State: "CDMX"},
				Features:    models.PropertyFeatures{Bedrooms: 2, Bathrooms: 2, Area: 110, Parking: 1},
				Amenities:   []string{"gimnasio", "alberca"},
			},
		}
		for i := range properties {
			p := &properties[i]
			p.Status = models.PropertyStatusAvailable
			p.Currency = "MXN"
			p.Address.Country = models.DefaultCountry
			p.Features.AreaUnit = "sqm"
			p.Images = []string{}
			p.Documents = []models.PropertyDocument{}
			p.CreatedBy = agents[i%len(agents)].ID
		}
		if err := tx.Create(&properties).Error; err != nil {
			return fmt.Errorf("properties: %w", err)
		}

		leads := []models.Lead{
			{FirstName: "Ana", LastName: "Torres", Email: "ana.torres@example.com", Source: models.LeadSourceWebsite, Status: models.LeadStatusNew, Rating: models.LeadRatingWarm, Score: 35},
			{FirstName: "Jorge", LastName: "Méndez", Email: "jorge.mendez@example.com", Source: models.LeadSourceReferral, Status: models.LeadStatusQualified, Rating: models.LeadRatingHot, Score: 70},
			{FirstName: "Laura", LastName: "Castillo", Email: "laura.castillo@example.com", Source: models.LeadSourceAdvertising, Status: models.LeadStatusContacted, Rating: models.LeadRatingCold, Score: 20},
		}
		for i := range leads {
			owner := agents[i%len(agents)].ID
			leads[i].AssignedTo = &owner
			leads[i].CreatedBy = owner
			leads[i].Address.Country = models.DefaultCountry
			leads[i].PropertyInterest = []string{string(properties[i%len(properties)].Type)}
			leads[i].BudgetMin = decimal.NewNullDecimal(decimal.NewFromInt(3000000))
			leads[i].BudgetMax = decimal.NewNullDecimal(decimal.NewFromInt(13000000))
		}
		if err := tx.Create(&leads).Error; err != nil {
			return fmt.Errorf("leads: %w", err)
		}
		return nil
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
