package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"github.com/HiteshriGautam/Store-Rating-System/internal/config"
	"github.com/HiteshriGautam/Store-Rating-System/internal/database"
	"github.com/HiteshriGautam/Store-Rating-System/internal/models"
	"github.com/HiteshriGautam/Store-Rating-System/internal/policy"
	"github.com/HiteshriGautam/Store-Rating-System/internal/repository"
	"github.com/HiteshriGautam/Store-Rating-System/internal/service"
	"github.com/HiteshriGautam/Store-Rating-System/internal/utils"
)

const demoPassword = "Password123!"

type demoStore struct {
	owner   service.CreateUserInput
	store   service.CreateStoreInput
	ratings map[string]float64 // rater email -> value
}

var demoUsers = []service.CreateUserInput{
	{Name: "John Doe Customer", Email: "john@example.com", Address: "456 User Ave, Springfield", Password: demoPassword, Role: string(models.RoleUser)},
	{Name: "Jane Smith Customer", Email: "jane@example.com", Address: "789 Elm Street, Shelbyville", Password: demoPassword, Role: string(models.RoleUser)},
}

var demoStores = []demoStore{
	{
		owner: service.CreateUserInput{Name: "Coffee Corner Owner", Email: "owner@store.com", Address: "100 Main St, Downtown", Password: demoPassword, Role: string(models.RoleStoreOwner)},
		store: service.CreateStoreInput{Name: "Coffee Corner", Email: "info@coffeecorner.com", Address: "100 Main St, Downtown"},
		ratings: map[string]float64{
			"john@example.com": 5,
			"jane@example.com": 4,
		},
	},
	{
		owner: service.CreateUserInput{Name: "Tech Store Owner", Email: "tech@store.com", Address: "200 Tech Blvd, Uptown", Password: demoPassword, Role: string(models.RoleStoreOwner)},
		store: service.CreateStoreInput{Name: "Tech Store", Email: "contact@techstore.com", Address: "200 Tech Blvd, Uptown"},
		ratings: map[string]float64{
			"john@example.com": 3,
		},
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	database.Connect(cfg)
	database.Migrate()

	ctx := context.Background()
	store := repository.NewGormDatastore(database.DB)

	adminName := os.Getenv("ADMIN_NAME")
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminName == "" || adminEmail == "" || adminPassword == "" {
		log.Fatal("Missing environment variables: ADMIN_NAME, ADMIN_EMAIL, ADMIN_PASSWORD")
	}

	admin, err := ensureAdmin(ctx, store.Users(), adminName, adminEmail, adminPassword)
	if err != nil {
		log.Fatal("Failed to create admin:", err)
	}

	if strings.EqualFold(os.Getenv("SEED_DEMO_DATA"), "true") {
		if err := seedDemo(ctx, store, policy.Actor{ID: admin.ID, Role: admin.Role}); err != nil {
			log.Fatal("Failed to seed demo data:", err)
		}
	}
}

// ensureAdmin creates the admin account unless the email is already taken.
func ensureAdmin(ctx context.Context, users repository.UserRepository, name, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Println("Admin user already exists:", existing.Email)
		return existing, nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	admin := &models.User{
		Name:         name,
		Email:        email,
		Address:      "Head Office",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		return nil, err
	}

	log.Println("Admin user created:", admin.Email)
	return admin, nil
}

func seedDemo(ctx context.Context, store repository.Datastore, admin policy.Actor) error {
	ratings := service.NewRatingService(store)
	users := service.NewUserService(store, ratings)
	stores := service.NewStoreService(store, ratings)

	ensureUser := func(in service.CreateUserInput) (*models.User, error) {
		u, err := users.CreateUser(ctx, admin, in)
		if errors.Is(err, service.ErrEmailExists) {
			return store.Users().GetByEmail(ctx, in.Email)
		}
		return u, err
	}

	raters := make(map[string]*models.User, len(demoUsers))
	for _, in := range demoUsers {
		u, err := ensureUser(in)
		if err != nil {
			return err
		}
		raters[u.Email] = u
	}

	for _, d := range demoStores {
		owner, err := ensureUser(d.owner)
		if err != nil {
			return err
		}

		s, err := store.Stores().GetByOwner(ctx, owner.ID)
		if err != nil {
			return err
		}
		if s == nil {
			in := d.store
			in.OwnerID = owner.ID
			if s, err = stores.CreateStore(ctx, admin, in); err != nil {
				return err
			}
			log.Println("Demo store created:", s.Name)
		}

		for email, value := range d.ratings {
			rater := raters[email]
			actor := policy.Actor{ID: rater.ID, Role: rater.Role}
			if _, _, err := ratings.SubmitRating(ctx, actor, rater.ID, s.ID, value, nil); err != nil {
				return err
			}
		}
	}

	log.Println("Demo data seeded; accounts use password", demoPassword)
	return nil
}
