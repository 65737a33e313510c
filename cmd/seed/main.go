package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campusconnect/internal/auth"
	"campusconnect/internal/config"
	"campusconnect/internal/db"
	"campusconnect/internal/model"
	"campusconnect/internal/repository"
)

//go:embed seed.json
var defaultSeed []byte

// SeedData is the fixture format read by the seeder.
type SeedData struct {
	Users    []SeedUser    `json:"users"`
	Events   []SeedEvent   `json:"events"`
	Listings []SeedListing `json:"listings"`
}

// SeedUser is a verified account to create.
type SeedUser struct {
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	UserType  model.UserType `json:"userType"`
	City      string         `json:"city"`
}

// SeedEvent is an event owned by a seeded user.
type SeedEvent struct {
	Owner        string `json:"owner"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	StartsInDays int    `json:"startsInDays"`
	Hours        int    `json:"hours"`
}

// SeedListing is a listing sold by a seeded user.
type SeedListing struct {
	Seller        string                `json:"seller"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Price         string                `json:"price"`
	OriginalPrice string                `json:"originalPrice"`
	Condition     model.ItemCondition   `json:"condition"`
	Category      model.ListingCategory `json:"category"`
	Location      string                `json:"location"`
}

func main() {
	file := flag.String("file", "", "seed fixture path (defaults to the embedded fixture)")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	if err := run(*file, logger); err != nil {
		logger.Error("seed.failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(file string, logger *zap.Logger) error {
	cfg := config.Load()

	data, err := loadSeed(file)
	if err != nil {
		return err
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, false, logger)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB, cfg.ResetDB, logger); err != nil {
		return err
	}

	ctx := context.Background()
	users := repository.NewUserRepository(gormDB)
	ids, created, err := seedUsers(ctx, users, data.Users, cfg.BcryptCost)
	if err != nil {
		return err
	}

	events := repository.NewEventRepository(gormDB)
	eventCount := 0
	now := time.Now().UTC().Truncate(time.Hour)
	for _, item := range data.Events {
		owner, ok := ids[strings.ToLower(item.Owner)]
		if !ok {
			logger.Warn("seed.event.unknown_owner", zap.String("owner", item.Owner))
			continue
		}
		start := now.AddDate(0, 0, item.StartsInDays)
		event := &model.Event{
			Title:       item.Title,
			Description: optional(item.Description),
			Location:    optional(item.Location),
			StartDate:   start,
			EndDate:     start.Add(time.Duration(item.Hours) * time.Hour),
			CreatedByID: owner,
		}
		if err := events.Create(ctx, event); err != nil {
			return fmt.Errorf("create event %q: %w", item.Title, err)
		}
		eventCount++
	}

	listings := repository.NewListingRepository(gormDB)
	listingCount := 0
	for _, item := range data.Listings {
		seller, ok := ids[strings.ToLower(item.Seller)]
		if !ok {
			logger.Warn("seed.listing.unknown_seller", zap.String("seller", item.Seller))
			continue
		}
		listing, err := newListing(item, seller)
		if err != nil {
			return err
		}
		if err := listings.Create(ctx, listing); err != nil {
			return fmt.Errorf("create listing %q: %w", item.Title, err)
		}
		listingCount++
	}

	logger.Info("seed.completed",
		zap.Int("usersCreated", created),
		zap.Int("usersExisting", len(ids)-created),
		zap.Int("events", eventCount),
		zap.Int("listings", listingCount),
	)
	return nil
}

func loadSeed(file string) (*SeedData, error) {
	raw := defaultSeed
	if file != "" {
		var err error
		if raw, err = os.ReadFile(file); err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
	}
	var data SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &data, nil
}

// seedUsers creates missing accounts as verified and returns every seeded
// email mapped to its user id.
func seedUsers(ctx context.Context, repo repository.UserRepository, items []SeedUser, cost int) (map[string]uuid.UUID, int, error) {
	ids := make(map[string]uuid.UUID, len(items))
	created := 0
	for _, item := range items {
		email := strings.ToLower(strings.TrimSpace(item.Email))
		existing, err := repo.FindByEmail(ctx, email)
		if err == nil {
			ids[email] = existing.ID
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, created, fmt.Errorf("lookup %s: %w", email, err)
		}

		hash, err := auth.HashPassword(item.Password, cost)
		if err != nil {
			return nil, created, err
		}
		userType := item.UserType
		if userType == "" {
			userType = model.UserTypeStudent
		}
		user := &model.User{
			Email:        email,
			PasswordHash: hash,
			FirstName:    item.FirstName,
			LastName:     item.LastName,
			UserType:     userType,
			IsVerified:   true,
			City:         optional(item.City),
		}
		if err := repo.Create(ctx, user); err != nil {
			return nil, created, fmt.Errorf("create %s: %w", email, err)
		}
		ids[email] = user.ID
		created++
	}
	return ids, created, nil
}

func newListing(item SeedListing, seller uuid.UUID) (*model.Listing, error) {
	price, err := decimal.NewFromString(item.Price)
	if err != nil {
		return nil, fmt.Errorf("listing %q price: %w", item.Title, err)
	}
	listing := &model.Listing{
		Title:       item.Title,
		Description: item.Description,
		Price:       price,
		Condition:   item.Condition,
		Category:    item.Category,
		Location:    item.Location,
		Status:      model.ListingActive,
		SellerID:    seller,
	}
	if item.OriginalPrice != "" {
		original, err := decimal.NewFromString(item.OriginalPrice)
		if err != nil {
			return nil, fmt.Errorf("listing %q original price: %w", item.Title, err)
		}
		listing.OriginalPrice = decimal.NewNullDecimal(original)
	}
	return listing, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
