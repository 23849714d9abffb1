// Package journey generates demo journeys and listings.
package journey

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/dukerupert/roamstay/internal/auth"
	"github.com/dukerupert/roamstay/internal/model"
	"github.com/dukerupert/roamstay/internal/store"
)

const (
	SeedUsername = "roamstay_demo"
	seedEmail    = "demo@roamstay.example"

	DefaultJourneys = 6
	demoListings    = 8
)

type SeedResult struct {
	Journeys int `json:"journeys"`
	Listings int `json:"listings"`
}

// Seeder fills an empty database with fake data for demos.
type Seeder struct {
	users    store.Users
	listings store.Listings
	journeys store.Journeys
	faker    *gofakeit.Faker
	logger   *slog.Logger
}

// NewSeeder returns a Seeder. A zero seed picks a random one.
func NewSeeder(users store.Users, listings store.Listings, journeys store.Journeys, seed int64, logger *slog.Logger) *Seeder {
	return &Seeder{
		users:    users,
		listings: listings,
		journeys: journeys,
		faker:    gofakeit.New(seed),
		logger:   logger,
	}
}

// Seed creates n journeys, plus demo listings owned by the seed user when
// there are no listings yet.
func (s *Seeder) Seed(ctx context.Context, n int) (SeedResult, error) {
	var res SeedResult
	for i := 0; i < n; i++ {
		if _, err := s.journeys.Create(ctx, s.fakeJourney()); err != nil {
			return res, fmt.Errorf("create journey: %w", err)
		}
		res.Journeys++
	}

	count, err := s.listings.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("count listings: %w", err)
	}
	if count > 0 {
		return res, nil
	}

	owner, err := s.seedUser(ctx)
	if err != nil {
		return res, err
	}
	for i := 0; i < demoListings; i++ {
		if _, err := s.listings.Create(ctx, owner.ID, s.fakeListing()); err != nil {
			return res, fmt.Errorf("create listing: %w", err)
		}
		res.Listings++
	}

	s.logger.Info("seeded demo data", "journeys", res.Journeys, "listings", res.Listings)
	return res, nil
}

func (s *Seeder) seedUser(ctx context.Context) (*model.User, error) {
	u, err := s.users.GetByUsername(ctx, SeedUsername)
	if err != nil {
		return nil, fmt.Errorf("get seed user: %w", err)
	}
	if u != nil {
		return u, nil
	}

	// Nobody signs in as the seed user; the password is discarded.
	hash, err := auth.HashPassword(s.faker.Password(true, true, true, true, false, 24))
	if err != nil {
		return nil, err
	}
	u, err = s.users.Create(ctx, SeedUsername, seedEmail, hash)
	if err != nil {
		return nil, fmt.Errorf("create seed user: %w", err)
	}
	return u, nil
}

func (s *Seeder) fakeJourney() *model.Journey {
	f := s.faker
	days := f.Number(2, 7)
	dest := f.City()

	stops := make([]model.JourneyStop, days)
	for i := range stops {
		stops[i] = model.JourneyStop{
			Day:   i + 1,
			Place: f.City(),
			Note:  f.Sentence(8),
		}
	}
	return &model.Journey{
		Title:       fmt.Sprintf("%s days of %s %s", spell(days), f.Adjective(), dest),
		Destination: dest + ", " + f.Country(),
		Summary:     f.Sentence(16),
		Days:        days,
		Stops:       stops,
	}
}

func (s *Seeder) fakeListing() model.ListingInput {
	f := s.faker
	city := f.City()
	return model.ListingInput{
		Title:       capitalize(f.Adjective()) + " " + f.Noun() + " in " + city,
		Description: f.Paragraph(1, 3, 12, " "),
		ImageURL:    fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.LetterN(10)),
		Price:       f.Number(40, 600),
		Location:    city,
		Country:     f.Country(),
	}
}

var numberWords = []string{"Zero", "One", "Two", "Three", "Four", "Five", "Six", "Seven"}

func spell(n int) string {
	if n >= 0 && n < len(numberWords) {
		return numberWords[n]
	}
	return fmt.Sprint(n)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
