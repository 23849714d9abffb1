package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dukerupert/roamstay/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ListingStore struct {
	coll    *mongo.Collection
	reviews *mongo.Collection
}

func (s *ListingStore) Create(ctx context.Context, ownerID string, in model.ListingInput) (*model.Listing, error) {
	ts := now()
	l := &model.Listing{
		ID:          newID(),
		Title:       in.Title,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Price:       in.Price,
		Location:    in.Location,
		Country:     in.Country,
		OwnerID:     ownerID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if _, err := s.coll.InsertOne(ctx, l); err != nil {
		return nil, fmt.Errorf("insert listing: %w", err)
	}
	return l, nil
}

func (s *ListingStore) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	var l model.Listing
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find listing: %w", err)
	}
	return &l, nil
}

func exactFold(v string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(v) + "$", Options: "i"}
}

func (s *ListingStore) List(ctx context.Context, f model.ListingFilter) ([]model.Listing, error) {
	filter := bson.M{}
	if q := strings.TrimSpace(f.Query); q != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"location": re},
			bson.M{"country": re},
		}
	}
	if f.Location != "" {
		filter["location"] = exactFold(f.Location)
	}
	if f.Country != "" {
		filter["country"] = exactFold(f.Country)
	}

	cur, err := s.coll.Find(ctx, filter, newestFirst(f.Limit))
	if err != nil {
		return nil, fmt.Errorf("find listings: %w", err)
	}
	var listings []model.Listing
	if err := cur.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}
	return listings, nil
}

func (s *ListingStore) Update(ctx context.Context, id string, in model.ListingInput) (*model.Listing, error) {
	_, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"title":       in.Title,
		"description": in.Description,
		"image_url":   in.ImageURL,
		"price":       in.Price,
		"location":    in.Location,
		"country":     in.Country,
		"updated_at":  now(),
	}})
	if err != nil {
		return nil, fmt.Errorf("update listing: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ListingStore) Delete(ctx context.Context, id string) error {
	if _, err := s.reviews.DeleteMany(ctx, bson.M{"listing_id": id}); err != nil {
		return fmt.Errorf("delete listing reviews: %w", err)
	}
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	return nil
}

func (s *ListingStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return n, nil
}
