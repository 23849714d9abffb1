package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/roamstay/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReviewStore struct {
	coll  *mongo.Collection
	users *mongo.Collection
}

func (s *ReviewStore) Create(ctx context.Context, listingID, authorID string, in model.ReviewInput) (*model.Review, error) {
	r := &model.Review{
		ID:        newID(),
		ListingID: listingID,
		AuthorID:  authorID,
		Rating:    in.Rating,
		Comment:   in.Comment,
		CreatedAt: now(),
	}
	if _, err := s.coll.InsertOne(ctx, r); err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	if err := s.attachAuthors(ctx, []*model.Review{r}); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReviewStore) GetByID(ctx context.Context, id string) (*model.Review, error) {
	var r model.Review
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}
	if err := s.attachAuthors(ctx, []*model.Review{&r}); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *ReviewStore) ListByListing(ctx context.Context, listingID string) ([]model.Review, error) {
	cur, err := s.coll.Find(ctx, bson.M{"listing_id": listingID}, newestFirst(0))
	if err != nil {
		return nil, fmt.Errorf("find reviews: %w", err)
	}
	var reviews []model.Review
	if err := cur.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}

	ptrs := make([]*model.Review, len(reviews))
	for i := range reviews {
		ptrs[i] = &reviews[i]
	}
	if err := s.attachAuthors(ctx, ptrs); err != nil {
		return nil, err
	}
	return reviews, nil
}

// attachAuthors fills AuthorName with one query for all distinct authors.
func (s *ReviewStore) attachAuthors(ctx context.Context, reviews []*model.Review) error {
	if len(reviews) == 0 {
		return nil
	}
	ids := bson.A{}
	seen := make(map[string]bool)
	for _, r := range reviews {
		if !seen[r.AuthorID] {
			seen[r.AuthorID] = true
			ids = append(ids, r.AuthorID)
		}
	}

	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"username": 1}))
	if err != nil {
		return fmt.Errorf("find review authors: %w", err)
	}
	var authors []struct {
		ID       string `bson:"_id"`
		Username string `bson:"username"`
	}
	if err := cur.All(ctx, &authors); err != nil {
		return fmt.Errorf("decode review authors: %w", err)
	}

	names := make(map[string]string, len(authors))
	for _, a := range authors {
		names[a.ID] = a.Username
	}
	for _, r := range reviews {
		r.AuthorName = names[r.AuthorID]
	}
	return nil
}

func (s *ReviewStore) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

func (s *ReviewStore) Summary(ctx context.Context, listingID string) (model.RatingSummary, error) {
	pipeline := mongo.Pipeline{}
	if listingID != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"listing_id": listingID}}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$group", Value: bson.M{
		"_id":   "$rating",
		"count": bson.M{"$sum": 1},
	}}})

	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return model.RatingSummary{}, fmt.Errorf("aggregate ratings: %w", err)
	}
	var groups []struct {
		Rating int `bson:"_id"`
		Count  int `bson:"count"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return model.RatingSummary{}, fmt.Errorf("decode ratings: %w", err)
	}

	sum := model.RatingSummary{}
	total := 0
	for _, g := range groups {
		if g.Rating < 1 || g.Rating > 5 {
			continue
		}
		sum.Histogram[g.Rating-1] = g.Count
		sum.Count += g.Count
		total += g.Rating * g.Count
	}
	if sum.Count > 0 {
		sum.Average = float64(total) / float64(sum.Count)
	}
	return sum, nil
}
