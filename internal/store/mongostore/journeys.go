package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/roamstay/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type JourneyStore struct {
	coll *mongo.Collection
}

func (s *JourneyStore) Create(ctx context.Context, j *model.Journey) (*model.Journey, error) {
	doc := *j
	doc.ID = newID()
	doc.CreatedAt = now()
	if doc.Stops == nil {
		doc.Stops = []model.JourneyStop{}
	}
	if _, err := s.coll.InsertOne(ctx, &doc); err != nil {
		return nil, fmt.Errorf("insert journey: %w", err)
	}
	return &doc, nil
}

func (s *JourneyStore) GetByID(ctx context.Context, id string) (*model.Journey, error) {
	var j model.Journey
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&j)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find journey: %w", err)
	}
	return &j, nil
}

func (s *JourneyStore) List(ctx context.Context, limit int) ([]model.Journey, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, newestFirst(limit))
	if err != nil {
		return nil, fmt.Errorf("find journeys: %w", err)
	}
	var journeys []model.Journey
	if err := cur.All(ctx, &journeys); err != nil {
		return nil, fmt.Errorf("decode journeys: %w", err)
	}
	return journeys, nil
}

func (s *JourneyStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count journeys: %w", err)
	}
	return n, nil
}
