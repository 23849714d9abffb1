package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/roamstay/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SessionStore struct {
	coll *mongo.Collection
}

func (s *SessionStore) Get(ctx context.Context, key string) (*model.Session, error) {
	var sess model.Session
	err := s.coll.FindOne(ctx, bson.M{
		"_id":        key,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &sess, nil
}

func (s *SessionStore) Set(ctx context.Context, sess *model.Session) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": sess.Key}, sess, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

func (s *SessionStore) Touch(ctx context.Context, key string, expiresAt, touchedAt time.Time) error {
	_, err := s.coll.UpdateByID(ctx, key, bson.M{"$set": bson.M{
		"expires_at": expiresAt.UTC(),
		"touched_at": touchedAt.UTC(),
	}})
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.DeletedCount, nil
}
