package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storepulse-ingestion-layer/internal/domain"
	"storepulse-ingestion-layer/internal/ports"
)

// SessionRepository stores in-flight OAuth sessions in MongoDB.
type SessionRepository struct {
	collection *mongo.Collection
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{
		collection: db.Collection("oauth_sessions"),
	}
}

func (r *SessionRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		session.ID = session.State
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession returns nil when no session matches the state or the matching
// session has expired.
func (r *SessionRepository) GetSession(ctx context.Context, state string) (*domain.Session, error) {
	var session domain.Session
	err := r.collection.FindOne(ctx, bson.M{"state": state}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !session.ExpiresAt.IsZero() && time.Now().After(session.ExpiresAt) {
		return nil, nil
	}
	return &session, nil
}

func (r *SessionRepository) DeleteSession(ctx context.Context, state string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"state": state})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var _ ports.SessionStore = (*SessionRepository)(nil)
