package persistence

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Raul302/Push-notifications-brazof/pkg/delivery"
)

const defaultTokenCollection = "push-tokens"

// tokenDoc is the shape of the data stored in Firestore for a user's push
// credential.
type tokenDoc struct {
	Token     string    `firestore:"token"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// FirestoreTokenStore implements delivery.TokenStore using Google Cloud
// Firestore, one document per user keyed by user ID.
type FirestoreTokenStore struct {
	client     *firestore.Client
	collection string
	logger     zerolog.Logger
}

// NewFirestoreTokenStore is the constructor for the FirestoreTokenStore.
func NewFirestoreTokenStore(client *firestore.Client, collection string, logger zerolog.Logger) (*FirestoreTokenStore, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}
	if collection == "" {
		collection = defaultTokenCollection
	}
	return &FirestoreTokenStore{
		client:     client,
		collection: collection,
		logger:     logger.With().Str("component", "firestore_token_store").Logger(),
	}, nil
}

// Put overwrites the user's token document. Set is an unconditional upsert,
// so concurrent registrations are last-writer-wins.
func (s *FirestoreTokenStore) Put(ctx context.Context, userID, token string) error {
	docRef := s.client.Collection(s.collection).Doc(userID)
	_, err := docRef.Set(ctx, &tokenDoc{
		Token:     token,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to store token for %s: %w", userID, err)
	}
	s.logger.Debug().Str("user", userID).Msg("Token stored.")
	return nil
}

// Get fetches the user's token document, mapping a missing document to
// delivery.ErrTokenNotFound.
func (s *FirestoreTokenStore) Get(ctx context.Context, userID string) (string, error) {
	snap, err := s.client.Collection(s.collection).Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", delivery.ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch token for %s: %w", userID, err)
	}

	var doc tokenDoc
	if err := snap.DataTo(&doc); err != nil {
		return "", fmt.Errorf("failed to unmarshal token document for %s: %w", userID, err)
	}
	if doc.Token == "" {
		return "", delivery.ErrTokenNotFound
	}
	return doc.Token, nil
}

// Close releases the Firestore client.
func (s *FirestoreTokenStore) Close() error {
	return s.client.Close()
}
