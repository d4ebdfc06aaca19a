package session

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/mobileauth/civic-relay/internal/log"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Ensure FirestoreStore implements the Store interface
var _ Store = (*FirestoreStore)(nil)

// FirestoreStore persists sessions in Google Cloud Firestore, one document
// per session.
//
// Error handling strategy:
// - Read operations return errors (auth state must be available to proceed)
// - Expiry cleanup logs and continues (a failed sweep is retried next tick)
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	ttl        time.Duration
	now        func() time.Time
}

// sessionDoc is the Firestore document layout for one session
type sessionDoc struct {
	Data      map[string]string `firestore:"data"`
	UpdatedAt time.Time         `firestore:"updated_at"`
}

// NewFirestoreStore creates a Firestore-backed session store
func NewFirestoreStore(ctx context.Context, projectID, database, collection string, ttl time.Duration) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}

	var client *firestore.Client
	var err error

	// Firestore client with custom database
	if database != "" && database != "(default)" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, database)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return &FirestoreStore{
		client:     client,
		collection: collection,
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

func (f *FirestoreStore) Get(ctx context.Context, sid, key string) (string, error) {
	doc, err := f.client.Collection(f.collection).Doc(sid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get session from Firestore: %w", err)
	}

	var entity sessionDoc
	if err := doc.DataTo(&entity); err != nil {
		return "", fmt.Errorf("failed to unmarshal session: %w", err)
	}

	value, ok := entity.Data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (f *FirestoreStore) Set(ctx context.Context, sid, key, value string) error {
	_, err := f.client.Collection(f.collection).Doc(sid).Set(ctx, map[string]any{
		"data":       map[string]string{key: value},
		"updated_at": f.now(),
	}, firestore.Merge(
		firestore.FieldPath{"data", key},
		firestore.FieldPath{"updated_at"},
	))
	if err != nil {
		return fmt.Errorf("failed to store session key in Firestore: %w", err)
	}
	return nil
}

func (f *FirestoreStore) DeleteKey(ctx context.Context, sid, key string) error {
	_, err := f.client.Collection(f.collection).Doc(sid).Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"data", key}, Value: firestore.Delete},
		{FieldPath: firestore.FieldPath{"updated_at"}, Value: f.now()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return fmt.Errorf("failed to delete session key from Firestore: %w", err)
	}
	return nil
}

func (f *FirestoreStore) Delete(ctx context.Context, sid string) error {
	_, err := f.client.Collection(f.collection).Doc(sid).Delete(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to delete session from Firestore: %w", err)
	}
	return nil
}

func (f *FirestoreStore) CleanupExpired(ctx context.Context) (int, error) {
	cutoff := f.now().Add(-f.ttl)
	iter := f.client.Collection(f.collection).
		Where("updated_at", "<", cutoff).
		Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return count, fmt.Errorf("error iterating expired sessions: %w", err)
		}

		if _, err := doc.Ref.Delete(ctx); err != nil {
			log.LogError("Failed to delete expired session %s: %v", doc.Ref.ID, err)
			continue
		}
		count++
	}
	return count, nil
}

func (f *FirestoreStore) Close() error {
	return f.client.Close()
}
