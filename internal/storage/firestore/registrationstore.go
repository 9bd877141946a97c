// Package firestore implements the RegistrationStore on Google Cloud
// Firestore, as the durable alternative to the Redis backend.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tinywideclouds/go-invitation-service/pkg/invitation"
)

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// registrationDoc is the internal DB representation. UpdatedAt is
// diagnostic only; the read path ignores it.
type registrationDoc struct {
	UserID    string    `firestore:"user_id"`
	Cloud     string    `firestore:"cloud"`
	Endpoint  string    `firestore:"endpoint"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// Put overwrites the single registration document for the user. Set (not
// Create) gives us the last-write-wins semantics the contract asks for.
func (s *FirestoreStore) Put(ctx context.Context, record invitation.Registration) error {
	doc := registrationDoc{
		UserID:    record.UserID,
		Cloud:     string(record.Cloud),
		Endpoint:  record.Endpoint,
		UpdatedAt: time.Now(),
	}
	_, err := s.registrationRef(record.UserID).Set(ctx, doc)
	return err
}

func (s *FirestoreStore) Get(ctx context.Context, userID string) (*invitation.Registration, bool, error) {
	snap, err := s.registrationRef(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("firestore get failed: %w", err)
	}

	var doc registrationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, true, fmt.Errorf("undecodable registration document for %q: %w", userID, err)
	}

	return &invitation.Registration{
		UserID:   doc.UserID,
		Cloud:    invitation.CloudType(doc.Cloud),
		Endpoint: doc.Endpoint,
	}, true, nil
}

// registrationRef: registrations/{userID}
func (s *FirestoreStore) registrationRef(userID string) *firestore.DocumentRef {
	return s.client.Collection("registrations").Doc(userID)
}
