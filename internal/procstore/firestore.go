// Copyright 2025 Certen Protocol
//
// FirestoreStore: a Firestore-backed MessageStore for deployments where
// several nodes share one process-definition cache. All operations are
// gated on an Enabled flag so local development runs without credentials.
package procstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	gcpfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/megabyte0x/HyperBEAM/internal/bundle"
)

// FirestoreConfig holds the project, optional credentials file, target
// collection, and the enabled flag gating all operations.
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
	Collection      string
	Enabled         bool
	Logger          *log.Logger
}

// DefaultFirestoreConfig reads configuration from environment variables.
func DefaultFirestoreConfig() *FirestoreConfig {
	return &FirestoreConfig{
		ProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		Collection:      "podaMessages",
		Enabled:         os.Getenv("FIRESTORE_ENABLED") == "true",
		Logger:          log.New(os.Stdout, "[procstore] ", log.LstdFlags),
	}
}

// FirestoreStore is a MessageStore backed by a Firestore collection, one
// document per message keyed by its encoded content ID. ReadMessage blocks
// on a background context; callers needing cancellation should use
// ReadMessageContext directly.
type FirestoreStore struct {
	client  *gcpfirestore.Client
	coll    string
	enabled bool
	logger  *log.Logger
}

// NewFirestoreStore initializes the Firebase app and Firestore client. If
// cfg.Enabled is false it returns a no-op store immediately.
func NewFirestoreStore(ctx context.Context, cfg *FirestoreConfig) (*FirestoreStore, error) {
	if cfg == nil {
		cfg = DefaultFirestoreConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stdout, "[procstore] ", log.LstdFlags)
	}
	if cfg.Collection == "" {
		cfg.Collection = "podaMessages"
	}

	store := &FirestoreStore{coll: cfg.Collection, enabled: cfg.Enabled, logger: cfg.Logger}
	if !cfg.Enabled {
		cfg.Logger.Println("firestore message store disabled - running in no-op mode")
		return store, nil
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("procstore: FIREBASE_PROJECT_ID is required when Firestore is enabled")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("procstore: init firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("procstore: init firestore client: %w", err)
	}
	store.client = client
	return store, nil
}

// Close releases the underlying Firestore client.
func (s *FirestoreStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// PutContext writes msg as a document keyed by its unsigned content ID.
func (s *FirestoreStore) PutContext(ctx context.Context, msg *bundle.Item) (bundle.ID, error) {
	id := bundle.UnsignedID(msg)
	if !s.enabled || s.client == nil {
		return id, nil
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return id, fmt.Errorf("procstore: marshal message: %w", err)
	}
	docID := bundle.EncodeID(id)
	_, err = s.client.Collection(s.coll).Doc(docID).Set(ctx, map[string]any{"item": string(raw)})
	if err != nil {
		return id, fmt.Errorf("procstore: write message: %w", err)
	}
	return id, nil
}

// ReadMessageContext reads a message document by content ID under ctx.
func (s *FirestoreStore) ReadMessageContext(ctx context.Context, id bundle.ID) (*bundle.Item, bool) {
	if !s.enabled || s.client == nil {
		return nil, false
	}
	snap, err := s.client.Collection(s.coll).Doc(bundle.EncodeID(id)).Get(ctx)
	if err != nil || !snap.Exists() {
		return nil, false
	}
	data := snap.Data()
	raw, ok := data["item"].(string)
	if !ok {
		return nil, false
	}
	var msg bundle.Item
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		s.logger.Printf("procstore: corrupt message document %s: %v", bundle.EncodeID(id), err)
		return nil, false
	}
	return &msg, true
}

// ReadMessage implements execstate.MessageStore.
func (s *FirestoreStore) ReadMessage(id bundle.ID) (*bundle.Item, bool) {
	return s.ReadMessageContext(context.Background(), id)
}
