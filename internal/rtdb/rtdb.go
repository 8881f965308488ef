package rtdb

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

// ErrConflict is returned by Transaction when the backend gave up after
// repeated contention on the same node. Callers may retry the single
// conditional update once.
var ErrConflict = errors.New("concurrent update conflict")

// TransactionNode exposes the current value of a node inside a
// transaction. It matches the Firebase SDK's db.TransactionNode so the
// real client can be passed through unchanged.
type TransactionNode interface {
	Unmarshal(v interface{}) error
}

// UpdateFn computes the new value of a node from its current state.
// Returning an error aborts the transaction and propagates the error.
type UpdateFn func(TransactionNode) (interface{}, error)

// Gateway is the persistence surface the services run on. Paths are
// slash-separated like tickets/{userID}/{key}. Every entity read or
// written goes through here; services hold no state between calls.
type Gateway interface {
	// Get reads the value at path into v. An absent node leaves v at its
	// zero value and returns nil.
	Get(ctx context.Context, path string, v interface{}) error
	// Set writes v at path, replacing whatever was there.
	Set(ctx context.Context, path string, v interface{}) error
	// Update merges the given fields into the node at path.
	Update(ctx context.Context, path string, fields map[string]interface{}) error
	// Push appends v under path with a generated child key and returns it.
	Push(ctx context.Context, path string, v interface{}) (string, error)
	// Transaction runs fn as an atomic compare-and-swap on the node at
	// path. This is the only mutation primitive safe against concurrent
	// writers of the same node.
	Transaction(ctx context.Context, path string, fn UpdateFn) error
}

// FirebaseGateway implements Gateway on the Firebase Realtime Database.
type FirebaseGateway struct {
	client *db.Client
}

// NewFirebaseGateway connects to the realtime database at databaseURL.
func NewFirebaseGateway(ctx context.Context, databaseURL string, opts ...option.ClientOption) (*FirebaseGateway, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting database client: %w", err)
	}

	return &FirebaseGateway{client: client}, nil
}

// NewFirebaseGatewayFromEnv initializes the gateway from environment
// configuration. Credentials come from FIREBASE_SERVICE_ACCOUNT_JSON
// (Base64 encoded) with a fallback to a local service account key file.
func NewFirebaseGatewayFromEnv(ctx context.Context, localFilePath string) (*FirebaseGateway, error) {
	databaseURL := os.Getenv("FIREBASE_DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("FIREBASE_DATABASE_URL environment variable is not set")
	}

	var opt option.ClientOption
	encodedCreds := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
	if encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials from FIREBASE_SERVICE_ACCOUNT_JSON: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		log.Println("RTDB: Initializing from FIREBASE_SERVICE_ACCOUNT_JSON environment variable.")
	} else {
		if _, err := os.Stat(localFilePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("local firebase key file not found: %s, and FIREBASE_SERVICE_ACCOUNT_JSON environment variable is not set", localFilePath)
		}
		opt = option.WithCredentialsFile(localFilePath)
		log.Printf("RTDB: Initializing from local file: %s.", localFilePath)
	}

	return NewFirebaseGateway(ctx, databaseURL, opt)
}

func (g *FirebaseGateway) Get(ctx context.Context, path string, v interface{}) error {
	return g.client.NewRef(path).Get(ctx, v)
}

func (g *FirebaseGateway) Set(ctx context.Context, path string, v interface{}) error {
	return g.client.NewRef(path).Set(ctx, v)
}

func (g *FirebaseGateway) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	return g.client.NewRef(path).Update(ctx, fields)
}

func (g *FirebaseGateway) Push(ctx context.Context, path string, v interface{}) (string, error) {
	ref, err := g.client.NewRef(path).Push(ctx, v)
	if err != nil {
		return "", err
	}
	return ref.Key, nil
}

func (g *FirebaseGateway) Transaction(ctx context.Context, path string, fn UpdateFn) error {
	err := g.client.NewRef(path).Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		return fn(node)
	})
	if err != nil && strings.Contains(err.Error(), "retries") {
		// The SDK retries ETag mismatches internally; this means the node
		// stayed contended past the retry limit.
		return fmt.Errorf("%w: %s", ErrConflict, err)
	}
	return err
}
