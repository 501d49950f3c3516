//go:build integration

package mongodb_test

import (
	"context"
	"os"
	"testing"

	"github.com/serroba/shortlink/internal/clock"
	"github.com/serroba/shortlink/internal/store"
	"github.com/serroba/shortlink/internal/store/mongodb"
	"github.com/serroba/shortlink/internal/store/storetest"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func getMongoURI() string {
	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		return uri
	}

	return "mongodb://localhost:27017"
}

func TestMongoStore_Conformance(t *testing.T) {
	ctx := context.Background()

	client, err := mongo.Connect(options.Client().ApplyURI(getMongoURI()))
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	defer func() { _ = client.Disconnect(ctx) }()

	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}

	db := client.Database("shortlink_test")

	storetest.Run(t, func(t *testing.T) (store.Store, *clock.Fake) {
		require.NoError(t, db.Collection(mongodb.CollectionName).Drop(ctx))

		clk := clock.NewFake(storetest.Epoch)
		s := mongodb.New(db, clk)
		require.NoError(t, s.EnsureIndexes(ctx))

		return s, clk
	})
}
