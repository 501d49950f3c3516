//go:build integration

package dynamodb_test

import (
	"context"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/serroba/shortlink/internal/clock"
	"github.com/serroba/shortlink/internal/store"
	dynamostore "github.com/serroba/shortlink/internal/store/dynamodb"
	"github.com/serroba/shortlink/internal/store/storetest"
	"github.com/stretchr/testify/require"
)

const testTableName = "shortlinks_test"

func getDynamoEndpoint() string {
	if ep := os.Getenv("DYNAMODB_ENDPOINT"); ep != "" {
		return ep
	}

	return "http://localhost:8000"
}

func newDynamoClient(ctx context.Context, t *testing.T) *dynamodb.Client {
	t.Helper()

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")),
	)
	require.NoError(t, err)

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(getDynamoEndpoint())
	})
}

func truncateTable(ctx context.Context, t *testing.T, client *dynamodb.Client) {
	t.Helper()

	out, err := client.Scan(ctx, &dynamodb.ScanInput{
		TableName:            aws.String(testTableName),
		ProjectionExpression: aws.String("partition_key"),
	})
	require.NoError(t, err)

	for _, it := range out.Items {
		_, err := client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(testTableName),
			Key:       it,
		})
		require.NoError(t, err)
	}
}

func TestDynamoStore_Integration(t *testing.T) {
	ctx := context.Background()
	client := newDynamoClient(ctx, t)

	if err := dynamostore.EnsureTable(ctx, client, testTableName); err != nil {
		t.Skipf("DynamoDB not available: %v", err)
	}

	storetest.Run(t, func(t *testing.T) (store.Store, *clock.Fake) {
		truncateTable(ctx, t, client)

		clk := clock.NewFake(storetest.Epoch)

		return dynamostore.New(client, testTableName, clk), clk
	})
}
