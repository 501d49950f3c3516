package dynamodb_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/serroba/shortlink/internal/clock"
	"github.com/serroba/shortlink/internal/store"
	dynamostore "github.com/serroba/shortlink/internal/store/dynamodb"
	"github.com/serroba/shortlink/internal/store/storetest"
	"github.com/stretchr/testify/require"
)

// fakeDynamo is an in-memory stand-in for the DynamoDB client that honors the
// two condition expressions the store issues and the group_owner index query,
// so the full contract suite runs without a server.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	// onBeforePut runs under the lock before the condition check, letting
	// tests interleave a concurrent modification.
	onBeforePut func(f *fakeDynamo)
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func stringAttr(av types.AttributeValue) string {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}

	return s.Value
}

func numberValue(av types.AttributeValue) string {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return ""
	}

	return n.Value
}

func (f *fakeDynamo) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	it, ok := f.items[stringAttr(params.Key["partition_key"])]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}

	return &dynamodb.GetItemOutput{Item: it}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.onBeforePut != nil {
		f.onBeforePut(f)
	}

	pk := stringAttr(params.Item["partition_key"])
	existing, exists := f.items[pk]

	if params.ConditionExpression != nil {
		switch *params.ConditionExpression {
		case "attribute_not_exists(partition_key)":
			if exists {
				return nil, &types.ConditionalCheckFailedException{}
			}
		case "version = :v":
			want := numberValue(params.ExpressionAttributeValues[":v"])
			if !exists || numberValue(existing["version"]) != want {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}

	f.items[pk] = params.Item

	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pk := stringAttr(params.Key["partition_key"])
	existing, exists := f.items[pk]

	if params.ConditionExpression != nil && *params.ConditionExpression == "version = :v" {
		want := numberValue(params.ExpressionAttributeValues[":v"])
		if !exists || numberValue(existing["version"]) != want {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}

	delete(f.items, pk)

	return &dynamodb.DeleteItemOutput{}, nil
}

// Query matches items on the group_owner key and returns them in partition
// key order, resuming strictly after ExclusiveStartKey, as the index would.
func (f *fakeDynamo) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	wantGroupOwner := stringAttr(params.ExpressionAttributeValues[":go"])

	var keys []string

	for pk, it := range f.items {
		if stringAttr(it["group_owner"]) == wantGroupOwner {
			keys = append(keys, pk)
		}
	}

	sort.Strings(keys)

	if params.ExclusiveStartKey != nil {
		after := stringAttr(params.ExclusiveStartKey["partition_key"])
		for len(keys) > 0 && keys[0] <= after {
			keys = keys[1:]
		}
	}

	if params.Limit != nil && len(keys) > int(*params.Limit) {
		keys = keys[:*params.Limit]
	}

	out := &dynamodb.QueryOutput{}
	for _, pk := range keys {
		out.Items = append(out.Items, f.items[pk])
	}

	return out, nil
}

func newTestStore(t *testing.T) (*dynamostore.Store, *fakeDynamo, *clock.Fake) {
	t.Helper()

	fake := newFakeDynamo()
	clk := clock.NewFake(storetest.Epoch)

	return dynamostore.New(fake, "", clk), fake, clk
}

func TestDynamoStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (store.Store, *clock.Fake) {
		s, _, clk := newTestStore(t)

		return s, clk
	})
}

func TestDynamoStore_ConcurrentMutationConflicts(t *testing.T) {
	ctx := context.Background()
	s, fake, _ := newTestStore(t)

	created, err := s.Create(ctx, storetest.NewLink())
	require.NoError(t, err)

	// Bump the stored version between the store's read and its conditional
	// write, as a concurrent mutation would.
	fake.onBeforePut = func(f *fakeDynamo) {
		for _, it := range f.items {
			it["version"] = &types.AttributeValueMemberN{Value: "99"}
		}
	}

	err = s.UpdateURL(ctx, created.Group, created.Code, "https://conflict.example.com", created.Owner)
	require.ErrorIs(t, err, store.ErrVersionConflict)
}

func TestDynamoStore_RejectsReservedDelimiter(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	for name, opt := range map[string]storetest.Option{
		"group": storetest.WithGroup("grp|||x"),
		"code":  storetest.WithCode("abc|||def"),
		"owner": storetest.WithOwner("user|||1"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Create(ctx, storetest.NewLink(opt))
			require.ErrorIs(t, err, store.ErrValidation)
		})
	}
}
