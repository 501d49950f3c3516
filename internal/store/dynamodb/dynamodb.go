// Package dynamodb implements store.Store over a single-item-by-key table.
//
// Each link is one item whose partition key derives from (group, code); a
// global secondary index on the derived (group, owner) key serves listing.
// DynamoDB has no multi-field atomic check-then-mutate primitive, so
// mutations read the item, check ownership, and write conditionally on the
// version stamp observed by the read (optimistic concurrency). A concurrent
// mutation between read and write surfaces as store.ErrVersionConflict.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/serroba/shortlink/internal/clock"
	"github.com/serroba/shortlink/internal/link"
	"github.com/serroba/shortlink/internal/store"
)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store is a DynamoDB-backed short-link store.
type Store struct {
	client API
	table  string
	clk    clock.Clock
}

// New creates a store over an externally owned client.
func New(client API, table string, clk clock.Clock) *Store {
	if table == "" {
		table = DefaultTableName
	}

	return &Store{client: client, table: table, clk: clk}
}

// listCursor is the structured form of a listing continuation token: the
// native last-evaluated key of the query, opaque to callers once encoded.
type listCursor struct {
	PartitionKey string `msgpack:"pk"`
	GroupOwner   string `msgpack:"go"`
}

// Create writes the item conditionally on it not existing yet, so two
// concurrent creates for the same (group, code) resolve to exactly one
// success without a separate read.
func (s *Store) Create(ctx context.Context, lnk link.ShortLink) (link.ShortLink, error) {
	if err := validateKeyParts(lnk); err != nil {
		return link.ShortLink{}, err
	}

	av, err := attributevalue.MarshalMap(toItem(lnk, 1))
	if err != nil {
		return link.ShortLink{}, fmt.Errorf("marshal item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(partition_key)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return link.ShortLink{}, &store.DuplicateCodeError{Group: lnk.Group, Code: lnk.Code}
		}

		return link.ShortLink{}, fmt.Errorf("put item: %w", err)
	}

	return lnk, nil
}

func (s *Store) Get(ctx context.Context, group link.Group, code link.Code, excludeExpired bool) (*link.ShortLink, error) {
	it, err := s.getItem(ctx, group, code)
	if err != nil {
		return nil, err
	}

	if it == nil {
		return nil, store.ErrNotFound
	}

	lnk := it.toLink()
	if excludeExpired && lnk.IsExpired(s.clk.Now()) {
		return nil, store.ErrNotFound
	}

	return &lnk, nil
}

// getItem fetches the raw item with a strongly consistent read, or nil when
// absent.
func (s *Store) getItem(ctx context.Context, group link.Group, code link.Code) (*item, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            keyAttr(partitionKey(group, code)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	if out.Item == nil {
		return nil, nil
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}

	return &it, nil
}

func (s *Store) UpdateURL(ctx context.Context, group link.Group, code link.Code, rawURL string, updater link.User) error {
	return s.mutate(ctx, group, code, updater, func(lnk *link.ShortLink) {
		lnk.URL = rawURL
	})
}

func (s *Store) UpdateExpiry(ctx context.Context, group link.Group, code link.Code, expiresAt *int64, updater link.User) error {
	return s.mutate(ctx, group, code, updater, func(lnk *link.ShortLink) {
		lnk.ExpiresAt = expiresAt
	})
}

// mutate reads the item, checks ownership, then writes back conditionally on
// the version observed by the read. Missing record and failed ownership
// check short-circuit before any write; a version mismatch at write time
// means a concurrent mutation landed in between and surfaces as a retryable
// conflict instead of a silent overwrite.
func (s *Store) mutate(ctx context.Context, group link.Group, code link.Code, updater link.User, modify func(*link.ShortLink)) error {
	it, err := s.getItem(ctx, group, code)
	if err != nil {
		return err
	}

	if it == nil {
		return &store.NotFoundOrNotPermittedError{Group: group, Code: code}
	}

	lnk := it.toLink()
	if lnk.Owner != link.AnonymousUser && lnk.Owner != updater {
		return &store.NotFoundOrNotPermittedError{Group: group, Code: code}
	}

	modify(&lnk)

	av, err := attributevalue.MarshalMap(toItem(lnk, it.Version+1))
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: aws.String("version = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": numberAttr(it.Version),
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("%w: link %q in group %q", store.ErrVersionConflict, code, group)
		}

		return fmt.Errorf("put item: %w", err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, group link.Group, code link.Code, deleter link.User) error {
	it, err := s.getItem(ctx, group, code)
	if err != nil {
		return err
	}

	if it == nil {
		return &store.NotFoundOrNotPermittedError{Group: group, Code: code}
	}

	lnk := it.toLink()
	if lnk.Owner != link.AnonymousUser && lnk.Owner != deleter {
		return &store.NotFoundOrNotPermittedError{Group: group, Code: code}
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.table),
		Key:                 keyAttr(it.PartitionKey),
		ConditionExpression: aws.String("version = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": numberAttr(it.Version),
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("%w: link %q in group %q", store.ErrVersionConflict, code, group)
		}

		return fmt.Errorf("delete item: %w", err)
	}

	return nil
}

// ListByGroupAndOwner queries the (group, owner) secondary index. One extra
// item decides whether a further page exists; the continuation token encodes
// the native key structure of the last returned item, so the cursor is
// stable under concurrent modification.
func (s *Store) ListByGroupAndOwner(ctx context.Context, group link.Group, owner link.User, pageToken string, limit int) (*store.PaginatedResult, error) {
	if limit <= 0 {
		limit = store.DefaultPageSize
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(GroupOwnerIndexName),
		KeyConditionExpression: aws.String("group_owner = :go"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":go": &types.AttributeValueMemberS{Value: groupOwnerKey(group, owner)},
		},
		Limit: aws.Int32(int32(limit + 1)),
	}

	if pageToken != "" {
		var cursor listCursor
		if err := store.DecodePageToken(pageToken, &cursor); err != nil {
			return nil, err
		}

		input.ExclusiveStartKey = map[string]types.AttributeValue{
			"partition_key": &types.AttributeValueMemberS{Value: cursor.PartitionKey},
			"group_owner":   &types.AttributeValueMemberS{Value: cursor.GroupOwner},
		}
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	var items []item
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}

	result := &store.PaginatedResult{}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	for _, it := range items {
		result.Entries = append(result.Entries, it.toLink())
	}

	if hasMore {
		last := items[len(items)-1]

		token, err := store.EncodePageToken(listCursor{
			PartitionKey: last.PartitionKey,
			GroupOwner:   last.GroupOwner,
		})
		if err != nil {
			return nil, err
		}

		result.NextPageToken = token
	}

	return result, nil
}

func keyAttr(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"partition_key": &types.AttributeValueMemberS{Value: pk},
	}
}

func numberAttr(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException

	return errors.As(err, &ccf)
}

var _ store.Store = (*Store)(nil)
