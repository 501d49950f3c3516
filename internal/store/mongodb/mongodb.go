// Package mongodb implements store.Store over a single document collection.
//
// A unique compound index on (group, code) enforces the uniqueness invariant
// at the storage layer; listing pages on the collection's monotonic _id as an
// implicit creation-order cursor.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/serroba/shortlink/internal/clock"
	"github.com/serroba/shortlink/internal/link"
	"github.com/serroba/shortlink/internal/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CollectionName is the collection holding all link documents.
const CollectionName = "shortlinks"

type linkDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Group     string        `bson:"group"`
	Code      string        `bson:"code"`
	URL       string        `bson:"url"`
	CreatedAt int64         `bson:"createdAt"`
	ExpiresAt *int64        `bson:"expiresAt"`
	Creator   string        `bson:"creator"`
	Owner     string        `bson:"owner"`
}

func toDocument(lnk link.ShortLink) linkDocument {
	return linkDocument{
		Group:     string(lnk.Group),
		Code:      string(lnk.Code),
		URL:       lnk.URL,
		CreatedAt: lnk.CreatedAt,
		ExpiresAt: lnk.ExpiresAt,
		Creator:   string(lnk.Creator),
		Owner:     string(lnk.Owner),
	}
}

func (d linkDocument) toLink() link.ShortLink {
	return link.ShortLink{
		Group:     link.Group(d.Group),
		Code:      link.Code(d.Code),
		URL:       d.URL,
		CreatedAt: d.CreatedAt,
		ExpiresAt: d.ExpiresAt,
		Creator:   link.User(d.Creator),
		Owner:     link.User(d.Owner),
	}
}

// Store is a MongoDB-backed short-link store.
type Store struct {
	coll *mongo.Collection
	clk  clock.Clock
}

// New creates a store over an externally owned database handle.
func New(db *mongo.Database, clk clock.Clock) *Store {
	return &Store{coll: db.Collection(CollectionName), clk: clk}
}

// EnsureIndexes creates the unique compound index backing the (group, code)
// uniqueness invariant. Call once at startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "group", Value: 1}, {Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	return nil
}

func (s *Store) Create(ctx context.Context, lnk link.ShortLink) (link.ShortLink, error) {
	_, err := s.coll.InsertOne(ctx, toDocument(lnk))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return link.ShortLink{}, &store.DuplicateCodeError{Group: lnk.Group, Code: lnk.Code}
		}

		return link.ShortLink{}, fmt.Errorf("insert link: %w", err)
	}

	return lnk, nil
}

func (s *Store) Get(ctx context.Context, group link.Group, code link.Code, excludeExpired bool) (*link.ShortLink, error) {
	filter := bson.D{
		{Key: "group", Value: string(group)},
		{Key: "code", Value: string(code)},
	}

	var doc linkDocument

	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}

		return nil, fmt.Errorf("find link: %w", err)
	}

	lnk := doc.toLink()

	// Expiry is applied on the fetched document rather than in the query;
	// at single-document scale the two are equivalent and this keeps the
	// clock out of the filter.
	if excludeExpired && lnk.IsExpired(s.clk.Now()) {
		return nil, store.ErrNotFound
	}

	return &lnk, nil
}

// mutationFilter matches the (group, code) document only when the caller is
// authorized, so the subsequent single-document write is atomic
// check-then-act.
func mutationFilter(group link.Group, code link.Code, caller link.User) bson.D {
	return bson.D{
		{Key: "group", Value: string(group)},
		{Key: "code", Value: string(code)},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "owner", Value: string(link.AnonymousUser)}},
			bson.D{{Key: "owner", Value: string(caller)}},
		}},
	}
}

func (s *Store) UpdateURL(ctx context.Context, group link.Group, code link.Code, rawURL string, updater link.User) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "url", Value: rawURL}}}}

	res, err := s.coll.UpdateOne(ctx, mutationFilter(group, code, updater), update)
	if err != nil {
		return fmt.Errorf("update url: %w", err)
	}

	if res.MatchedCount == 0 {
		return &store.NotFoundOrNotPermittedError{Group: group, Code: code}
	}

	return nil
}

func (s *Store) UpdateExpiry(ctx context.Context, group link.Group, code link.Code, expiresAt *int64, updater link.User) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "expiresAt", Value: expiresAt}}}}

	res, err := s.coll.UpdateOne(ctx, mutationFilter(group, code, updater), update)
	if err != nil {
		return fmt.Errorf("update expiry: %w", err)
	}

	if res.MatchedCount == 0 {
		return &store.NotFoundOrNotPermittedError{Group: group, Code: code}
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, group link.Group, code link.Code, deleter link.User) error {
	res, err := s.coll.DeleteOne(ctx, mutationFilter(group, code, deleter))
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}

	if res.DeletedCount == 0 {
		return &store.NotFoundOrNotPermittedError{Group: group, Code: code}
	}

	return nil
}

// ListByGroupAndOwner pages on the document _id: each page resumes strictly
// after the last-seen ObjectID, so the cursor is stable under concurrent
// inserts and deletes. The token is the ObjectID's hex form.
func (s *Store) ListByGroupAndOwner(ctx context.Context, group link.Group, owner link.User, pageToken string, limit int) (*store.PaginatedResult, error) {
	if limit <= 0 {
		limit = store.DefaultPageSize
	}

	filter := bson.D{
		{Key: "group", Value: string(group)},
		{Key: "owner", Value: string(owner)},
	}

	if pageToken != "" {
		lastID, err := bson.ObjectIDFromHex(pageToken)
		if err != nil {
			return nil, store.ErrInvalidPageToken
		}

		filter = append(filter, bson.E{Key: "_id", Value: bson.D{{Key: "$gt", Value: lastID}}})
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit + 1))

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	var docs []linkDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode links: %w", err)
	}

	result := &store.PaginatedResult{}

	hasMore := len(docs) > limit
	if hasMore {
		docs = docs[:limit]
	}

	for _, doc := range docs {
		result.Entries = append(result.Entries, doc.toLink())
	}

	if hasMore {
		result.NextPageToken = docs[len(docs)-1].ID.Hex()
	}

	return result, nil
}

var _ store.Store = (*Store)(nil)
