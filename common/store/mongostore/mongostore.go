// Package mongostore is the MongoDB store backend. Federated plans run as a
// single aggregation per request using $unionWith.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lyzr/chainquery/common/models"
	"github.com/lyzr/chainquery/common/mongodb"
	"github.com/lyzr/chainquery/common/plan"
	"github.com/lyzr/chainquery/common/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Store reads chains, nodes, users and media from one MongoDB database
type Store struct {
	client *mongodb.Client
	db     *mongo.Database
}

var _ store.Store = (*Store)(nil)

// New creates a store over the client's configured database
func New(client *mongodb.Client) *Store {
	return &Store{client: client, db: client.Database()}
}

type chainDoc struct {
	ID         any     `bson:"_id"`
	Name       string  `bson:"name"`
	SeedAmount float64 `bson:"seedAmount"`
	RootNode   any     `bson:"rootNode"`
}

type userDoc struct {
	ID       any    `bson:"_id"`
	UserName string `bson:"userName"`
}

type rowDoc struct {
	ID           any      `bson:"_id"`
	NodeID       int64    `bson:"nodeId"`
	TotalMembers int64    `bson:"totalMembers"`
	User         any      `bson:"user"`
	Parent       any      `bson:"parent"`
	Children     []any    `bson:"children"`
	Chain        string   `bson:"chain"`
	UserData     *userDoc `bson:"userData"`
}

func (d *rowDoc) row() models.Row {
	row := models.Row{
		Node: models.Node{
			ID:           idString(d.ID),
			NodeID:       d.NodeID,
			TotalMembers: d.TotalMembers,
			User:         idString(d.User),
			Parent:       idString(d.Parent),
		},
		Chain: d.Chain,
	}
	for _, c := range d.Children {
		row.Children = append(row.Children, idString(c))
	}
	if d.UserData != nil {
		row.UserData = &models.User{ID: idString(d.UserData.ID), UserName: d.UserData.UserName}
	}
	return row
}

func (s *Store) ListChains(ctx context.Context, skip, limit int64) ([]models.Chain, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.db.Collection(store.ChainsCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find chains: %w", err)
	}

	var docs []chainDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode chains: %w", err)
	}

	chains := make([]models.Chain, 0, len(docs))
	for _, d := range docs {
		chains = append(chains, models.Chain{
			ID:         idString(d.ID),
			Name:       d.Name,
			SeedAmount: d.SeedAmount,
			RootNode:   idString(d.RootNode),
		})
	}
	return chains, nil
}

func (s *Store) CountChains(ctx context.Context) (int64, error) {
	n, err := s.db.Collection(store.ChainsCollection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count chains: %w", err)
	}
	return n, nil
}

func (s *Store) ChainNames(ctx context.Context) ([]string, error) {
	res := s.db.Collection(store.ChainsCollection).Distinct(ctx, "name", bson.D{})
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("distinct chain names: %w", err)
	}

	var names []string
	if err := res.Decode(&names); err != nil {
		return nil, fmt.Errorf("decode chain names: %w", err)
	}
	return names, nil
}

func (s *Store) FindNode(ctx context.Context, collection, id string) (*models.Node, error) {
	var doc rowDoc
	err := s.db.Collection(collection).FindOne(ctx, bson.D{{Key: "_id", Value: idValue(id)}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find node in %s: %w", collection, err)
	}

	node := doc.row().Node
	return &node, nil
}

func (s *Store) FindMedia(ctx context.Context) (models.Media, error) {
	var doc bson.M
	err := s.db.Collection(store.MediaCollection).FindOne(ctx, bson.D{}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find media: %w", err)
	}

	media := make(models.Media, len(doc))
	for k, v := range doc {
		media[k] = normalize(v)
	}
	return media, nil
}

// Execute runs p as one aggregation against its base collection
func (s *Store) Execute(ctx context.Context, p *plan.Plan) ([]models.Row, error) {
	pipeline, err := Pipeline(p)
	if err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}

	base := p.Base().Collection
	cursor, err := s.db.Collection(base).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", base, err)
	}

	var docs []rowDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}

	rows := make([]models.Row, 0, len(docs))
	for i := range docs {
		rows = append(rows, docs[i].row())
	}
	return rows, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// idString renders a document reference as the string the API exposes
func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case bson.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

// idValue reverses idString: hex object ids go back to ObjectID
func idValue(id string) any {
	if oid, err := bson.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// normalize turns driver types into plain JSON-friendly values
func normalize(v any) any {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]any, len(val))
		for k, x := range val {
			out[k] = normalize(x)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, 0, len(val))
		for _, x := range val {
			out = append(out, normalize(x))
		}
		return out
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return val.Time().UTC().Format(time.RFC3339Nano)
	}
	return v
}
