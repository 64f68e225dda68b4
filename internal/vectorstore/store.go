// Package vectorstore is a typed facade over a Qdrant vector index:
// collection init, upsert, filtered similarity search, and
// administrative collection management.
package vectorstore

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/FreddyJ01/CodeSleuth/internal/cserrors"
	"github.com/FreddyJ01/CodeSleuth/internal/models"
	"github.com/cenkalti/backoff/v5"
	"github.com/qdrant/go-client/qdrant"
)

// Store wraps a Qdrant client bound to a single collection of dimension
// Dim. init() is idempotent; upsert retries transient transport errors
// with the same backoff schedule as EmbeddingClient.
type Store struct {
	client     *qdrant.Client
	collection string
	dim        int
	maxRetries int
	baseDelay  time.Duration
}

// Config carries the connection and retry parameters for a Store.
type Config struct {
	Host       string
	Port       int
	UseTLS     bool
	Collection string
	Dim        int
	MaxRetries int
	BaseDelay  time.Duration
}

// New dials Qdrant and returns a Store bound to Config.Collection.
func New(cfg Config) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, cserrors.VectorStoreErr("connect to qdrant", err)
	}
	return &Store{
		client:     client,
		collection: cfg.Collection,
		dim:        cfg.Dim,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
	}, nil
}

// Init creates the collection with vector dimension D and cosine
// distance if absent. Idempotent.
func (s *Store) Init(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return cserrors.VectorStoreErr("check collection existence", err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(s.dim),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return cserrors.VectorStoreErr("create collection "+s.collection, err)
	}
	log.Printf("vectorstore: created collection %s (dim=%d, cosine)", s.collection, s.dim)
	return nil
}

// toValue applies the payload scalar conversion rule: string->string;
// 32-bit int->integer; 64-bit int->integer; float32->double;
// float64->double; bool->bool; anything else->its textual
// representation.
func toValue(v any) *qdrant.Value {
	switch tv := v.(type) {
	case string:
		return qdrant.NewValueString(tv)
	case int32:
		return qdrant.NewValueInt(int64(tv))
	case int64:
		return qdrant.NewValueInt(tv)
	case int:
		return qdrant.NewValueInt(int64(tv))
	case float32:
		return qdrant.NewValueDouble(float64(tv))
	case float64:
		return qdrant.NewValueDouble(tv)
	case bool:
		return qdrant.NewValueBool(tv)
	default:
		return qdrant.NewValueString(fmt.Sprint(tv))
	}
}

func fromValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind.(type) {
	case *qdrant.Value_IntegerValue:
		return v.GetIntegerValue()
	case *qdrant.Value_DoubleValue:
		return v.GetDoubleValue()
	case *qdrant.Value_BoolValue:
		return v.GetBoolValue()
	default:
		return v.GetStringValue()
	}
}

func toPoint(id string, vector []float32, payload map[string]any) *qdrant.PointStruct {
	p := make(map[string]*qdrant.Value, len(payload))
	for k, v := range payload {
		p[k] = toValue(v)
	}
	return &qdrant.PointStruct{
		Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: id}},
		Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: vector}}},
		Payload: p,
	}
}

// Upsert inserts or replaces a single point.
func (s *Store) Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	return s.UpsertBulk(ctx, []models.IndexPoint{{ID: id, Vector: vector}}, []map[string]any{payload})
}

// UpsertBulk performs one round trip, atomic per request from the
// client's viewpoint, retried on transient transport errors.
func (s *Store) UpsertBulk(ctx context.Context, points []models.IndexPoint, payloads []map[string]any) error {
	if len(points) == 0 {
		return nil
	}
	if len(payloads) != len(points) {
		return cserrors.InvalidArgument("payloads must match points length")
	}
	for _, p := range points {
		if len(p.Vector) != s.dim {
			return cserrors.InvalidArgument(fmt.Sprintf("vector has %d dims, want %d", len(p.Vector), s.dim))
		}
	}

	qpoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qpoints[i] = toPoint(p.ID, p.Vector, payloads[i])
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.baseDelay
	bo.Multiplier = 2
	bo.MaxInterval = 30 * time.Second
	bo.RandomizationFactor = 0.5

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         qpoints,
		})
		return struct{}{}, err
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(s.maxRetries+1)))
	if err != nil {
		return cserrors.VectorStoreErr(fmt.Sprintf("upsert %d points", len(points)), err)
	}
	return nil
}

// Search returns up to limit points whose payload matches filter (all
// keys equal their value; string equality), ordered by descending
// cosine similarity. Not retried.
func (s *Store) Search(ctx context.Context, vector []float32, limit int, filter map[string]string) ([]models.Hit, error) {
	if limit <= 0 {
		return nil, cserrors.InvalidArgument("limit must be > 0")
	}
	if len(vector) != s.dim {
		return nil, cserrors.InvalidArgument(fmt.Sprintf("vector has %d dims, want %d", len(vector), s.dim))
	}

	limitU := uint64(limit)
	req := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limitU,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	}
	if len(filter) > 0 {
		req.Filter = buildFilter(filter)
	}

	results, err := s.client.Query(ctx, req)
	if err != nil {
		return nil, cserrors.VectorStoreErr("search", err)
	}

	hits := make([]models.Hit, len(results))
	for i, r := range results {
		payload := make(map[string]any, len(r.Payload))
		for k, v := range r.Payload {
			payload[k] = fromValue(v)
		}
		hits[i] = models.Hit{ID: r.Id.GetUuid(), Score: float64(r.Score), Payload: payload}
	}
	return hits, nil
}

func buildFilter(filter map[string]string) *qdrant.Filter {
	must := make([]*qdrant.Condition, 0, len(filter))
	for k, v := range filter {
		must = append(must, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key:   k,
					Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: v}},
				},
			},
		})
	}
	return &qdrant.Filter{Must: must}
}

// DeleteByFilter removes every point whose payload matches filter.
// Resolves the open question on whether registry deletion should purge
// orphaned vector data: it does, via this call.
func (s *Store) DeleteByFilter(ctx context.Context, filter map[string]string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: buildFilter(filter)},
		},
	})
	if err != nil {
		return cserrors.VectorStoreErr("delete by filter", err)
	}
	return nil
}

// ListCollections is an administrative operation.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, cserrors.VectorStoreErr("list collections", err)
	}
	return names, nil
}

// DeleteCollection is an administrative operation.
func (s *Store) DeleteCollection(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return cserrors.VectorStoreErr("delete collection "+s.collection, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
