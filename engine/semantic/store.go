package semantic

import (
	"context"
	"fmt"

	"github.com/ArchonAI/archon-engine/engine/domain"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// insertBatchSize bounds points per upsert call so a partial failure can be
// reported per sub-batch instead of losing the whole insert.
const insertBatchSize = 64

// VectorStore implements the vector index over Qdrant's gRPC API.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	return v.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist. Existing
// collections are detected and skipped, so the call is idempotent. Failures
// here are fatal for the indexing capability and must surface at startup.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return &domain.VectorIndexError{Op: "ensure-collection", Wrapped: err}
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Euclid,
				},
			},
		},
	})
	if err != nil {
		return &domain.VectorIndexError{Op: "ensure-collection", Wrapped: err}
	}
	return nil
}

// InsertMany upserts entries in bounded sub-batches. All-or-nothing is not
// guaranteed; on failure the returned VectorIndexError names the entry IDs
// that did not make it.
func (v *VectorStore) InsertMany(ctx context.Context, entries []domain.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var failed []string
	var firstErr error
	for start := 0; start < len(entries); start += insertBatchSize {
		end := min(start+insertBatchSize, len(entries))
		batch := entries[start:end]

		points := make([]*pb.PointStruct, len(batch))
		for i, e := range batch {
			points[i] = &pb.PointStruct{
				Id: &pb.PointId{
					PointIdOptions: &pb.PointId_Uuid{Uuid: e.ID},
				},
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vector{
						Vector: &pb.Vector{Data: e.Vector},
					},
				},
				Payload: entryPayload(e),
			}
		}

		wait := true
		_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: v.collection,
			Wait:           &wait,
			Points:         points,
		})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			for _, e := range batch {
				failed = append(failed, e.ID)
			}
		}
	}

	if firstErr != nil {
		return &domain.VectorIndexError{Op: "insert", FailedIDs: failed, Wrapped: firstErr}
	}
	return nil
}

// entryPayload builds the metadata payload used for post-filtering.
func entryPayload(e domain.VectorEntry) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		"chunk_id":    stringValue(e.ChunkID),
		"document_id": stringValue(e.DocumentID),
		"excerpt":     stringValue(e.Excerpt),
		"title":       stringValue(e.Title),
		"created_at":  stringValue(e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")),
	}
	if e.Category != "" {
		payload["category"] = stringValue(e.Category)
	}
	if e.Jurisdiction != "" {
		payload["jurisdiction"] = stringValue(e.Jurisdiction)
	}
	if e.Court != "" {
		payload["court"] = stringValue(e.Court)
	}
	if e.Year != 0 {
		payload["year"] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(e.Year)}}
	}
	if len(e.Tags) > 0 {
		vals := make([]*pb.Value, len(e.Tags))
		for i, t := range e.Tags {
			vals[i] = stringValue(t)
		}
		payload["tags"] = &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: vals}}}
	}
	if len(e.PageNums) > 0 {
		vals := make([]*pb.Value, len(e.PageNums))
		for i, p := range e.PageNums {
			vals[i] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(p)}}
		}
		payload["pages"] = &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: vals}}}
	}
	return payload
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

// Search performs filtered k-NN search. Raw L2 distance is normalized to
// score = 1 - distance, clamped to [0,1]; hits below the threshold are
// excluded from the result set, not just ranked low.
func (v *VectorStore) Search(ctx context.Context, queryVector []float32, params SearchParams) ([]SearchResult, error) {
	topK := params.TopK
	if topK <= 0 {
		topK = 10
	}

	req := &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         queryVector,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		Filter:         buildFilter(params.Filter),
	}

	resp, err := v.points.Search(ctx, req)
	if err != nil {
		return nil, &domain.VectorIndexError{Op: "search", Wrapped: err}
	}

	results := make([]SearchResult, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		score := normalizeScore(r.GetScore())
		if score < params.ScoreThreshold {
			continue
		}
		sr := SearchResult{
			VectorID: r.GetId().GetUuid(),
			Score:    score,
			Meta:     make(map[string]string),
		}
		for k, val := range r.GetPayload() {
			s := val.GetStringValue()
			switch k {
			case "chunk_id":
				sr.ChunkID = s
			case "document_id":
				sr.DocumentID = s
			case "excerpt":
				sr.Excerpt = s
			case "title":
				sr.Title = s
			case "category":
				sr.Category = s
			default:
				if s != "" {
					sr.Meta[k] = s
				}
			}
		}
		results = append(results, sr)
	}
	return results, nil
}

// normalizeScore converts a raw L2 distance to a [0,1] similarity.
func normalizeScore(distance float32) float32 {
	score := 1 - distance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// DeleteByChunkIDs removes all points whose chunk_id payload matches any of
// the given IDs.
func (v *VectorStore) DeleteByChunkIDs(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	should := make([]*pb.Condition, len(chunkIDs))
	for i, id := range chunkIDs {
		should[i] = fieldMatch("chunk_id", id)
	}
	return v.deleteByFilter(ctx, &pb.Filter{Should: should}, "delete-chunks")
}

// DeleteByDocumentID removes all points for a document. Used before
// re-ingestion so retries never leave duplicate entries.
func (v *VectorStore) DeleteByDocumentID(ctx context.Context, documentID string) error {
	return v.deleteByFilter(ctx, &pb.Filter{
		Must: []*pb.Condition{fieldMatch("document_id", documentID)},
	}, "delete-document")
}

func (v *VectorStore) deleteByFilter(ctx context.Context, filter *pb.Filter, op string) error {
	wait := true
	_, err := v.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{Filter: filter},
		},
	})
	if err != nil {
		return &domain.VectorIndexError{Op: op, Wrapped: err}
	}
	return nil
}
