// Package qdrant keeps face embeddings in a Qdrant collection.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"incident-map/domain/models"
	"incident-map/domain/repositories"
	"incident-map/pkg/embedding"
	"incident-map/pkg/logger"
)

// Extra candidates requested so hits sitting exactly on the threshold, which
// Qdrant keeps and we drop, do not starve the result.
const overfetch = 8

// FaceIndex is an EmbeddingIndex over one Qdrant collection. Points are keyed by
// image id and carry report_id and image_id in their payload.
type FaceIndex struct {
	collections    pb.CollectionsClient
	points         pb.PointsClient
	conn           *grpc.ClientConn
	collectionName string
}

var _ repositories.EmbeddingIndex = (*FaceIndex)(nil)

// NewFaceIndex dials Qdrant's gRPC port.
func NewFaceIndex(address, collectionName string) (*FaceIndex, error) {
	conn, err := grpc.Dial(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	return &FaceIndex{
		collections:    pb.NewCollectionsClient(conn),
		points:         pb.NewPointsClient(conn),
		conn:           conn,
		collectionName: collectionName,
	}, nil
}

// NewFaceIndexWithClients is used when the gRPC clients are built elsewhere.
func NewFaceIndexWithClients(collections pb.CollectionsClient, points pb.PointsClient, collectionName string) *FaceIndex {
	return &FaceIndex{collections: collections, points: points, collectionName: collectionName}
}

func (x *FaceIndex) Close() error {
	if x.conn != nil {
		return x.conn.Close()
	}
	return nil
}

// EnsureCollection creates the cosine collection when it does not exist yet.
func (x *FaceIndex) EnsureCollection(ctx context.Context) error {
	if _, err := x.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: x.collectionName}); err == nil {
		return nil
	}

	_, err := x.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: x.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     embedding.Dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	logger.Face("qdrant_collection_created", "Qdrant collection created", map[string]interface{}{
		"collection": x.collectionName,
		"dimension":  embedding.Dimension,
	})
	return nil
}

func (x *FaceIndex) Upsert(ctx context.Context, image *models.ReportImage) error {
	vec := image.Embedding()
	if !image.HasFace || vec == nil {
		return x.Remove(ctx, image.ID)
	}
	if err := embedding.CheckDimension(vec); err != nil {
		return err
	}

	point := &pb.PointStruct{
		Id: pointID(image.ID),
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{Data: vec},
			},
		},
		Payload: map[string]*pb.Value{
			"report_id": stringValue(image.ReportID.String()),
			"image_id":  stringValue(image.ID.String()),
		},
	}

	_, err := x.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: x.collectionName,
		Points:         []*pb.PointStruct{point},
		Wait:           boolPtr(true),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

func (x *FaceIndex) Remove(ctx context.Context, imageID uuid.UUID) error {
	_, err := x.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: x.collectionName,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{
					Ids: []*pb.PointId{pointID(imageID)},
				},
			},
		},
		Wait: boolPtr(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete point: %w", err)
	}
	return nil
}

func (x *FaceIndex) Search(ctx context.Context, query []float32, threshold float64, limit int) ([]repositories.EmbeddingHit, error) {
	if err := embedding.CheckDimension(query); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	scoreThreshold := float32(threshold)
	resp, err := x.points.Search(ctx, &pb.SearchPoints{
		CollectionName: x.collectionName,
		Vector:         query,
		Limit:          uint64(limit + overfetch),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
		ScoreThreshold: &scoreThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]repositories.EmbeddingHit, 0, limit)
	for _, p := range resp.GetResult() {
		if float64(p.GetScore()) <= threshold {
			continue
		}
		imageID, err := uuid.Parse(payloadString(p.GetPayload(), "image_id"))
		if err != nil {
			imageID, err = uuid.Parse(p.GetId().GetUuid())
			if err != nil {
				continue
			}
		}
		reportID, err := uuid.Parse(payloadString(p.GetPayload(), "report_id"))
		if err != nil {
			logger.Warn(logger.CategoryFace, "qdrant_payload_invalid", "Point without report_id skipped", map[string]interface{}{"image_id": imageID.String()})
			continue
		}
		hits = append(hits, repositories.EmbeddingHit{ImageID: imageID, ReportID: reportID, Similarity: float64(p.GetScore())})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func pointID(id uuid.UUID) *pb.PointId {
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id.String()}}
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func payloadString(payload map[string]*pb.Value, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.Kind.(*pb.Value_StringValue); ok {
		return s.StringValue
	}
	return ""
}

func boolPtr(b bool) *bool {
	return &b
}
