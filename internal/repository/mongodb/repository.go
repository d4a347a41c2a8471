package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/cafeledger/internal/domain/models"
)

const reportsCollection = "report_snapshots"

// Repository defines the interface for report archive storage.
type Repository interface {
	SaveReport(ctx context.Context, report models.ReportSnapshot) error
	LatestReports(ctx context.Context, period string, limit int64) ([]models.ReportSnapshot, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri).SetConnectTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: reportsCollection,
	}

	index := mongo.IndexModel{Keys: bson.D{{Key: "period", Value: 1}, {Key: "generated_at", Value: -1}}}
	if _, err := repo.collection().Indexes().CreateOne(ctx, index); err != nil {
		return nil, fmt.Errorf("failed to create report index: %w", err)
	}

	return repo, nil
}

func (r *MongoDBRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

// SaveReport archives a generated report snapshot.
func (r *MongoDBRepository) SaveReport(ctx context.Context, report models.ReportSnapshot) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	if _, err := r.collection().InsertOne(ctx, report); err != nil {
		return fmt.Errorf("failed to insert %s report: %w", report.Period, err)
	}
	return nil
}

// LatestReports returns up to limit snapshots of period, newest first. An
// empty period matches every period.
func (r *MongoDBRepository) LatestReports(ctx context.Context, period string, limit int64) ([]models.ReportSnapshot, error) {
	filter := bson.M{}
	if period != "" {
		filter["period"] = period
	}
	opts := options.Find().SetSort(bson.D{{Key: "generated_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.ReportSnapshot
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}
	return out, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
