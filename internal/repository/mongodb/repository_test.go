package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/mamadbah2/cafeledger/internal/domain/models"
)

func TestSnapshotDocumentKeys(t *testing.T) {
	raw, err := bson.Marshal(models.ReportSnapshot{Period: "daily", NetProfit: 12.5})
	if err != nil {
		t.Fatalf("bson.Marshal: %v", err)
	}
	doc := bson.Raw(raw)
	if v := doc.Lookup("period").StringValue(); v != "daily" {
		t.Fatalf("period: got %q", v)
	}
	if v := doc.Lookup("net_profit").Double(); v != 12.5 {
		t.Fatalf("net_profit: got %v", v)
	}
	if _, err := doc.LookupErr("since"); err == nil {
		t.Fatal("nil since should be omitted")
	}
}

// TestSaveAndLoadReports runs against a real server when MONGODB_TEST_URI is set.
func TestSaveAndLoadReports(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := "cafeledger_test_" + time.Now().Format("20060102150405")
	repo, err := NewMongoDBRepository(ctx, uri, dbName)
	if err != nil {
		t.Fatalf("NewMongoDBRepository: %v", err)
	}
	defer func() {
		_ = repo.client.Database(dbName).Drop(ctx)
		_ = repo.Close(ctx)
	}()

	older := models.ReportSnapshot{Period: "daily", GeneratedAt: time.Date(2025, 3, 9, 20, 0, 0, 0, time.UTC), NetProfit: 1}
	newer := models.ReportSnapshot{Period: "daily", GeneratedAt: time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC), NetProfit: 2}
	for _, r := range []models.ReportSnapshot{older, newer} {
		if err := repo.SaveReport(ctx, r); err != nil {
			t.Fatalf("SaveReport: %v", err)
		}
	}

	got, err := repo.LatestReports(ctx, "daily", 1)
	if err != nil {
		t.Fatalf("LatestReports: %v", err)
	}
	if len(got) != 1 || got[0].NetProfit != 2 {
		t.Fatalf("latest: %+v", got)
	}
}
