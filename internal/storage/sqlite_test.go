//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"layerlab/internal/model"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "layerlab.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	for _, id := range []string{"t2", "t1"} {
		if err := store.SaveTopology(ctx, sampleTopology(id)); err != nil {
			t.Fatalf("save topology %s: %v", id, err)
		}
	}
	updated := sampleTopology("t1")
	updated.Layers[1].Size = 7
	if err := store.SaveTopology(ctx, updated); err != nil {
		t.Fatalf("upsert topology: %v", err)
	}

	loaded, ok, err := store.GetTopology(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("get topology: ok=%t err=%v", ok, err)
	}
	if loaded.Layers[1].Size != 7 {
		t.Fatalf("expected upserted size 7, got %+v", loaded.Layers[1])
	}

	list, err := store.ListTopologies(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "t1" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := store.SaveWeightHistory(ctx, "t1", sampleSnapshots(2, 3)); err != nil {
		t.Fatalf("save weights: %v", err)
	}
	snapshots, ok, err := store.GetWeightHistory(ctx, "t1")
	if err != nil || !ok || len(snapshots) != 2 || snapshots[1].Values[2] != 1.2 {
		t.Fatalf("get weights: %+v ok=%t err=%v", snapshots, ok, err)
	}

	if err := store.SaveMetrics(ctx, "t1", []model.EpochMetrics{{Epoch: 1, Loss: 0.5}}); err != nil {
		t.Fatalf("save metrics: %v", err)
	}
	metrics, ok, err := store.GetMetrics(ctx, "t1")
	if err != nil || !ok || len(metrics) != 1 || metrics[0].Loss != 0.5 {
		t.Fatalf("get metrics: %+v ok=%t err=%v", metrics, ok, err)
	}

	if err := store.DeleteTopology(ctx, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.GetWeightHistory(ctx, "t1"); ok {
		t.Fatal("expected weight history removed with topology")
	}
	if _, ok, _ := store.GetTopology(ctx, "t1"); ok {
		t.Fatal("expected topology removed")
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "layerlab.db"))
	if _, _, err := store.GetTopology(context.Background(), "t1"); err == nil {
		t.Fatal("expected error before init")
	}
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected error for empty path")
	}
}
