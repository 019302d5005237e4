package repository

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/ChronusArtCenter/cosycoding/internal/db"
	"github.com/ChronusArtCenter/cosycoding/internal/model"
)

// Property: any inserted asset comes back with server-assigned fields and is
// visible in its project's listing, and only there.
func TestAssetInsertListProperty(t *testing.T) {
	testDB, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	defer testDB.Close()

	projects := NewProjectRepository(testDB)
	assets := NewAssetRepository(testDB)
	ctx := context.Background()

	for _, id := range []string{"proj-a", "proj-b"} {
		if err := projects.Upsert(ctx, &model.Project{ID: id, ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
			t.Fatalf("failed to create project: %v", err)
		}
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	nonEmptyString := gen.AlphaString().SuchThat(func(s string) bool {
		return len(s) > 0 && len(s) <= 100
	})

	properties.Property("inserted assets are listed under their own project only", prop.ForAll(
		func(filename string, size int64) bool {
			url := "/uploads/" + model.NewID(13)
			draft := model.AssetDraft{
				URL:      url,
				Filename: filename,
				Type:     "image/png",
				Size:     size,
			}

			asset, err := assets.Insert(ctx, "proj-a", draft)
			if err != nil {
				t.Logf("failed to insert asset: %v", err)
				return false
			}

			// Server-assigned fields are populated.
			if asset.ID == "" || asset.CreatedAt.IsZero() {
				return false
			}
			if asset.URL != url || asset.Filename != filename || asset.Size != size {
				return false
			}

			listed, err := assets.ListByProject(ctx, "proj-a")
			if err != nil {
				t.Logf("failed to list assets: %v", err)
				return false
			}
			found := false
			for _, a := range listed {
				if a.ID == asset.ID {
					found = true
					break
				}
			}
			if !found {
				return false
			}

			// The other project never sees it.
			other, err := assets.ListByProject(ctx, "proj-b")
			if err != nil {
				return false
			}
			for _, a := range other {
				if a.ID == asset.ID {
					return false
				}
			}
			return true
		},
		nonEmptyString,
		gen.Int64Range(0, 40*1024*1024),
	))

	properties.Property("deleting by URL removes exactly that asset", prop.ForAll(
		func(filename string) bool {
			url := "/uploads/" + model.NewID(13)
			if _, err := assets.Insert(ctx, "proj-a", model.AssetDraft{
				URL: url, Filename: filename, Type: "text/plain", Size: 1,
			}); err != nil {
				return false
			}

			before, err := assets.ListByProject(ctx, "proj-a")
			if err != nil {
				return false
			}

			if err := assets.DeleteByURL(ctx, "proj-a", url); err != nil {
				return false
			}

			after, err := assets.ListByProject(ctx, "proj-a")
			if err != nil {
				return false
			}
			if len(after) != len(before)-1 {
				return false
			}
			for _, a := range after {
				if a.URL == url {
					return false
				}
			}
			return true
		},
		nonEmptyString,
	))

	properties.TestingRun(t)
}

func TestAssetDeleteMissing(t *testing.T) {
	testDB, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	defer testDB.Close()

	assets := NewAssetRepository(testDB)

	err = assets.DeleteByURL(context.Background(), "proj-a", "/uploads/ghost.png")
	if err != model.ErrAssetNotFound {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestAssetInsertRequiresProject(t *testing.T) {
	testDB, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	defer testDB.Close()

	assets := NewAssetRepository(testDB)

	_, err = assets.Insert(context.Background(), "no-such-project", model.AssetDraft{
		URL: "/uploads/x.png", Filename: "x.png", Type: "image/png", Size: 1,
	})
	if err == nil {
		t.Error("expected foreign key violation for unknown project")
	}
}
