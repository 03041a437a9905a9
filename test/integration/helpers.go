//go:build integration
// +build integration

package integration

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/harbourlight/conductor/internal/api"
	"github.com/harbourlight/conductor/internal/control"
	"github.com/harbourlight/conductor/internal/db"
	"github.com/harbourlight/conductor/internal/models"
	"github.com/harbourlight/conductor/internal/timeline"
)

// setupTestDB creates an in-memory test database with migrations applied
func setupTestDB(t *testing.T) (*db.DB, *db.Repositories, func()) {
	t.Helper()

	// Create in-memory database
	database, err := db.New(":memory:")
	require.NoError(t, err, "Failed to create in-memory database")

	// Run migrations
	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err, "Failed to get SQL DB")

	// Get absolute path to migrations directory relative to this file
	// This ensures tests work regardless of working directory
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get current file path")

	testDir := filepath.Dir(filename)                     // test/integration
	rootDir := filepath.Dir(filepath.Dir(testDir))        // repository root
	migrationsPath := "file://" + filepath.Join(rootDir, "migrations")

	err = db.RunMigrations(sqlDB, migrationsPath)
	require.NoError(t, err, "Failed to run migrations")

	// Create repositories
	repos := db.NewRepositories(database)

	// Cleanup function
	cleanup := func() {
		database.Close()
	}

	return database, repos, cleanup
}

// setupPlayoutStack wires a playout manager and a test router with every
// playout route registered
func setupPlayoutStack(t *testing.T, database *db.DB, repos *db.Repositories) (*control.PlayoutManager, *gin.Engine) {
	t.Helper()

	timelineService := timeline.NewService(repos.Timelines, nil, models.GenerationVersions{
		Core:      "test",
		Blueprint: "test",
		Studio:    "test",
	})
	manager := control.NewPlayoutManager(database, repos, timelineService, nil, control.Config{
		DefaultPartDuration:    3000,
		LookaheadDepth:         3,
		QuickLoopForceAutoNext: models.ForceQuickLoopAutoNextDisabled,
	})
	t.Cleanup(manager.Stop)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())

	apiGroup := router.Group("/api")
	api.SetupPlaylistRoutes(apiGroup, repos)
	api.SetupPlayoutRoutes(apiGroup, manager)
	api.SetupTimingRoutes(apiGroup, manager)
	api.SetupTimelineRoutes(apiGroup, manager)

	return manager, router
}

// seededShow holds the document ids created by seedShow
type seededShow struct {
	PlaylistID uuid.UUID
	RundownID  uuid.UUID
	SegmentID  uuid.UUID
	PartIDs    []uuid.UUID
}

// seedShow creates a minimal playable playlist: one rundown, one segment and
// two parts with one piece each
func seedShow(t *testing.T, repos *db.Repositories) seededShow {
	t.Helper()
	ctx := context.Background()

	playlist := &models.RundownPlaylist{
		ID:         uuid.New(),
		ExternalID: "show-1",
		Name:       "Evening News",
	}
	require.NoError(t, repos.Playlists.Create(ctx, playlist))

	rundown := &models.Rundown{
		ID:         uuid.New(),
		PlaylistID: playlist.ID,
		ExternalID: "rd-1",
		Name:       "Main",
		Rank:       1,
	}
	require.NoError(t, repos.Rundowns.Create(ctx, rundown))

	segment := &models.Segment{
		ID:        uuid.New(),
		RundownID: rundown.ID,
		Name:      "Headlines",
		Rank:      1,
	}
	require.NoError(t, repos.Segments.Create(ctx, segment))

	duration := int64(1000)
	partIDs := make([]uuid.UUID, 0, 2)
	for i, title := range []string{"Opener", "Story A"} {
		part := &models.Part{
			ID:               uuid.New(),
			RundownID:        rundown.ID,
			SegmentID:        segment.ID,
			Title:            title,
			Rank:             float64(i + 1),
			ExpectedDuration: &duration,
		}
		require.NoError(t, repos.Parts.Create(ctx, part))
		partIDs = append(partIDs, part.ID)

		piece := &models.Piece{
			ID:        uuid.New(),
			PartID:    part.ID,
			RundownID: rundown.ID,
			Name:      title + " clip",
			Layer:     "program",
			Enable:    models.PieceEnable{Start: 0},
			PieceType: models.PieceTypeNormal,
			Lifespan:  models.PieceLifespanWithinPart,
		}
		require.NoError(t, repos.Pieces.Create(ctx, piece))
	}

	return seededShow{
		PlaylistID: playlist.ID,
		RundownID:  rundown.ID,
		SegmentID:  segment.ID,
		PartIDs:    partIDs,
	}
}
