package store

import (
	"context"
	"sync"
	"testing"

	"github.com/ankiplace/ankiplace/internal/canvas"
)

func TestCanvasGrid_Shape(t *testing.T) {
	s := newTestStore(t)

	grid, err := s.CanvasGrid(context.Background())
	if err != nil {
		t.Fatalf("CanvasGrid() failed: %v", err)
	}
	if len(grid) != canvas.Cells {
		t.Fatalf("grid length = %d, want %d", len(grid), canvas.Cells)
	}
	for i, c := range grid {
		if c != 0 {
			t.Fatalf("fresh grid cell %d = %d, want 0", i, c)
		}
	}
}

func TestCanvasGrid_RowMajorIndexing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.RegisterUser(ctx, "indexer")
	if err != nil {
		t.Fatalf("RegisterUser() failed: %v", err)
	}
	grantPaint(t, s, user.ID, 1)

	if _, err := s.PaintPixel(ctx, canvas.PixelUpdate{X: 5, Y: 2, Color: 7, UserID: user.ID}); err != nil {
		t.Fatalf("PaintPixel() failed: %v", err)
	}

	grid, err := s.CanvasGrid(ctx)
	if err != nil {
		t.Fatalf("CanvasGrid() failed: %v", err)
	}
	if got := grid[2*canvas.Width+5]; got != 7 {
		t.Errorf("grid[y*W+x] = %d, want 7", got)
	}
}

func TestPixelDetail_UnpaintedCell(t *testing.T) {
	s := newTestStore(t)

	detail, err := s.PixelDetail(context.Background(), 10, 10)
	if err != nil {
		t.Fatalf("PixelDetail() failed: %v", err)
	}
	if detail.LastUserID != "" || detail.Username != "" {
		t.Errorf("unpainted cell has provenance: %+v", detail)
	}
}

func TestUserByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UserByID(context.Background(), "nobody")
	if canvas.CodeOf(err) != canvas.CodeNotFound {
		t.Errorf("error code = %v, want NOT_FOUND", canvas.CodeOf(err))
	}

	_, err = s.PaintBalance(context.Background(), "nobody")
	if canvas.CodeOf(err) != canvas.CodeNotFound {
		t.Errorf("balance error code = %v, want NOT_FOUND", canvas.CodeOf(err))
	}
}

// TestNoDirtyReads holds a write transaction open and asserts concurrent
// readers see only the last committed snapshot, before and after commit.
func TestNoDirtyReads(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	readColor := func() int {
		t.Helper()
		grid, err := s.CanvasGrid(ctx)
		if err != nil {
			t.Fatalf("CanvasGrid() failed: %v", err)
		}
		return grid[0]
	}

	// Open an explicit write transaction and mutate without committing.
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if _, err := tx.Exec(`UPDATE canvas SET color = 13 WHERE x = 0 AND y = 0`); err != nil {
		t.Fatalf("uncommitted update: %v", err)
	}

	// Concurrent readers must not observe the in-progress write.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			grid, err := s.CanvasGrid(ctx)
			if err != nil {
				t.Errorf("concurrent read failed: %v", err)
				return
			}
			if grid[0] != 0 {
				t.Errorf("dirty read: cell = %d before commit", grid[0])
			}
		}()
	}
	wg.Wait()

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if got := readColor(); got != 13 {
		t.Errorf("cell = %d after commit, want 13", got)
	}
}
