package store

import (
	"context"
	"testing"

	"github.com/ankiplace/ankiplace/internal/canvas"
)

// grantPaint gives a user paint drops directly, bypassing the review
// pipeline, so paint tests don't need ten proofs per drop.
func grantPaint(t *testing.T, s *Store, userID string, drops int) {
	t.Helper()
	_, err := s.writer.Exec(
		`UPDATE users SET paint_balance = paint_balance + ? WHERE user_id = ?`, drops, userID,
	)
	if err != nil {
		t.Fatalf("grant paint: %v", err)
	}
}

func TestRegisterUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.RegisterUser(ctx, "  alice ")
	if err != nil {
		t.Fatalf("RegisterUser() failed: %v", err)
	}

	if user.ID == "" {
		t.Error("user ID is empty")
	}
	if user.Username != "alice" {
		t.Errorf("username = %q, want normalized %q", user.Username, "alice")
	}

	got, err := s.UserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("UserByID() failed: %v", err)
	}
	if got.PaintBalance != 0 {
		t.Errorf("new user balance = %d, want 0", got.PaintBalance)
	}
}

func TestPaintPixel_UnknownUser(t *testing.T) {
	s := newTestStore(t)

	_, err := s.PaintPixel(context.Background(), canvas.PixelUpdate{
		X: 1, Y: 1, Color: 5, UserID: "ghost",
	})
	if canvas.CodeOf(err) != canvas.CodeNotFound {
		t.Errorf("error code = %v, want NOT_FOUND", canvas.CodeOf(err))
	}
}

func TestPaintPixel_InsufficientPaint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.RegisterUser(ctx, "broke")
	if err != nil {
		t.Fatalf("RegisterUser() failed: %v", err)
	}

	_, err = s.PaintPixel(ctx, canvas.PixelUpdate{X: 0, Y: 0, Color: 1, UserID: user.ID})
	if canvas.CodeOf(err) != canvas.CodeInsufficientPaint {
		t.Errorf("error code = %v, want INSUFFICIENT_PAINT", canvas.CodeOf(err))
	}

	// A failed paint must leave the cell untouched.
	detail, err := s.PixelDetail(ctx, 0, 0)
	if err != nil {
		t.Fatalf("PixelDetail() failed: %v", err)
	}
	if detail.Color != 0 || detail.LastUserID != "" {
		t.Errorf("cell modified by failed paint: %+v", detail)
	}
}

func TestPaintPixel_AppliesAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.RegisterUser(ctx, "painter")
	if err != nil {
		t.Fatalf("RegisterUser() failed: %v", err)
	}
	grantPaint(t, s, user.ID, 2)

	pixel, err := s.PaintPixel(ctx, canvas.PixelUpdate{X: 3, Y: 7, Color: 9, UserID: user.ID})
	if err != nil {
		t.Fatalf("PaintPixel() failed: %v", err)
	}
	if pixel.Color != 9 || pixel.LastUserID != user.ID {
		t.Errorf("returned pixel = %+v", pixel)
	}

	detail, err := s.PixelDetail(ctx, 3, 7)
	if err != nil {
		t.Fatalf("PixelDetail() failed: %v", err)
	}
	if detail.Color != 9 {
		t.Errorf("cell color = %d, want 9", detail.Color)
	}
	if detail.Username != "painter" {
		t.Errorf("cell username = %q, want %q", detail.Username, "painter")
	}

	balance, err := s.PaintBalance(ctx, user.ID)
	if err != nil {
		t.Fatalf("PaintBalance() failed: %v", err)
	}
	if balance != 1 {
		t.Errorf("balance after paint = %d, want 1", balance)
	}
}

func TestSubmitReviews_AwardsPaint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.RegisterUser(ctx, "reviewer")
	if err != nil {
		t.Fatalf("RegisterUser() failed: %v", err)
	}

	// 25 fresh proofs = 2 paint drops, remainder ignored.
	proofs := make([]canvas.ReviewProof, 25)
	for i := range proofs {
		proofs[i] = canvas.ReviewProof{CardID: int64(i), Timestamp: float64(1000 + i)}
	}

	receipt, err := s.SubmitReviews(ctx, canvas.ReviewSubmission{UserID: user.ID, Proofs: proofs})
	if err != nil {
		t.Fatalf("SubmitReviews() failed: %v", err)
	}
	if receipt.NewProofs != 25 {
		t.Errorf("new proofs = %d, want 25", receipt.NewProofs)
	}
	if receipt.PaintAwarded != 2 {
		t.Errorf("paint awarded = %d, want 2", receipt.PaintAwarded)
	}

	balance, err := s.PaintBalance(ctx, user.ID)
	if err != nil {
		t.Fatalf("PaintBalance() failed: %v", err)
	}
	if balance != 2 {
		t.Errorf("balance = %d, want 2", balance)
	}
}

func TestSubmitReviews_DeduplicatesProofs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.RegisterUser(ctx, "resubmitter")
	if err != nil {
		t.Fatalf("RegisterUser() failed: %v", err)
	}

	proofs := make([]canvas.ReviewProof, 10)
	for i := range proofs {
		proofs[i] = canvas.ReviewProof{CardID: int64(i), Timestamp: 42}
	}
	sub := canvas.ReviewSubmission{UserID: user.ID, Proofs: proofs}

	first, err := s.SubmitReviews(ctx, sub)
	if err != nil {
		t.Fatalf("first SubmitReviews() failed: %v", err)
	}
	if first.PaintAwarded != 1 {
		t.Fatalf("first submission awarded %d, want 1", first.PaintAwarded)
	}

	// Resubmitting the identical batch awards nothing.
	second, err := s.SubmitReviews(ctx, sub)
	if err != nil {
		t.Fatalf("second SubmitReviews() failed: %v", err)
	}
	if second.NewProofs != 0 || second.PaintAwarded != 0 {
		t.Errorf("replayed submission counted: %+v", second)
	}

	balance, err := s.PaintBalance(ctx, user.ID)
	if err != nil {
		t.Fatalf("PaintBalance() failed: %v", err)
	}
	if balance != 1 {
		t.Errorf("balance after replay = %d, want 1", balance)
	}
}

func TestSubmitReviews_UnknownUser(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SubmitReviews(context.Background(), canvas.ReviewSubmission{
		UserID: "ghost",
		Proofs: []canvas.ReviewProof{{CardID: 1, Timestamp: 1}},
	})
	if canvas.CodeOf(err) != canvas.CodeNotFound {
		t.Errorf("error code = %v, want NOT_FOUND", canvas.CodeOf(err))
	}
}
