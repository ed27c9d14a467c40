package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ankiplace/ankiplace/internal/canvas"
)

// All methods in this file mutate state and must only ever be called
// from the write serializer's apply goroutine. Each method is a single
// transaction: it either commits fully or leaves no trace.

// RegisterUser creates a new user with a zero paint balance and returns
// the stored record, including the generated user ID.
func (s *Store) RegisterUser(ctx context.Context, username string) (canvas.User, error) {
	u := canvas.User{
		ID:        s.newID(),
		Username:  canvas.NormalizeUsername(username),
		CreatedAt: s.now(),
	}

	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO users (user_id, username, paint_balance, created_at)
		VALUES (?, ?, 0, ?)
	`, u.ID, u.Username, u.CreatedAt)
	if err != nil {
		return canvas.User{}, fmt.Errorf("register user: %w", err)
	}

	return u, nil
}

// PaintPixel applies one paint: sets the cell's color and provenance and
// deducts one paint drop from the user, atomically.
//
// Returns NotFound if the user is not registered and InsufficientPaint
// if their balance is empty. Coordinate and color validation is the
// gateway's job; the store trusts its input shapes but not its balances.
func (s *Store) PaintPixel(ctx context.Context, upd canvas.PixelUpdate) (canvas.Pixel, error) {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return canvas.Pixel{}, fmt.Errorf("paint pixel: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var balance int
	err = tx.QueryRowContext(ctx,
		`SELECT paint_balance FROM users WHERE user_id = ?`, upd.UserID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return canvas.Pixel{}, canvas.NewNotFound("user not registered")
	}
	if err != nil {
		return canvas.Pixel{}, fmt.Errorf("paint pixel: check balance: %w", err)
	}
	if balance < 1 {
		return canvas.Pixel{}, canvas.NewInsufficientPaint("no paint drops left, review more cards")
	}

	modified := s.now()
	_, err = tx.ExecContext(ctx, `
		UPDATE canvas
		SET color = ?, last_user_id = ?, last_modified = ?
		WHERE x = ? AND y = ?
	`, upd.Color, upd.UserID, modified, upd.X, upd.Y)
	if err != nil {
		return canvas.Pixel{}, fmt.Errorf("paint pixel: update cell: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET paint_balance = paint_balance - 1 WHERE user_id = ?`, upd.UserID,
	)
	if err != nil {
		return canvas.Pixel{}, fmt.Errorf("paint pixel: deduct paint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return canvas.Pixel{}, fmt.Errorf("paint pixel: commit: %w", err)
	}

	return canvas.Pixel{
		X:            upd.X,
		Y:            upd.Y,
		Color:        upd.Color,
		LastUserID:   upd.UserID,
		LastModified: modified,
	}, nil
}

// SubmitReviews records a batch of review proofs and awards paint.
//
// Proofs are deduplicated against everything ever submitted via the
// composite primary key and ON CONFLICT DO NOTHING; only rows actually
// inserted count toward the award. One paint drop is granted per
// ReviewsPerPaint new proofs in the batch.
func (s *Store) SubmitReviews(ctx context.Context, sub canvas.ReviewSubmission) (canvas.ReviewReceipt, error) {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return canvas.ReviewReceipt{}, fmt.Errorf("submit reviews: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var balance int
	err = tx.QueryRowContext(ctx,
		`SELECT paint_balance FROM users WHERE user_id = ?`, sub.UserID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return canvas.ReviewReceipt{}, canvas.NewNotFound("user not registered")
	}
	if err != nil {
		return canvas.ReviewReceipt{}, fmt.Errorf("submit reviews: check user: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO review_proofs (user_id, card_id, timestamp)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, card_id, timestamp) DO NOTHING
	`)
	if err != nil {
		return canvas.ReviewReceipt{}, fmt.Errorf("submit reviews: prepare insert: %w", err)
	}
	defer stmt.Close()

	var receipt canvas.ReviewReceipt
	for _, proof := range sub.Proofs {
		res, err := stmt.ExecContext(ctx, sub.UserID, proof.CardID, proof.Timestamp)
		if err != nil {
			return canvas.ReviewReceipt{}, fmt.Errorf("submit reviews: insert proof: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return canvas.ReviewReceipt{}, fmt.Errorf("submit reviews: rows affected: %w", err)
		}
		if affected > 0 {
			receipt.NewProofs++
		}
	}

	receipt.PaintAwarded = receipt.NewProofs / canvas.ReviewsPerPaint
	if receipt.PaintAwarded > 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET paint_balance = paint_balance + ? WHERE user_id = ?`,
			receipt.PaintAwarded, sub.UserID,
		)
		if err != nil {
			return canvas.ReviewReceipt{}, fmt.Errorf("submit reviews: award paint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return canvas.ReviewReceipt{}, fmt.Errorf("submit reviews: commit: %w", err)
	}

	return receipt, nil
}
