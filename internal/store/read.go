package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ankiplace/ankiplace/internal/canvas"
)

// Read methods run on the read-only pool and may be called concurrently
// from any goroutine. Under WAL they observe the last committed
// snapshot: an in-progress write is invisible until its commit.

// CanvasGrid returns the full canvas as a flat row-major color array
// (index = y*Width + x, 1024 ints). This is the bandwidth-efficient
// shape clients reconstruct the grid from.
func (s *Store) CanvasGrid(ctx context.Context) ([]int, error) {
	rows, err := s.reader.QueryContext(ctx, `SELECT x, y, color FROM canvas`)
	if err != nil {
		return nil, fmt.Errorf("canvas grid: %w", err)
	}
	defer rows.Close()

	grid := make([]int, canvas.Cells)
	for rows.Next() {
		var x, y, color int
		if err := rows.Scan(&x, &y, &color); err != nil {
			return nil, fmt.Errorf("canvas grid: scan: %w", err)
		}
		idx := y*canvas.Width + x
		if idx >= 0 && idx < canvas.Cells {
			grid[idx] = color
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("canvas grid: %w", err)
	}

	return grid, nil
}

// PixelDetail returns one cell with the painter's username joined in.
// The caller validates coordinates; a seeded canvas has every in-bounds
// cell, so a missing row means the store predates seeding.
func (s *Store) PixelDetail(ctx context.Context, x, y int) (canvas.PixelDetail, error) {
	var (
		d        canvas.PixelDetail
		userID   sql.NullString
		username sql.NullString
		modified sql.NullFloat64
	)
	err := s.reader.QueryRowContext(ctx, `
		SELECT canvas.x, canvas.y, canvas.color,
		       canvas.last_user_id, users.username, canvas.last_modified
		FROM canvas
		LEFT JOIN users ON canvas.last_user_id = users.user_id
		WHERE canvas.x = ? AND canvas.y = ?
	`, x, y).Scan(&d.X, &d.Y, &d.Color, &userID, &username, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return canvas.PixelDetail{}, canvas.NewNotFound("pixel not found")
	}
	if err != nil {
		return canvas.PixelDetail{}, fmt.Errorf("pixel detail: %w", err)
	}

	d.LastUserID = userID.String
	d.Username = username.String
	d.LastModified = modified.Float64
	return d, nil
}

// UserByID returns a user's full record.
func (s *Store) UserByID(ctx context.Context, userID string) (canvas.User, error) {
	u := canvas.User{ID: userID}
	err := s.reader.QueryRowContext(ctx, `
		SELECT username, paint_balance, created_at FROM users WHERE user_id = ?
	`, userID).Scan(&u.Username, &u.PaintBalance, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return canvas.User{}, canvas.NewNotFound("user not found")
	}
	if err != nil {
		return canvas.User{}, fmt.Errorf("user by id: %w", err)
	}
	return u, nil
}

// PaintBalance returns just the user's paint balance.
func (s *Store) PaintBalance(ctx context.Context, userID string) (int, error) {
	var balance int
	err := s.reader.QueryRowContext(ctx,
		`SELECT paint_balance FROM users WHERE user_id = ?`, userID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, canvas.NewNotFound("user not found")
	}
	if err != nil {
		return 0, fmt.Errorf("paint balance: %w", err)
	}
	return balance, nil
}
