package canvas

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Canvas dimensions. The canvas is a fixed 32x32 grid; every cell exists
// from the moment the store is initialized.
const (
	Width  = 32
	Height = 32
	Cells  = Width * Height
)

// PaletteSize is the number of selectable colors. Colors are palette
// indices in [0, PaletteSize).
const PaletteSize = 16

// Pixel is one cell of the canvas with its paint provenance.
// LastUserID is empty for cells that have never been painted.
type Pixel struct {
	X            int     `json:"x"`
	Y            int     `json:"y"`
	Color        int     `json:"color"`
	LastUserID   string  `json:"last_user_id,omitempty"`
	LastModified float64 `json:"last_modified,omitempty"`
}

// PixelDetail is a Pixel joined with the painter's username for display.
type PixelDetail struct {
	Pixel
	Username string `json:"username,omitempty"`
}

// PixelUpdate is a request to paint one cell.
type PixelUpdate struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Color  int    `json:"color"`
	UserID string `json:"user_id"`
}

// User is a registered painter. PaintBalance is the number of pixels the
// user may still paint; it is earned by submitting review proofs.
type User struct {
	ID           string  `json:"user_id"`
	Username     string  `json:"username"`
	PaintBalance int     `json:"paint_balance"`
	CreatedAt    float64 `json:"created_at"`
}

// ReviewProof identifies a single completed flashcard review.
// The (card, timestamp) pair makes a proof unique per user.
type ReviewProof struct {
	CardID    int64   `json:"card_id"`
	Timestamp float64 `json:"timestamp"`
}

// ReviewSubmission is a batch of proofs submitted on behalf of one user.
type ReviewSubmission struct {
	UserID string        `json:"user_id"`
	Proofs []ReviewProof `json:"proofs"`
}

// ReviewsPerPaint is the exchange rate: this many previously unseen
// proofs earn one paint drop.
const ReviewsPerPaint = 10

// ReviewReceipt reports the outcome of a review submission.
type ReviewReceipt struct {
	NewProofs    int `json:"new_proofs"`
	PaintAwarded int `json:"paint_awarded"`
}

// ValidateCoords checks that (x, y) addresses a cell on the canvas.
func ValidateCoords(x, y int) error {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return NewInvalidArgument("coordinates out of bounds")
	}
	return nil
}

// ValidateColor checks that color is a valid palette index.
func ValidateColor(color int) error {
	if color < 0 || color >= PaletteSize {
		return NewInvalidArgument("invalid color index (0-15)")
	}
	return nil
}

// NormalizeUsername trims surrounding whitespace and applies Unicode NFC
// so that visually identical names compare equal regardless of the
// client's encoder.
func NormalizeUsername(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
