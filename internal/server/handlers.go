package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ankiplace/ankiplace/internal/canvas"
	"github.com/ankiplace/ankiplace/internal/engine"
)

// handleCanvas returns the entire canvas as a flat 1024-int color array.
func (s *Server) handleCanvas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var grid []int
	err := s.exec.Query(ctx, engine.Op{
		ID:    RequestID(ctx),
		Label: "canvas",
		Apply: func(ctx context.Context) error {
			var err error
			grid, err = s.backend.CanvasGrid(ctx)
			return err
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"canvas": grid})
}

// handlePixelDetail returns one cell with painter provenance.
func (s *Server) handlePixelDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	x, errX := strconv.Atoi(r.PathValue("x"))
	y, errY := strconv.Atoi(r.PathValue("y"))
	if errX != nil || errY != nil {
		writeError(w, r, canvas.NewInvalidArgument("coordinates must be integers"))
		return
	}
	if err := canvas.ValidateCoords(x, y); err != nil {
		writeError(w, r, err)
		return
	}

	var detail canvas.PixelDetail
	err := s.exec.Query(ctx, engine.Op{
		ID:    RequestID(ctx),
		Label: "pixel_detail",
		Apply: func(ctx context.Context) error {
			var err error
			detail, err = s.backend.PixelDetail(ctx, x, y)
			return err
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// handleUser returns a user's profile.
func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("id")

	var user canvas.User
	err := s.exec.Query(ctx, engine.Op{
		ID:    RequestID(ctx),
		Label: "user",
		Apply: func(ctx context.Context) error {
			var err error
			user, err = s.backend.UserByID(ctx, userID)
			return err
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleBalance returns a user's paint balance.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("id")

	var balance int
	err := s.exec.Query(ctx, engine.Op{
		ID:    RequestID(ctx),
		Label: "balance",
		Apply: func(ctx context.Context) error {
			var err error
			balance, err = s.backend.PaintBalance(ctx, userID)
			return err
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":       userID,
		"paint_balance": balance,
	})
}

type registerRequest struct {
	Username string `json:"username"`
}

// handleRegister creates a new user and returns the generated ID.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, canvas.NewInvalidArgument("invalid JSON body"))
		return
	}
	if canvas.NormalizeUsername(req.Username) == "" {
		writeError(w, r, canvas.NewInvalidArgument("username must not be empty"))
		return
	}

	var user canvas.User
	err := s.exec.Submit(ctx, engine.Op{
		ID:    RequestID(ctx),
		Label: "register_user",
		Apply: func(ctx context.Context) error {
			var err error
			user, err = s.backend.RegisterUser(ctx, req.Username)
			return err
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":  user.ID,
		"username": user.Username,
	})
}

// handlePaint paints a single pixel, spending one paint drop.
func (s *Server) handlePaint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var upd canvas.PixelUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, r, canvas.NewInvalidArgument("invalid JSON body"))
		return
	}
	if err := canvas.ValidateCoords(upd.X, upd.Y); err != nil {
		writeError(w, r, err)
		return
	}
	if err := canvas.ValidateColor(upd.Color); err != nil {
		writeError(w, r, err)
		return
	}
	if upd.UserID == "" {
		writeError(w, r, canvas.NewInvalidArgument("user_id is required"))
		return
	}
	if !s.limiter.allow(upd.UserID) {
		writeError(w, r, canvas.NewRateLimited("too many paints, please wait"))
		return
	}

	var pixel canvas.Pixel
	err := s.exec.Submit(ctx, engine.Op{
		ID:    RequestID(ctx),
		Label: "paint",
		Apply: func(ctx context.Context) error {
			var err error
			pixel, err = s.backend.PaintPixel(ctx, upd)
			return err
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"x":      pixel.X,
		"y":      pixel.Y,
		"color":  pixel.Color,
	})
}

// handleSubmitReviews records review proofs and awards paint. This is
// the privileged route: the shared-secret check runs before the request
// body is even decoded, so a bad credential never touches the store.
func (s *Server) handleSubmitReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.authorize(r); err != nil {
		writeError(w, r, err)
		return
	}

	var sub canvas.ReviewSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, r, canvas.NewInvalidArgument("invalid JSON body"))
		return
	}
	if sub.UserID == "" {
		writeError(w, r, canvas.NewInvalidArgument("user_id is required"))
		return
	}

	var receipt canvas.ReviewReceipt
	err := s.exec.Submit(ctx, engine.Op{
		ID:    RequestID(ctx),
		Label: "submit_reviews",
		Apply: func(ctx context.Context) error {
			var err error
			receipt, err = s.backend.SubmitReviews(ctx, sub)
			return err
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"new_proofs":    receipt.NewProofs,
		"paint_awarded": receipt.PaintAwarded,
	})
}
