package store

import (
	"context"
	"fmt"

	"food-delivery/internal/models"
)

// CreateReview inserts a review; one per (user, item)
func (s *Store) CreateReview(ctx context.Context, review *models.Review) error {
	err := s.db.GetContext(ctx, review, `
		INSERT INTO reviews (user_id, food_item_id, rating, comment, approved)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		review.UserID, review.FoodItemID, review.Rating, review.Comment, review.Approved)
	if isUniqueViolation(err) {
		return fmt.Errorf("review of item %d: %w", review.FoodItemID, models.ErrConflict)
	}
	return err
}

// ListReviews retrieves reviews of an item, newest first
func (s *Store) ListReviews(ctx context.Context, itemID int64, includeUnapproved bool) ([]models.Review, error) {
	reviews := []models.Review{}
	query := "SELECT * FROM reviews WHERE food_item_id = $1"
	if !includeUnapproved {
		query += " AND approved = TRUE"
	}
	query += " ORDER BY created_at DESC, id DESC"

	err := s.db.SelectContext(ctx, &reviews, query, itemID)
	return reviews, err
}

// ApproveReview marks a review visible
func (s *Store) ApproveReview(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE reviews SET approved = TRUE WHERE id = $1", id)
	if err != nil {
		return err
	}
	return expectAffected(res, "review", id)
}

// CreateFeedback inserts a feedback entry
func (s *Store) CreateFeedback(ctx context.Context, fb *models.Feedback) error {
	return s.db.GetContext(ctx, fb, `
		INSERT INTO feedback (user_id, order_id, name, rating, feedback_text, sentiment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		fb.UserID, fb.OrderID, fb.Name, fb.Rating, fb.FeedbackText, fb.Sentiment)
}

// ListFeedback retrieves feedback newest first. A nil userID lists all.
func (s *Store) ListFeedback(ctx context.Context, userID *int64) ([]models.Feedback, error) {
	feedback := []models.Feedback{}
	var err error
	if userID == nil {
		err = s.db.SelectContext(ctx, &feedback, "SELECT * FROM feedback ORDER BY created_at DESC, id DESC")
	} else {
		err = s.db.SelectContext(ctx, &feedback,
			"SELECT * FROM feedback WHERE user_id = $1 ORDER BY created_at DESC, id DESC", *userID)
	}
	return feedback, err
}
