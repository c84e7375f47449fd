package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"food-delivery/internal/models"
	"food-delivery/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ReviewService handles item reviews and order feedback
type ReviewService struct {
	store  ReviewStore
	logger *zap.Logger
}

// NewReviewService creates a new review service
func NewReviewService(store ReviewStore) *ReviewService {
	return &ReviewService{store: store, logger: util.GetLogger()}
}

// ReviewRequest rates a food item
type ReviewRequest struct {
	FoodItemID int64  `json:"food_item" binding:"required"`
	Rating     int    `json:"rating" binding:"required,min=1,max=5"`
	Comment    string `json:"comment"`
}

// FeedbackRequest is free-text feedback, optionally about an order
type FeedbackRequest struct {
	OrderID      *int64 `json:"order"`
	Name         string `json:"name" binding:"required,max=100"`
	Rating       int    `json:"rating" binding:"required,min=1,max=5"`
	FeedbackText string `json:"feedback_text" binding:"required"`
}

// CreateReview stores a review awaiting approval
func (s *ReviewService) CreateReview(ctx context.Context, caller models.Identity, req *ReviewRequest) (*models.Review, error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.CreateReview", attribute.Int64("food_item_id", req.FoodItemID))
	defer span.End()

	if _, err := s.store.GetFoodItem(ctx, req.FoodItemID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewValidationError("food_item", "unknown food item")
		}
		return nil, err
	}

	review := &models.Review{
		UserID:     caller.UserID,
		FoodItemID: req.FoodItemID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}
	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, err
	}
	s.logger.Info("Review created", zap.Int64("review_id", review.ID), zap.Int64("food_item_id", review.FoodItemID))
	return review, nil
}

// ListReviews lists approved reviews of an item. Admins also see pending ones.
func (s *ReviewService) ListReviews(ctx context.Context, caller models.Identity, itemID int64) ([]models.Review, error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.ListReviews", attribute.Int64("food_item_id", itemID))
	defer span.End()

	return s.store.ListReviews(ctx, itemID, caller.IsAdmin())
}

// ApproveReview makes a review public
func (s *ReviewService) ApproveReview(ctx context.Context, caller models.Identity, reviewID int64) error {
	ctx, span := util.StartSpan(ctx, "ReviewService.ApproveReview", attribute.Int64("review_id", reviewID))
	defer span.End()

	if err := requireAdmin(caller, "approve review"); err != nil {
		return err
	}
	return s.store.ApproveReview(ctx, reviewID)
}

// SubmitFeedback stores feedback with its sentiment classified at write time
func (s *ReviewService) SubmitFeedback(ctx context.Context, caller models.Identity, req *FeedbackRequest) (*models.Feedback, error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.SubmitFeedback")
	defer span.End()

	if strings.TrimSpace(req.FeedbackText) == "" {
		return nil, models.NewValidationError("feedback_text", "must not be blank")
	}

	if req.OrderID != nil {
		order, err := s.store.GetOrder(ctx, *req.OrderID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		if err != nil || !order.OwnedBy(caller.UserID) {
			return nil, models.NewValidationError("order", fmt.Sprintf("order %d not found", *req.OrderID))
		}
	}

	fb := &models.Feedback{
		UserID:       caller.UserID,
		OrderID:      req.OrderID,
		Name:         req.Name,
		Rating:       req.Rating,
		FeedbackText: req.FeedbackText,
		Sentiment:    models.ClassifySentiment(req.FeedbackText),
	}
	if err := s.store.CreateFeedback(ctx, fb); err != nil {
		return nil, err
	}

	s.logger.Info("Feedback received", zap.Int64("feedback_id", fb.ID), zap.String("sentiment", string(fb.Sentiment)))
	return fb, nil
}

// ListFeedback lists the caller's feedback, or all of it for admins
func (s *ReviewService) ListFeedback(ctx context.Context, caller models.Identity) ([]models.Feedback, error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.ListFeedback")
	defer span.End()

	if caller.IsAdmin() {
		return s.store.ListFeedback(ctx, nil)
	}
	return s.store.ListFeedback(ctx, &caller.UserID)
}
