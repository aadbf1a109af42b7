package reviews

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"bitelogs/internal/access"
	"bitelogs/internal/apperr"
	"bitelogs/internal/feed"
	"bitelogs/internal/media"
	"bitelogs/internal/metrics"
	"bitelogs/pkg/models"
	"bitelogs/pkg/utils"
)

const MaxCommentLen = 2000

// MenuItems is the slice of the menu item store the service needs.
type MenuItems interface {
	Exists(ctx context.Context, id int64) (bool, error)
	RecomputeRating(ctx context.Context, menuItemID int64) (models.Aggregate, error)
}

type Publisher interface {
	Publish(ev feed.ReviewEvent)
}

// Recorder receives review outcome counts.
type Recorder interface {
	ReviewSubmitted(result string)
	ReviewDeleted()
	RatingRecomputed(result string)
}

type nopRecorder struct{}

func (nopRecorder) ReviewSubmitted(string)  {}
func (nopRecorder) ReviewDeleted()          {}
func (nopRecorder) RatingRecomputed(string) {}

type nopPublisher struct{}

func (nopPublisher) Publish(feed.ReviewEvent) {}

type Service struct {
	Reviews   *Repo
	MenuItems MenuItems
	Media     media.Store
	Policy    access.Policy
	Feed      Publisher
	Metrics   Recorder
	Log       logrus.FieldLogger
}

type ServiceOption func(*Service)

func WithPolicy(p access.Policy) ServiceOption { return func(s *Service) { s.Policy = p } }
func WithFeed(p Publisher) ServiceOption       { return func(s *Service) { s.Feed = p } }
func WithMetrics(r Recorder) ServiceOption     { return func(s *Service) { s.Metrics = r } }

func NewService(reviews *Repo, items MenuItems, store media.Store, log logrus.FieldLogger, opts ...ServiceOption) *Service {
	s := &Service{
		Reviews:   reviews,
		MenuItems: items,
		Media:     store,
		Feed:      nopPublisher{},
		Metrics:   nopRecorder{},
		Log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SubmitInput struct {
	MenuItemID int64
	Rating     int
	Comment    string
}

// Validate normalises the comment and checks every field.
func (in *SubmitInput) Validate() error {
	in.Comment = utils.Sanitize(in.Comment)

	var fe apperr.FieldErrors
	fe.Check(in.MenuItemID > 0, "menuItemId", "Valid menu item ID is required")
	fe.Check(models.ValidRating(in.Rating), "rating", "Rating must be between 1 and 5")
	fe.Check(utf8.RuneCountInString(in.Comment) <= MaxCommentLen, "comment", "Comment must be at most 2000 characters")
	return fe.Err()
}

// Submit creates a review for actor and refreshes the item's aggregate.
func (s *Service) Submit(ctx context.Context, actor *access.Actor, in SubmitInput) (*models.Review, error) {
	if err := s.Policy.Authorize(actor, access.CreateReview, access.Resource{}); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		s.Metrics.ReviewSubmitted(metrics.ResultInvalid)
		return nil, err
	}

	ok, err := s.MenuItems.Exists(ctx, in.MenuItemID)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.Metrics.ReviewSubmitted(metrics.ResultInvalid)
		return nil, apperr.NotFound("Menu item")
	}

	review, err := s.Reviews.Create(ctx, in.MenuItemID, actor.UserID, in.Rating, in.Comment)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindConflict:
			s.Metrics.ReviewSubmitted(metrics.ResultConflict)
		case apperr.KindInternal:
			s.Metrics.ReviewSubmitted(metrics.ResultError)
		default:
			s.Metrics.ReviewSubmitted(metrics.ResultInvalid)
		}
		return nil, err
	}
	s.Metrics.ReviewSubmitted(metrics.ResultOK)

	agg, err := s.recompute(ctx, review)
	if err != nil {
		return nil, err
	}

	s.Feed.Publish(event(feed.ReviewCreated, review, agg))
	return review, nil
}

// Delete removes a review when actor is its author or an administrator.
func (s *Service) Delete(ctx context.Context, actor *access.Actor, reviewID int64) error {
	if actor == nil {
		return s.Policy.Authorize(nil, access.DeleteReview, access.Resource{})
	}

	review, err := s.Reviews.FindByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if review == nil {
		return apperr.NotFound("Review")
	}

	if err := s.Policy.Authorize(actor, access.DeleteReview, access.Owned(review.UserID)); err != nil {
		return err
	}

	// admins delete on the author's behalf
	deleted, err := s.Reviews.Delete(ctx, review.ID, review.UserID)
	if err != nil {
		return err
	}
	if !deleted {
		// removed concurrently
		return apperr.NotFound("Review")
	}
	s.Metrics.ReviewDeleted()

	if review.ImageURL != "" && s.Media != nil {
		if err := s.Media.Remove(ctx, review.ImageURL); err != nil && s.Log != nil {
			s.Log.WithError(err).WithField("review_id", review.ID).Warn("remove review image")
		}
	}

	if s.Log != nil && actor.UserID != review.UserID {
		s.Log.WithFields(logrus.Fields{
			"review_id": review.ID,
			"author_id": review.UserID,
			"admin_id":  actor.UserID,
		}).Info("review deleted by administrator")
	}

	agg, err := s.recompute(ctx, review)
	if err != nil {
		return err
	}

	s.Feed.Publish(event(feed.ReviewDeleted, review, agg))
	return nil
}

// AttachImage stores data and links it to the review. Aggregates are not
// touched.
func (s *Service) AttachImage(ctx context.Context, actor *access.Actor, reviewID int64, data []byte) (*models.Review, error) {
	if actor == nil {
		return nil, s.Policy.Authorize(nil, access.AttachReviewImage, access.Resource{})
	}

	review, err := s.Reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, apperr.NotFound("Review")
	}

	if err := s.Policy.Authorize(actor, access.AttachReviewImage, access.Owned(review.UserID)); err != nil {
		return nil, err
	}

	ref, err := s.Media.Save(ctx, media.KindReview, data)
	if err != nil {
		return nil, err
	}

	updated, err := s.Reviews.AttachImage(ctx, review.ID, ref)
	if err == nil && updated == nil {
		err = apperr.NotFound("Review")
	}
	if err != nil {
		_ = s.Media.Remove(ctx, ref)
		return nil, err
	}

	if err := s.Media.Remove(ctx, review.ImageURL); err != nil && s.Log != nil {
		s.Log.WithError(err).WithField("review_id", review.ID).Warn("remove replaced review image")
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, reviewID int64) (*models.Review, error) {
	review, err := s.Reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, apperr.NotFound("Review")
	}
	return review, nil
}

func (s *Service) ListForItem(ctx context.Context, menuItemID int64, page, limit int) (models.Page[models.Review], error) {
	ok, err := s.MenuItems.Exists(ctx, menuItemID)
	if err != nil {
		return models.Page[models.Review]{}, err
	}
	if !ok {
		return models.Page[models.Review]{}, apperr.NotFound("Menu item")
	}
	return s.Reviews.FindByMenuItem(ctx, menuItemID, page, limit)
}

func (s *Service) ListForUser(ctx context.Context, userID int64, page, limit int) (models.Page[models.Review], error) {
	return s.Reviews.FindByUser(ctx, userID, page, limit)
}

// recompute runs after the triggering write has committed. A failure here
// leaves the cached aggregate stale, so it is logged and surfaced.
func (s *Service) recompute(ctx context.Context, review *models.Review) (models.Aggregate, error) {
	agg, err := s.MenuItems.RecomputeRating(ctx, review.MenuItemID)
	if err != nil {
		s.Metrics.RatingRecomputed(metrics.ResultError)
		if s.Log != nil {
			s.Log.WithError(err).WithFields(logrus.Fields{
				"review_id":    review.ID,
				"menu_item_id": review.MenuItemID,
			}).Error("rating recomputation failed")
		}
		return models.Aggregate{}, apperr.Internal("Failed to update rating", fmt.Errorf("recompute menu item %d: %w", review.MenuItemID, err))
	}
	s.Metrics.RatingRecomputed(metrics.ResultOK)
	return agg, nil
}

func event(typ string, review *models.Review, agg models.Aggregate) feed.ReviewEvent {
	return feed.ReviewEvent{
		Type:        typ,
		ReviewID:    review.ID,
		MenuItemID:  review.MenuItemID,
		UserID:      review.UserID,
		Rating:      review.Rating,
		AvgRating:   agg.AvgRating,
		ReviewCount: agg.ReviewCount,
	}
}
