package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bitelogs/internal/apperr"
	"bitelogs/pkg/database"
	"bitelogs/pkg/models"
)

type Repo struct {
	DB *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{DB: db}
}

const selectReview = `
	SELECT r.id, r.menu_item_id, r.user_id, r.rating, r.comment, r.image_url, r.created_at, r.updated_at,
	       u.display_name, u.avatar_url
	FROM reviews r
	JOIN users u ON u.id = r.user_id
`

func scanReview(row interface{ Scan(...any) error }) (*models.Review, error) {
	var (
		review   models.Review
		comment  sql.NullString
		imageURL sql.NullString
		author   models.UserSummary
		avatar   sql.NullString
	)
	if err := row.Scan(
		&review.ID, &review.MenuItemID, &review.UserID, &review.Rating, &comment, &imageURL,
		&review.CreatedAt, &review.UpdatedAt, &author.DisplayName, &avatar,
	); err != nil {
		return nil, err
	}
	review.Comment = comment.String
	review.ImageURL = imageURL.String
	author.ID = review.UserID
	author.AvatarURL = avatar.String
	review.Author = &author
	return &review, nil
}

// Create stores a new review. A second review by the same author for the
// same item is a conflict; the existing row is left untouched.
func (r *Repo) Create(ctx context.Context, menuItemID, authorID int64, rating int, comment string) (_ *models.Review, err error) {
	if !models.ValidRating(rating) {
		return nil, apperr.Validation("Validation failed",
			apperr.FieldError{Field: "rating", Message: "Rating must be between 1 and 5"})
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create review: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing int
	err = tx.QueryRowxContext(ctx, tx.Rebind(`
		SELECT COUNT(*) FROM reviews WHERE menu_item_id = ? AND user_id = ?
	`), menuItemID, authorID).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("check existing review: %w", err)
	}
	if existing > 0 {
		return nil, errDuplicate()
	}

	var id int64
	err = tx.QueryRowxContext(ctx, tx.Rebind(`
		INSERT INTO reviews (menu_item_id, user_id, rating, comment)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`), menuItemID, authorID, rating, sql.NullString{String: comment, Valid: comment != ""}).Scan(&id)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			// lost a race with a concurrent submission
			return nil, errDuplicate()
		case database.IsForeignKeyViolation(err):
			return nil, apperr.NotFound("Menu item")
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}

	if err = tx.Commit(); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errDuplicate()
		}
		return nil, fmt.Errorf("commit review: %w", err)
	}

	return r.FindByID(ctx, id)
}

func errDuplicate() error {
	return apperr.Conflict("You have already reviewed this menu item")
}

func (r *Repo) FindByID(ctx context.Context, id int64) (*models.Review, error) {
	row := r.DB.QueryRowxContext(ctx, r.DB.Rebind(selectReview+` WHERE r.id = ?`), id)

	review, err := scanReview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	return review, nil
}

func (r *Repo) page(ctx context.Context, column string, id int64, page, limit int) (models.Page[models.Review], error) {
	page, limit = models.NormalizePage(page, limit)

	var total int
	err := r.DB.QueryRowxContext(ctx, r.DB.Rebind(`SELECT COUNT(*) FROM reviews r WHERE r.`+column+` = ?`), id).Scan(&total)
	if err != nil {
		return models.Page[models.Review]{}, fmt.Errorf("count reviews: %w", err)
	}

	rows, err := r.DB.QueryxContext(ctx, r.DB.Rebind(selectReview+`
		WHERE r.`+column+` = ?
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT ? OFFSET ?
	`), id, limit, models.Offset(page, limit))
	if err != nil {
		return models.Page[models.Review]{}, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := make([]models.Review, 0, limit)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return models.Page[models.Review]{}, fmt.Errorf("scan review row: %w", err)
		}
		out = append(out, *review)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.Review]{}, fmt.Errorf("rows err: %w", err)
	}
	return models.NewPage(out, page, limit, total), nil
}

// FindByMenuItem lists an item's reviews, most recent first.
func (r *Repo) FindByMenuItem(ctx context.Context, menuItemID int64, page, limit int) (models.Page[models.Review], error) {
	return r.page(ctx, "menu_item_id", menuItemID, page, limit)
}

// FindByUser lists an author's reviews, most recent first.
func (r *Repo) FindByUser(ctx context.Context, userID int64, page, limit int) (models.Page[models.Review], error) {
	return r.page(ctx, "user_id", userID, page, limit)
}

// Delete removes the review only when userID is its author. Callers that
// let administrators delete pass the author's id after their own check.
func (r *Repo) Delete(ctx context.Context, id, userID int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
		DELETE FROM reviews
		WHERE id = ? AND user_id = ?
	`), id, userID)
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete review rows: %w", err)
	}
	return rows > 0, nil
}

// AttachImage returns nil when the review does not exist.
func (r *Repo) AttachImage(ctx context.Context, id int64, imageURL string) (*models.Review, error) {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
		UPDATE reviews
		SET image_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`), imageURL, id)
	if err != nil {
		return nil, fmt.Errorf("attach review image: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("attach review image rows: %w", err)
	} else if n == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}
