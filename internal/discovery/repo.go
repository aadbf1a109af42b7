// Package discovery serves the read-only browse feeds: best rated dishes,
// latest reviews and latest photos.
package discovery

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bitelogs/pkg/models"
)

const (
	DefaultTopRated = 10
	DefaultRecent   = 10
	DefaultPhotos   = 12
	MaxLimit        = 50
)

// clampLimit maps non-positive values to def and caps at MaxLimit.
func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

type Repo struct {
	DB *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{DB: db}
}

// TopRated lists reviewed items by average, then by review count.
func (r *Repo) TopRated(ctx context.Context, limit int) ([]models.TopRatedItem, error) {
	rows, err := r.DB.QueryxContext(ctx, r.DB.Rebind(`
		SELECT mi.id, mi.name, mi.avg_rating, mi.review_count, mi.image_url,
		       r.id, r.name, r.cuisine
		FROM menu_items mi
		JOIN restaurants r ON r.id = mi.restaurant_id
		WHERE mi.review_count >= 1
		ORDER BY mi.avg_rating DESC, mi.review_count DESC, mi.id ASC
		LIMIT ?
	`), clampLimit(limit, DefaultTopRated))
	if err != nil {
		return nil, fmt.Errorf("top rated query: %w", err)
	}
	defer rows.Close()

	out := []models.TopRatedItem{}
	for rows.Next() {
		var (
			it       models.TopRatedItem
			imageURL sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.Name, &it.AvgRating, &it.ReviewCount, &imageURL,
			&it.Restaurant.ID, &it.Restaurant.Name, &it.Restaurant.Cuisine); err != nil {
			return nil, fmt.Errorf("top rated scan: %w", err)
		}
		it.ImageURL = imageURL.String
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Recent(ctx context.Context, limit int) ([]models.RecentReview, error) {
	rows, err := r.DB.QueryxContext(ctx, r.DB.Rebind(`
		SELECT rev.id, rev.rating, rev.comment, rev.created_at,
		       u.id, u.display_name, u.avatar_url,
		       mi.id, mi.name,
		       r.id, r.name
		FROM reviews rev
		JOIN users u ON u.id = rev.user_id
		JOIN menu_items mi ON mi.id = rev.menu_item_id
		JOIN restaurants r ON r.id = mi.restaurant_id
		ORDER BY rev.created_at DESC, rev.id DESC
		LIMIT ?
	`), clampLimit(limit, DefaultRecent))
	if err != nil {
		return nil, fmt.Errorf("recent reviews query: %w", err)
	}
	defer rows.Close()

	out := []models.RecentReview{}
	for rows.Next() {
		var (
			rv      models.RecentReview
			comment sql.NullString
			avatar  sql.NullString
			rest    models.RestaurantSummary
		)
		if err := rows.Scan(&rv.ID, &rv.Rating, &comment, &rv.CreatedAt,
			&rv.User.ID, &rv.User.DisplayName, &avatar,
			&rv.MenuItem.ID, &rv.MenuItem.Name,
			&rest.ID, &rest.Name); err != nil {
			return nil, fmt.Errorf("recent reviews scan: %w", err)
		}
		rv.Comment = comment.String
		rv.User.AvatarURL = avatar.String
		rv.MenuItem.Restaurant = &rest
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Photos(ctx context.Context, limit int) ([]models.PhotoItem, error) {
	rows, err := r.DB.QueryxContext(ctx, r.DB.Rebind(`
		SELECT rev.id, rev.image_url,
		       mi.id, mi.name,
		       r.id, r.name
		FROM reviews rev
		JOIN menu_items mi ON mi.id = rev.menu_item_id
		JOIN restaurants r ON r.id = mi.restaurant_id
		WHERE rev.image_url IS NOT NULL AND rev.image_url <> ''
		ORDER BY rev.created_at DESC, rev.id DESC
		LIMIT ?
	`), clampLimit(limit, DefaultPhotos))
	if err != nil {
		return nil, fmt.Errorf("photos query: %w", err)
	}
	defer rows.Close()

	out := []models.PhotoItem{}
	for rows.Next() {
		var (
			p    models.PhotoItem
			rest models.RestaurantSummary
		)
		if err := rows.Scan(&p.ID, &p.ImageURL, &p.MenuItem.ID, &p.MenuItem.Name, &rest.ID, &rest.Name); err != nil {
			return nil, fmt.Errorf("photos scan: %w", err)
		}
		p.MenuItem.Restaurant = &rest
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
