package menuitems

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

const selectItem = `
	SELECT m.id, m.restaurant_id, m.name, m.description, m.price, m.category, m.image_url,
	       m.avg_rating, m.review_count, m.created_by_id, m.created_at, m.updated_at,
	       r.name, r.cuisine
	FROM menu_items m
	JOIN restaurants r ON r.id = m.restaurant_id
`

func scanItem(row interface{ Scan(...any) error }) (*models.MenuItem, error) {
	var (
		m           models.MenuItem
		description sql.NullString
		imageURL    sql.NullString
		createdBy   sql.NullInt64
		rest        models.RestaurantSummary
	)
	if err := row.Scan(
		&m.ID, &m.RestaurantID, &m.Name, &description, &m.Price, &m.Category, &imageURL,
		&m.AvgRating, &m.ReviewCount, &createdBy, &m.CreatedAt, &m.UpdatedAt,
		&rest.Name, &rest.Cuisine,
	); err != nil {
		return nil, err
	}
	m.Description = description.String
	m.ImageURL = imageURL.String
	m.CreatedByID = createdBy.Int64
	rest.ID = m.RestaurantID
	m.Restaurant = &rest
	return &m, nil
}

// Create inserts m with a zero aggregate; AvgRating and ReviewCount on m are
// ignored. A missing restaurant is reported as NotFound.
func (r *Repo) Create(ctx context.Context, m *models.MenuItem) error {
	row := r.DB.QueryRowxContext(ctx, r.DB.Rebind(`
		INSERT INTO menu_items (restaurant_id, name, description, price, category, created_by_id)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, avg_rating, review_count, created_at, updated_at
	`), m.RestaurantID, m.Name, sql.NullString{String: m.Description, Valid: m.Description != ""},
		m.Price, m.Category, nullID(m.CreatedByID))

	if err := row.Scan(&m.ID, &m.AvgRating, &m.ReviewCount, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if database.IsForeignKeyViolation(err) {
			return r.missingParent(ctx, m.RestaurantID)
		}
		return fmt.Errorf("insert menu item: %w", err)
	}
	return nil
}

// missingParent names the reference that broke an insert: the restaurant
// when it is gone, otherwise the creating user.
func (r *Repo) missingParent(ctx context.Context, restaurantID int64) error {
	var n int
	err := r.DB.QueryRowxContext(ctx, r.DB.Rebind(`SELECT COUNT(*) FROM restaurants WHERE id = ?`), restaurantID).Scan(&n)
	if err != nil {
		return fmt.Errorf("restaurant exists: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("Restaurant")
	}
	return apperr.NotFound("User")
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.MenuItem, error) {
	row := r.DB.QueryRowxContext(ctx, r.DB.Rebind(selectItem+` WHERE m.id = ?`), id)

	m, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	return m, nil
}

func (r *Repo) Exists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := r.DB.QueryRowxContext(ctx, r.DB.Rebind(`SELECT COUNT(*) FROM menu_items WHERE id = ?`), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("menu item exists: %w", err)
	}
	return n > 0, nil
}

func (r *Repo) query(ctx context.Context, sqlStr string, args ...any) ([]models.MenuItem, error) {
	rows, err := r.DB.QueryxContext(ctx, r.DB.Rebind(sqlStr), args...)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	var out []models.MenuItem
	for rows.Next() {
		m, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item row: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// ListByRestaurant returns a page of a restaurant's menu ordered by
// category, then name. An empty category matches all.
func (r *Repo) ListByRestaurant(ctx context.Context, restaurantID int64, category string, page, limit int) (models.Page[models.MenuItem], error) {
	page, limit = models.NormalizePage(page, limit)

	where := ` WHERE m.restaurant_id = ?`
	args := []any{restaurantID}
	if c := strings.TrimSpace(category); c != "" {
		where += ` AND LOWER(m.category) = ?`
		args = append(args, strings.ToLower(c))
	}

	var total int
	if err := r.DB.QueryRowxContext(ctx, r.DB.Rebind(`SELECT COUNT(*) FROM menu_items m`+where), args...).Scan(&total); err != nil {
		return models.Page[models.MenuItem]{}, fmt.Errorf("count menu items: %w", err)
	}

	items, err := r.query(ctx, selectItem+where+` ORDER BY m.category ASC, m.name ASC, m.id ASC LIMIT ? OFFSET ?`,
		append(args, limit, models.Offset(page, limit))...)
	if err != nil {
		return models.Page[models.MenuItem]{}, err
	}
	return models.NewPage(items, page, limit, total), nil
}

// All returns every menu item with its restaurant, by id.
func (r *Repo) All(ctx context.Context) ([]models.MenuItem, error) {
	return r.query(ctx, selectItem+` ORDER BY m.id ASC`)
}

// IDs lists every menu item id.
func (r *Repo) IDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.DB.SelectContext(ctx, &ids, `SELECT id FROM menu_items ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list menu item ids: %w", err)
	}
	return ids, nil
}

// UpdateImage sets image_url and returns the previous value.
func (r *Repo) UpdateImage(ctx context.Context, id int64, imageURL string) (string, error) {
	var old sql.NullString
	err := r.DB.QueryRowxContext(ctx, r.DB.Rebind(`SELECT image_url FROM menu_items WHERE id = ?`), id).Scan(&old)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.NotFound("Menu item")
		}
		return "", fmt.Errorf("get menu item image: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, r.DB.Rebind(`
		UPDATE menu_items
		SET image_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`), imageURL, id)
	if err != nil {
		return "", fmt.Errorf("update menu item image: %w", err)
	}
	return old.String, nil
}

const recomputeSQL = `
	UPDATE menu_items
	SET avg_rating = COALESCE((SELECT ROUND(AVG(rating), 2) FROM reviews WHERE menu_item_id = ?), 0),
	    review_count = (SELECT COUNT(*) FROM reviews WHERE menu_item_id = ?),
	    updated_at = CURRENT_TIMESTAMP
	WHERE id = ?
	RETURNING avg_rating, review_count
`

// RecomputeRating rederives the cached average and count from the item's
// review rows and returns the stored values. On postgres the item row is
// locked first so the aggregate subqueries run on a snapshot taken after any
// concurrent recompute for the same item has committed; sqlite transactions
// already begin with the write lock held.
func (r *Repo) RecomputeRating(ctx context.Context, menuItemID int64) (agg models.Aggregate, err error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return models.Aggregate{}, fmt.Errorf("begin recompute rating: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if r.DB.DriverName() == "postgres" {
		var locked int64
		err = tx.QueryRowxContext(ctx, tx.Rebind(`SELECT id FROM menu_items WHERE id = ? FOR UPDATE`), menuItemID).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return models.Aggregate{}, apperr.NotFound("Menu item")
		}
		if err != nil {
			return models.Aggregate{}, fmt.Errorf("lock menu item: %w", err)
		}
	}

	agg = models.Aggregate{MenuItemID: menuItemID}
	err = tx.QueryRowxContext(ctx, tx.Rebind(recomputeSQL), menuItemID, menuItemID, menuItemID).
		Scan(&agg.AvgRating, &agg.ReviewCount)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Aggregate{}, apperr.NotFound("Menu item")
	}
	if err != nil {
		return models.Aggregate{}, fmt.Errorf("recompute rating: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return models.Aggregate{}, fmt.Errorf("commit recompute rating: %w", err)
	}
	return agg, nil
}
