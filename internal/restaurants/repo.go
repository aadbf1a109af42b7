package restaurants

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

type ListQuery struct {
	City    string // substring, case-insensitive
	Cuisine string // substring, case-insensitive
	Search  string // substring of name
	Page    int
	Limit   int
}

func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{DB: db}
}

const columns = `id, name, address, city, state, zip_code, phone, website, cuisine, price_range, image_url, created_by_id, created_at, updated_at`

func scanRestaurant(row interface{ Scan(...any) error }) (*models.Restaurant, error) {
	var (
		m         models.Restaurant
		phone     sql.NullString
		website   sql.NullString
		imageURL  sql.NullString
		createdBy sql.NullInt64
	)
	if err := row.Scan(
		&m.ID, &m.Name, &m.Address, &m.City, &m.State, &m.ZipCode, &phone, &website,
		&m.Cuisine, &m.PriceRange, &imageURL, &createdBy, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.Phone = phone.String
	m.Website = website.String
	m.ImageURL = imageURL.String
	m.CreatedByID = createdBy.Int64
	return &m, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *Repo) Create(ctx context.Context, m *models.Restaurant) error {
	row := r.DB.QueryRowxContext(ctx, r.DB.Rebind(`
		INSERT INTO restaurants (name, address, city, state, zip_code, phone, website, cuisine, price_range, created_by_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at, updated_at
	`), m.Name, m.Address, m.City, m.State, m.ZipCode, nullString(m.Phone), nullString(m.Website),
		m.Cuisine, m.PriceRange, sql.NullInt64{Int64: m.CreatedByID, Valid: m.CreatedByID > 0})

	if err := row.Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperr.NotFound("User")
		}
		return fmt.Errorf("insert restaurant: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Restaurant, error) {
	row := r.DB.QueryRowxContext(ctx, r.DB.Rebind(`
		SELECT `+columns+`
		FROM restaurants
		WHERE id = ?
	`), id)

	m, err := scanRestaurant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return m, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowxContext(ctx, r.DB.Rebind(sqlStr), args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Restaurant, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryxContext(ctx, r.DB.Rebind(sqlStr), args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	var out []models.Restaurant
	for rows.Next() {
		m, err := scanRestaurant(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Page returns one normalised page of restaurants matching q.
func (r *Repo) Page(ctx context.Context, q ListQuery) (models.Page[models.Restaurant], error) {
	q.Page, q.Limit = models.NormalizePage(q.Page, q.Limit)

	total, err := r.Count(ctx, q)
	if err != nil {
		return models.Page[models.Restaurant]{}, err
	}
	items, err := r.List(ctx, q)
	if err != nil {
		return models.Page[models.Restaurant]{}, err
	}
	return models.NewPage(items, q.Page, q.Limit, total), nil
}

// UpdateImage sets image_url and returns the previous value. A missing
// restaurant is reported as NotFound.
func (r *Repo) UpdateImage(ctx context.Context, id int64, imageURL string) (string, error) {
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if cur == nil {
		return "", apperr.NotFound("Restaurant")
	}

	_, err = r.DB.ExecContext(ctx, r.DB.Rebind(`
		UPDATE restaurants
		SET image_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`), imageURL, id)
	if err != nil {
		return "", fmt.Errorf("update restaurant image: %w", err)
	}
	return cur.ImageURL, nil
}

// buildListSQL builds either COUNT(*) or the paged SELECT. Placeholders are
// written as ? and rebound by the caller.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `SELECT ` + columns + ` FROM restaurants`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM restaurants`
	}

	var where []string
	var args []any

	like := func(col, v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		where = append(where, "LOWER("+col+") LIKE ?")
		args = append(args, "%"+strings.ToLower(v)+"%")
	}
	like("city", q.City)
	like("cuisine", q.Cuisine)
	like("name", q.Search)

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		page, limit := models.NormalizePage(q.Page, q.Limit)
		sqlStr += " ORDER BY created_at DESC, id DESC"
		sqlStr += " LIMIT ? OFFSET ?"
		args = append(args, limit, models.Offset(page, limit))
	}

	return sqlStr, args
}
