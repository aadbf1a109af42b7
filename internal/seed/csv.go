package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"bitelogs/internal/menuitems"
	"bitelogs/internal/restaurants"
	"bitelogs/pkg/models"
	"bitelogs/pkg/utils"
)

// ExportColumns is the header written by ExportMenuCSV.
var ExportColumns = []string{
	"id", "restaurant_id", "restaurant", "name", "category", "price", "avg_rating", "review_count",
}

// ExportMenuCSV writes every menu item with its current aggregate.
func ExportMenuCSV(ctx context.Context, items *menuitems.Repo, out io.Writer) (int, error) {
	all, err := items.All(ctx)
	if err != nil {
		return 0, err
	}

	w := csv.NewWriter(out)
	if err := w.Write(ExportColumns); err != nil {
		return 0, err
	}
	for _, m := range all {
		restaurant := ""
		if m.Restaurant != nil {
			restaurant = m.Restaurant.Name
		}
		rec := []string{
			strconv.FormatInt(m.ID, 10),
			strconv.FormatInt(m.RestaurantID, 10),
			restaurant,
			m.Name,
			m.Category,
			strconv.FormatFloat(m.Price, 'f', 2, 64),
			strconv.FormatFloat(m.AvgRating, 'f', 2, 64),
			strconv.Itoa(m.ReviewCount),
		}
		if err := w.Write(rec); err != nil {
			return 0, err
		}
	}
	w.Flush()
	return len(all), w.Error()
}

// ImportMenuCSV reads rows of restaurant,address,city,state,zip_code,
// cuisine,price_range,item,category,price,description (header required,
// any column order) and creates the restaurants and menu items, owned by
// ownerID. Rows naming the same restaurant and city share one restaurant.
func ImportMenuCSV(ctx context.Context, db *sqlx.DB, in io.Reader, ownerID int64) (Result, error) {
	var res Result

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return res, fmt.Errorf("read header: %w", err)
	}
	for _, col := range []string{"restaurant", "city", "item", "category"} {
		if _, ok := header[col]; !ok {
			return res, fmt.Errorf("missing column %q", col)
		}
	}

	restRepo := restaurants.NewRepo(db)
	items := menuitems.NewRepo(db)
	seen := map[string]int64{}

	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}

		name := utils.Sanitize(valueAt(header, row, "restaurant"))
		city := utils.Sanitize(valueAt(header, row, "city"))
		if name == "" || city == "" {
			return res, fmt.Errorf("line %d: restaurant and city are required", line)
		}

		key := strings.ToLower(name) + "\x00" + strings.ToLower(city)
		rid, ok := seen[key]
		if !ok {
			priceRange := utils.ParseInt(valueAt(header, row, "price_range"), 2)
			if priceRange < 1 || priceRange > 4 {
				return res, fmt.Errorf("line %d: price_range must be 1-4", line)
			}
			rest := &models.Restaurant{
				Name:        name,
				Address:     utils.Sanitize(valueAt(header, row, "address")),
				City:        city,
				State:       utils.Sanitize(valueAt(header, row, "state")),
				ZipCode:     utils.Sanitize(valueAt(header, row, "zip_code")),
				Cuisine:     utils.Sanitize(valueAt(header, row, "cuisine")),
				PriceRange:  priceRange,
				CreatedByID: ownerID,
			}
			if err := restRepo.Create(ctx, rest); err != nil {
				return res, fmt.Errorf("line %d: %w", line, err)
			}
			rid = rest.ID
			seen[key] = rid
			res.Restaurants++
		}

		price, err := parsePrice(valueAt(header, row, "price"))
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		item := &models.MenuItem{
			RestaurantID: rid,
			Name:         utils.Sanitize(valueAt(header, row, "item")),
			Description:  utils.Sanitize(valueAt(header, row, "description")),
			Price:        price,
			Category:     utils.Sanitize(valueAt(header, row, "category")),
			CreatedByID:  ownerID,
		}
		if item.Name == "" || item.Category == "" {
			return res, fmt.Errorf("line %d: item and category are required", line)
		}
		if err := items.Create(ctx, item); err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}
		res.MenuItems++
	}
	return res, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parsePrice(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	p, err := strconv.ParseFloat(strings.TrimPrefix(raw, "$"), 64)
	if err != nil || p < 0 {
		return 0, fmt.Errorf("invalid price %q", raw)
	}
	return p, nil
}
