// Package seed loads demo data and moves the catalog in and out of CSV.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"bitelogs/internal/apperr"
	"bitelogs/internal/auth"
	"bitelogs/internal/menuitems"
	"bitelogs/internal/restaurants"
	"bitelogs/internal/reviews"
	"bitelogs/pkg/models"
)

// DemoPassword satisfies the registration password rules.
const DemoPassword = "Demo123!@#"

// ErrAlreadySeeded is returned when the demo accounts exist.
var ErrAlreadySeeded = errors.New("demo data already present")

type Result struct {
	Users       int
	Restaurants int
	MenuItems   int
	Reviews     int
}

type demoUser struct {
	email, name string
	admin       bool
}

var demoUsers = []demoUser{
	{"demo@example.com", "Demo User", false},
	{"admin@example.com", "Admin User", true},
	{"foodie@example.com", "Food Lover", false},
}

type demoItem struct {
	restaurant int
	name, desc string
	price      float64
	category   string
}

var demoRestaurants = []models.Restaurant{
	{Name: "The Golden Fork", Address: "123 Main St", City: "San Francisco", State: "CA", ZipCode: "94102", Cuisine: "American", PriceRange: 3},
	{Name: "Sakura Sushi", Address: "456 Oak Ave", City: "San Francisco", State: "CA", ZipCode: "94103", Cuisine: "Japanese", PriceRange: 2},
	{Name: "Pasta Paradise", Address: "789 Elm Blvd", City: "San Francisco", State: "CA", ZipCode: "94104", Cuisine: "Italian", PriceRange: 3},
}

var demoItems = []demoItem{
	{0, "Classic Burger", "Angus beef with all the fixings", 15.99, "Mains"},
	{0, "Truffle Fries", "Hand-cut with truffle oil", 8.99, "Sides"},
	{1, "Dragon Roll", "Eel, avocado, cucumber", 18.99, "Rolls"},
	{1, "Salmon Nigiri", "Fresh Atlantic salmon", 6.99, "Nigiri"},
	{2, "Spaghetti Carbonara", "Classic Roman style", 16.99, "Pasta"},
	{2, "Margherita Pizza", "Fresh mozzarella and basil", 14.99, "Pizza"},
}

var demoReviews = []struct {
	item, user, rating int
	comment            string
}{
	{0, 0, 5, "Best burger in the city!"},
	{0, 2, 4, "Really good, would come back"},
	{1, 1, 5, "Truffle heaven!"},
	{2, 0, 5, "Incredible rolls, so fresh!"},
	{2, 1, 4, "Very tasty"},
	{3, 2, 5, "Melts in your mouth"},
	{4, 0, 5, "Authentic Italian taste"},
	{4, 2, 4, "Great pasta!"},
	{5, 1, 4, "Perfect crust"},
}

// Demo inserts the demo accounts, catalog and reviews, then recomputes
// every aggregate. It refuses to run twice.
func Demo(ctx context.Context, db *sqlx.DB, log logrus.FieldLogger) (Result, error) {
	var res Result

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return res, fmt.Errorf("hash demo password: %w", err)
	}

	users := auth.NewRepo(db)
	userIDs := make([]int64, 0, len(demoUsers))
	for _, du := range demoUsers {
		u := &auth.User{Email: du.email, DisplayName: du.name, IsAdmin: du.admin, PasswordHash: string(hash)}
		if err := users.CreateUser(ctx, u); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				return res, ErrAlreadySeeded
			}
			return res, err
		}
		userIDs = append(userIDs, u.ID)
		res.Users++
	}

	restRepo := restaurants.NewRepo(db)
	restIDs := make([]int64, 0, len(demoRestaurants))
	for i, r := range demoRestaurants {
		r.CreatedByID = userIDs[0]
		if i == 2 {
			r.CreatedByID = userIDs[1]
		}
		if err := restRepo.Create(ctx, &r); err != nil {
			return res, err
		}
		restIDs = append(restIDs, r.ID)
		res.Restaurants++
	}

	items := menuitems.NewRepo(db)
	itemIDs := make([]int64, 0, len(demoItems))
	for _, di := range demoItems {
		m := &models.MenuItem{
			RestaurantID: restIDs[di.restaurant],
			Name:         di.name,
			Description:  di.desc,
			Price:        di.price,
			Category:     di.category,
			CreatedByID:  userIDs[0],
		}
		if err := items.Create(ctx, m); err != nil {
			return res, err
		}
		itemIDs = append(itemIDs, m.ID)
		res.MenuItems++
	}

	reviewRepo := reviews.NewRepo(db)
	for _, dr := range demoReviews {
		if _, err := reviewRepo.Create(ctx, itemIDs[dr.item], userIDs[dr.user], dr.rating, dr.comment); err != nil {
			return res, err
		}
		res.Reviews++
	}

	if _, err := RecomputeAll(ctx, items, log); err != nil {
		return res, err
	}

	log.WithFields(logrus.Fields{
		"users":       res.Users,
		"restaurants": res.Restaurants,
		"menu_items":  res.MenuItems,
		"reviews":     res.Reviews,
	}).Info("seed completed")
	return res, nil
}

// RecomputeAll rebuilds the aggregate of every menu item from its reviews.
func RecomputeAll(ctx context.Context, items *menuitems.Repo, log logrus.FieldLogger) (int, error) {
	ids, err := items.IDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		agg, err := items.RecomputeRating(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("recompute menu item %d: %w", id, err)
		}
		log.WithFields(logrus.Fields{
			"menu_item_id": id,
			"avg_rating":   agg.AvgRating,
			"review_count": agg.ReviewCount,
		}).Debug("aggregate recomputed")
	}
	return len(ids), nil
}
