package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"bitelogs/pkg/models"
)

const defaultBaseURL = "http://localhost:3001/api"

type authResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

func main() {
	global := flag.NewFlagSet("bitelogs", flag.ExitOnError)
	baseURL := global.String("api", envOr("BITELOGS_API", defaultBaseURL), "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	rest := []string{}
	if len(args) > 1 {
		sub = args[1]
		rest = args[2:]
	}

	api := &apiClient{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: *baseURL,
	}

	switch cmd {
	case "auth":
		handleAuth(ctx, api, *tokenPath, sub, rest)
	case "restaurants":
		handleRestaurants(ctx, api, *tokenPath, sub, rest)
	case "menu":
		handleMenu(ctx, api, *tokenPath, sub, rest)
	case "reviews":
		handleReviews(ctx, api, *tokenPath, sub, rest)
	case "discover":
		handleDiscover(ctx, api, sub, rest)
	case "feed":
		handleFeed(api, sub)
	case "health":
		var out map[string]any
		if err := api.do(ctx, http.MethodGet, "/health", "", nil, &out); err != nil {
			log.Fatalf("health: %v", err)
		}
		printJSON(out)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, api *apiClient, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		var resp authResponse
		payload := map[string]string{"email": *email, "password": *password}
		if err := api.do(ctx, http.MethodPost, "/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Printf("logged in as %s\n", resp.User.DisplayName)
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *name == "" || *email == "" || *password == "" {
			log.Fatal("name, email, and password are required")
		}

		var resp authResponse
		payload := map[string]string{"displayName": *name, "email": *email, "password": *password}
		if err := api.do(ctx, http.MethodPost, "/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("registered and logged in")
	case "me":
		var out map[string]any
		if err := api.do(ctx, http.MethodGet, "/auth/me", mustToken(tokenPath), nil, &out); err != nil {
			log.Fatalf("me: %v", err)
		}
		printJSON(out)
	case "logout":
		if token, err := readToken(tokenPath); err == nil && token != "" {
			// revoke server side too; a stale token is not worth failing over
			_ = api.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
		}
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("logged out")
	default:
		log.Fatal("usage: bitelogs auth <login|register|me|logout>")
	}
}

func handleRestaurants(ctx context.Context, api *apiClient, tokenPath, sub string, args []string) {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("restaurants list", flag.ExitOnError)
		city := fs.String("city", "", "city filter")
		cuisine := fs.String("cuisine", "", "cuisine filter")
		search := fs.String("q", "", "name search")
		page := fs.Int("page", 1, "page")
		limit := fs.Int("limit", 20, "page size")
		_ = fs.Parse(args)

		q := url.Values{}
		setIf(q, "city", *city)
		setIf(q, "cuisine", *cuisine)
		setIf(q, "search", *search)
		q.Set("page", strconv.Itoa(*page))
		q.Set("limit", strconv.Itoa(*limit))

		var out models.Page[models.Restaurant]
		if err := api.do(ctx, http.MethodGet, "/restaurants?"+q.Encode(), "", nil, &out); err != nil {
			log.Fatalf("list restaurants: %v", err)
		}
		for _, r := range out.Data {
			fmt.Printf("%d\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.City, r.Cuisine, dollars(r.PriceRange))
		}
		fmt.Printf("page %d/%d (%d total)\n", out.Pagination.Page, out.Pagination.TotalPages, out.Pagination.Total)
	case "show":
		id := mustID(args, "usage: bitelogs restaurants show <id>")
		var out map[string]any
		if err := api.do(ctx, http.MethodGet, "/restaurants/"+id, "", nil, &out); err != nil {
			log.Fatalf("show restaurant: %v", err)
		}
		printJSON(out)
	case "add":
		fs := flag.NewFlagSet("restaurants add", flag.ExitOnError)
		name := fs.String("name", "", "name")
		address := fs.String("address", "", "street address")
		city := fs.String("city", "", "city")
		state := fs.String("state", "", "state")
		zip := fs.String("zip", "", "zip code")
		cuisine := fs.String("cuisine", "", "cuisine")
		price := fs.Int("price", 2, "price range 1-4")
		_ = fs.Parse(args)

		payload := map[string]any{
			"name": *name, "address": *address, "city": *city, "state": *state,
			"zipCode": *zip, "cuisine": *cuisine, "priceRange": *price,
		}

		var out map[string]any
		if err := api.do(ctx, http.MethodPost, "/restaurants", mustToken(tokenPath), payload, &out); err != nil {
			log.Fatalf("add restaurant: %v", err)
		}
		printJSON(out)
	default:
		log.Fatal("usage: bitelogs restaurants <list|show|add>")
	}
}

func handleMenu(ctx context.Context, api *apiClient, tokenPath, sub string, args []string) {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("menu list", flag.ExitOnError)
		category := fs.String("category", "", "category filter")
		_ = fs.Parse(args)
		id := mustID(fs.Args(), "usage: bitelogs menu list [-category c] <restaurant-id>")

		q := url.Values{}
		setIf(q, "category", *category)
		var out models.Page[models.MenuItem]
		if err := api.do(ctx, http.MethodGet, "/restaurants/"+id+"/menu-items?"+q.Encode(), "", nil, &out); err != nil {
			log.Fatalf("list menu: %v", err)
		}
		for _, m := range out.Data {
			fmt.Printf("%d\t%-10s\t%s\t$%.2f\t%.2f (%d)\n", m.ID, m.Category, m.Name, m.Price, m.AvgRating, m.ReviewCount)
		}
	case "show":
		id := mustID(args, "usage: bitelogs menu show <id>")
		var out map[string]any
		if err := api.do(ctx, http.MethodGet, "/menu-items/"+id, "", nil, &out); err != nil {
			log.Fatalf("show menu item: %v", err)
		}
		printJSON(out)
	case "add":
		fs := flag.NewFlagSet("menu add", flag.ExitOnError)
		restaurant := fs.Int64("restaurant", 0, "restaurant id")
		name := fs.String("name", "", "item name")
		category := fs.String("category", "", "category")
		price := fs.Float64("price", 0, "price")
		_ = fs.Parse(args)

		payload := map[string]any{"restaurantId": *restaurant, "name": *name, "category": *category, "price": *price}
		var out map[string]any
		if err := api.do(ctx, http.MethodPost, "/menu-items", mustToken(tokenPath), payload, &out); err != nil {
			log.Fatalf("add menu item: %v", err)
		}
		printJSON(out)
	default:
		log.Fatal("usage: bitelogs menu <list|show|add>")
	}
}

func handleReviews(ctx context.Context, api *apiClient, tokenPath, sub string, args []string) {
	switch sub {
	case "list":
		id := mustID(args, "usage: bitelogs reviews list <menu-item-id>")
		var out models.Page[models.Review]
		if err := api.do(ctx, http.MethodGet, "/menu-items/"+id+"/reviews", "", nil, &out); err != nil {
			log.Fatalf("list reviews: %v", err)
		}
		for _, r := range out.Data {
			author := ""
			if r.Author != nil {
				author = r.Author.DisplayName
			}
			fmt.Printf("%d\t%d/5\t%s\t%s\n", r.ID, r.Rating, author, r.Comment)
		}
	case "add":
		fs := flag.NewFlagSet("reviews add", flag.ExitOnError)
		item := fs.Int64("item", 0, "menu item id")
		rating := fs.Int("rating", 0, "rating 1-5")
		comment := fs.String("comment", "", "comment")
		_ = fs.Parse(args)

		payload := map[string]any{"menuItemId": *item, "rating": *rating, "comment": *comment}
		var out map[string]any
		if err := api.do(ctx, http.MethodPost, "/reviews", mustToken(tokenPath), payload, &out); err != nil {
			log.Fatalf("add review: %v", err)
		}
		printJSON(out)
	case "image":
		if len(args) != 2 {
			log.Fatal("usage: bitelogs reviews image <review-id> <file>")
		}
		var out map[string]any
		if err := api.upload(ctx, "/reviews/"+args[0]+"/image", mustToken(tokenPath), args[1], &out); err != nil {
			log.Fatalf("upload image: %v", err)
		}
		printJSON(out)
	case "delete":
		id := mustID(args, "usage: bitelogs reviews delete <id>")
		if err := api.do(ctx, http.MethodDelete, "/reviews/"+id, mustToken(tokenPath), nil, nil); err != nil {
			log.Fatalf("delete review: %v", err)
		}
		fmt.Println("review deleted")
	default:
		log.Fatal("usage: bitelogs reviews <list|add|image|delete>")
	}
}

func handleDiscover(ctx context.Context, api *apiClient, sub string, args []string) {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	limit := fs.Int("limit", 10, "number of entries")
	_ = fs.Parse(args)

	path := map[string]string{"top": "/discover/top-rated", "recent": "/discover/recent", "photos": "/discover/photos"}[sub]
	if path == "" {
		log.Fatal("usage: bitelogs discover <top|recent|photos> [-limit n]")
	}
	var out map[string]any
	if err := api.do(ctx, http.MethodGet, path+"?limit="+strconv.Itoa(*limit), "", nil, &out); err != nil {
		log.Fatalf("discover: %v", err)
	}
	printJSON(out)
}

func handleFeed(api *apiClient, sub string) {
	if sub != "listen" {
		log.Fatal("usage: bitelogs feed listen")
	}
	wsURL, err := websocketURL(api.baseURL, "/ws/reviews")
	if err != nil {
		log.Fatalf("feed url: %v", err)
	}
	if err := runWebSocket(wsURL); err != nil {
		log.Fatalf("feed: %v", err)
	}
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[feed] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func printUsage() {
	fmt.Println("bitelogs [-api url] [-token path] <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|me|logout")
	fmt.Println("  restaurants list|show|add")
	fmt.Println("  menu list|show|add")
	fmt.Println("  reviews list|add|image|delete")
	fmt.Println("  discover top|recent|photos")
	fmt.Println("  feed listen")
	fmt.Println("  health")
}
