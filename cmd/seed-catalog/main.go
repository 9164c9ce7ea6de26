package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/mercado-storefront/internal/domain/auth"
	"github.com/xenking/mercado-storefront/internal/graphql"
	"github.com/xenking/mercado-storefront/internal/importer"
	"github.com/xenking/mercado-storefront/internal/storage/remote"
)

type options struct {
	graphqlURL   string
	authURL      string
	email        string
	password     string
	productsFile string
	createUser   bool
}

func main() {
	var opts options

	flag.StringVar(&opts.graphqlURL, "graphql-url", "http://localhost:3003/graphql", "GraphQL API endpoint")
	flag.StringVar(&opts.authURL, "auth-url", "http://localhost:3001", "auth service base URL")
	flag.StringVar(&opts.email, "email", "", "admin account email (or SEED_EMAIL env)")
	flag.StringVar(&opts.password, "password", "", "admin account password (or SEED_PASSWORD env)")
	flag.StringVar(&opts.productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.BoolVar(&opts.createUser, "create-user", false, "register the admin account before signing in")
	flag.Parse()

	if opts.email == "" {
		opts.email = os.Getenv("SEED_EMAIL")
	}
	if opts.password == "" {
		opts.password = os.Getenv("SEED_PASSWORD")
	}
	if opts.email == "" || opts.password == "" {
		slog.Error("credentials are required: set --email/--password or SEED_EMAIL/SEED_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, opts options) error {
	client := &http.Client{Timeout: 30 * time.Second}
	gql, err := graphql.New(opts.graphqlURL, graphql.WithHTTPClient(client))
	if err != nil {
		return errors.Wrap(err, "create graphql client")
	}
	creds := auth.Credentials{Email: opts.email, Password: opts.password}

	if opts.createUser {
		u, err := remote.NewUserRepository(gql).Create(ctx, creds)
		if err != nil {
			return errors.Wrap(err, "create user")
		}
		slog.Info("created user", slog.String("id", u.ID), slog.String("email", u.Email))
	}

	slog.Info("signing in", slog.String("email", opts.email))
	sess, err := remote.NewAuthClient(opts.authURL, client).Login(ctx, creds)
	if err != nil {
		return errors.Wrap(err, "sign in")
	}
	if sess.Token == "" {
		return auth.ErrMissingToken
	}
	ctx = graphql.WithToken(ctx, sess.Token)

	products := remote.NewProductRepository(gql)
	existing, err := products.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}

	f, err := os.Open(opts.productsFile)
	if err != nil {
		return errors.Wrap(err, "open products file")
	}
	defer func() { _ = f.Close() }()

	im := importer.New(products, importer.Options{Workers: 1, ExpectedItems: 10_000})
	im.MarkExisting(existing)

	slog.Info("creating products", slog.String("path", opts.productsFile), slog.Int("existing", len(existing)))
	if err := im.Import(ctx, importer.JSONArray(f)); err != nil {
		return errors.Wrap(err, "import products")
	}

	stats := im.Stats()
	slog.Info("seeded products",
		slog.Int64("created", stats.Created),
		slog.Int64("skipped", stats.Duplicates),
		slog.Int64("invalid", stats.Invalid),
	)
	return nil
}
