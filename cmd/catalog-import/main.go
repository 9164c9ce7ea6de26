package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/mercado-storefront/internal/domain/auth"
	"github.com/xenking/mercado-storefront/internal/graphql"
	"github.com/xenking/mercado-storefront/internal/importer"
	"github.com/xenking/mercado-storefront/internal/storage/remote"
)

type options struct {
	graphqlURL string
	authURL    string
	email      string
	password   string
	workers    int
	expected   uint
	fpr        float64
	dryRun     bool
	files      []string
}

func main() {
	var opts options

	flag.StringVar(&opts.graphqlURL, "graphql-url", "http://localhost:3003/graphql", "GraphQL API endpoint")
	flag.StringVar(&opts.authURL, "auth-url", "http://localhost:3001", "auth service base URL")
	flag.StringVar(&opts.email, "email", "", "admin account email (or IMPORT_EMAIL env)")
	flag.StringVar(&opts.password, "password", "", "admin account password (or IMPORT_PASSWORD env)")
	flag.IntVar(&opts.workers, "workers", 8, "concurrent createProduct calls")
	flag.UintVar(&opts.expected, "expected", 1_000_000, "expected number of records, sizes the duplicate filter")
	flag.Float64Var(&opts.fpr, "fpr", 0.0001, "duplicate filter false positive rate")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "validate and deduplicate without creating products")
	flag.Parse()
	opts.files = flag.Args()

	if opts.email == "" {
		opts.email = os.Getenv("IMPORT_EMAIL")
	}
	if opts.password == "" {
		opts.password = os.Getenv("IMPORT_PASSWORD")
	}
	if len(opts.files) == 0 {
		slog.Error("usage: catalog-import [flags] catalog1.ndjson.gz [catalog2.ndjson ...]")
		os.Exit(2)
	}
	if !opts.dryRun && (opts.email == "" || opts.password == "") {
		slog.Error("credentials are required: set --email/--password or IMPORT_EMAIL/IMPORT_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, opts options) error {
	for _, f := range opts.files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	client := &http.Client{Timeout: 30 * time.Second}
	gql, err := graphql.New(opts.graphqlURL, graphql.WithHTTPClient(client))
	if err != nil {
		return errors.Wrap(err, "create graphql client")
	}
	products := remote.NewProductRepository(gql)

	im := importer.New(products, importer.Options{
		Workers:           opts.workers,
		ExpectedItems:     opts.expected,
		FalsePositiveRate: opts.fpr,
		DryRun:            opts.dryRun,
	})

	if !opts.dryRun {
		sess, err := remote.NewAuthClient(opts.authURL, client).Login(ctx, auth.Credentials{
			Email:    opts.email,
			Password: opts.password,
		})
		if err != nil {
			return errors.Wrap(err, "sign in")
		}
		if sess.Token == "" {
			return auth.ErrMissingToken
		}
		ctx = graphql.WithToken(ctx, sess.Token)

		existing, err := products.List(ctx)
		if err != nil {
			return errors.Wrap(err, "list products")
		}
		im.MarkExisting(existing)
		slog.Info("loaded existing catalog", slog.Int("products", len(existing)))
	}

	// Files share one duplicate filter, so they are read in order.
	for i, path := range opts.files {
		slog.Info("importing file", slog.Int("file", i+1), slog.String("path", path))
		if err := importFile(ctx, im, path); err != nil {
			return errors.Wrapf(err, "import %s", path)
		}
		stats := im.Stats()
		slog.Info("file complete",
			slog.Int("file", i+1),
			slog.Int64("created", stats.Created),
			slog.Int64("duplicates", stats.Duplicates),
			slog.Int64("invalid", stats.Invalid),
		)
	}
	return nil
}

// importFile streams one NDJSON file, gunzipping it when the name ends in .gz.
func importFile(ctx context.Context, im *importer.Importer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	return im.Import(ctx, importer.NDJSON(r))
}
