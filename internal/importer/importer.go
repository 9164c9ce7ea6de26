package importer

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/mercado-storefront/internal/domain/product"
)

// Creator creates catalog products.
type Creator interface {
	Create(ctx context.Context, in product.CreateInput) (*product.Product, error)
}

// Options tune an Importer.
type Options struct {
	// Workers bounds concurrent Create calls. Defaults to 4.
	Workers int
	// ExpectedItems sizes the duplicate filter. Defaults to 1,000,000.
	ExpectedItems uint
	// FalsePositiveRate of the duplicate filter. Defaults to 0.0001.
	FalsePositiveRate float64
	// DryRun validates and deduplicates without creating anything.
	DryRun bool
	Logger *slog.Logger
}

// Stats counts what an import did.
type Stats struct {
	Created    int64
	Duplicates int64
	Invalid    int64
}

// Importer creates products from record sources, skipping records whose key
// was already seen. Keys are tracked in a bloom filter so that memory stays
// bounded on very large catalogs; a false positive skips a record and is
// reported as a duplicate.
type Importer struct {
	creator Creator
	opts    Options
	lg      *slog.Logger
	seen    *bloom.BloomFilter

	created    atomic.Int64
	duplicates int64
	invalid    int64
}

// New creates an Importer.
func New(c Creator, opts Options) *Importer {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.ExpectedItems == 0 {
		opts.ExpectedItems = 1_000_000
	}
	if opts.FalsePositiveRate <= 0 {
		opts.FalsePositiveRate = 0.0001
	}
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return &Importer{
		creator: c,
		opts:    opts,
		lg:      lg,
		seen:    bloom.NewWithEstimates(opts.ExpectedItems, opts.FalsePositiveRate),
	}
}

// MarkExisting records products already in the catalog so they are not
// created again.
func (im *Importer) MarkExisting(products []product.Product) {
	for _, p := range products {
		im.seen.AddString(Key(p.Name, string(p.Category)))
	}
}

// Import creates every new, valid record from src. Records are read on the
// calling goroutine and created by up to Options.Workers goroutines. The
// first Create failure cancels the import.
func (im *Importer) Import(ctx context.Context, src Source) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.opts.Workers)

	err := src(gctx, func(rec Record) error {
		in, err := rec.Input()
		if err != nil {
			im.invalid++
			im.lg.Warn("skipping invalid record",
				slog.String("name", rec.Name),
				slog.String("error", err.Error()),
			)
			return nil
		}
		// Only valid records claim their key.
		if im.seen.TestOrAddString(rec.Key()) {
			im.duplicates++
			im.lg.Debug("skipping duplicate", slog.String("name", rec.Name))
			return nil
		}
		if im.opts.DryRun {
			im.created.Add(1)
			return nil
		}
		g.Go(func() error {
			p, err := im.creator.Create(gctx, in)
			if err != nil {
				return errors.Wrapf(err, "create %q", in.Name)
			}
			im.lg.Debug("created product", slog.String("id", p.ID), slog.String("name", p.Name))
			if n := im.created.Add(1); n%1000 == 0 {
				im.lg.Info("import progress", slog.Int64("created", n))
			}
			return nil
		})
		return nil
	})
	if werr := g.Wait(); werr != nil {
		return werr
	}
	return err
}

// Stats returns the running totals across all Import calls.
func (im *Importer) Stats() Stats {
	return Stats{
		Created:    im.created.Load(),
		Duplicates: im.duplicates,
		Invalid:    im.invalid,
	}
}
