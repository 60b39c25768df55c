package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/addrenrich/internal/config"
	"github.com/sells-group/addrenrich/internal/fetcher"
	"github.com/sells-group/addrenrich/internal/model"
	"github.com/sells-group/addrenrich/internal/postfile"
)

// registry is a classified and reconstructed input file.
type registry struct {
	Name        string
	Projections postfile.Projections
	Addresses   []model.Address
	Join        postfile.JoinStats
}

// sourceArg returns the source from args, falling back to input.source.
func sourceArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Input.Source
}

func sourceOptions(c *config.Config) fetcher.SourceOptions {
	timeout := time.Duration(c.Fetch.TimeoutSecs) * time.Second
	return fetcher.SourceOptions{
		HTTP:    fetcher.HTTPOptions{Timeout: timeout, MaxRetries: c.Fetch.MaxRetries},
		FTP:     fetcher.FTPOptions{Timeout: timeout},
		TempDir: c.Fetch.TempDir,
	}
}

// loadRegistry opens source, classifies its rows and rebuilds addresses.
func loadRegistry(ctx context.Context, source string, log *zap.Logger) (*registry, error) {
	src, err := fetcher.Open(ctx, source, sourceOptions(cfg))
	if err != nil {
		return nil, eris.Wrapf(err, "open source %s", source)
	}
	defer src.Close() //nolint:errcheck

	rowCh, errCh := fetcher.StreamCSV(ctx, src, fetcher.CSVOptions{
		Delimiter:  cfg.Input.DelimiterRune(),
		Encoding:   cfg.Input.Encoding,
		LazyQuotes: true,
	})
	proj, err := postfile.ClassifyStream(ctx, rowCh, errCh)
	if err != nil {
		return nil, eris.Wrapf(err, "classify %s", src.Name)
	}

	addrs, join := postfile.ReconstructWithStats(proj)
	log.Info("registry loaded",
		zap.String("source", src.Name),
		zap.Int("localities", len(proj.Localities)),
		zap.Int("streets", len(proj.Streets)),
		zap.Int("house_numbers", len(proj.Numbers)),
		zap.Int("ignored_rows", proj.Ignored),
		zap.Int("skipped_house_numbers", proj.SkippedNumbers),
		zap.Int("addresses", len(addrs)),
		zap.Int("street_matched", join.StreetMatched),
		zap.Int("locality_matched", join.LocalityMatched),
	)

	return &registry{Name: src.Name, Projections: proj, Addresses: addrs, Join: join}, nil
}
