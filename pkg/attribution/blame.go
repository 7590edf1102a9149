package attribution

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/gitshare/pkg/contrib"
	"github.com/Sumatoshi-tech/gitshare/pkg/gitlib"
	"github.com/Sumatoshi-tech/gitshare/pkg/identity"
)

// ErrBinaryFile is returned when a file cannot be blamed because it is binary.
var ErrBinaryFile = errors.New("binary file")

// BlameStats counts the hunks a blame left out.
type BlameStats struct {
	Hunks           int
	Expired         int
	MissingIdentity int
}

// BlameFile attributes the current content of path to the authors of its
// blame hunks. Hunks older than maxAge count neither for their author nor in
// the total. Hunks without an identity are logged and skipped.
func BlameFile(
	repo *gitlib.Repository, path string, resolver *identity.Resolver,
	maxAge time.Duration, now time.Time, logger *slog.Logger,
) (*contrib.Record, BlameStats, error) {
	var stats BlameStats

	data, err := repo.HeadFileContents(path)
	if err != nil {
		return nil, stats, fmt.Errorf("read %s: %w", path, err)
	}

	if enry.IsBinary(data) {
		return nil, stats, fmt.Errorf("%w: %s", ErrBinaryFile, path)
	}

	hunks, err := repo.BlameFile(path)
	if err != nil {
		return nil, stats, err
	}

	rec := contrib.New()

	for _, hunk := range hunks {
		stats.Hunks++

		when := hunk.Signature.When
		if when.IsZero() {
			logger.Debug("blame hunk without timestamp", "path", path, "commit", hunk.Commit.Short())
		} else if Expired(when, now, maxAge) {
			stats.Expired++

			continue
		}

		id, ok := resolver.Resolve(repo, hunk.Signature)
		if !ok {
			stats.MissingIdentity++

			logger.Warn("hunk without email", "path", path, "commit", hunk.Commit.Short(), "lines", hunk.Lines)

			continue
		}

		rec.AddLines(id, hunk.Lines)
	}

	return rec, stats, nil
}
