package taxdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yumyai/hgtdetect/logger"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// TaxID identifies a node in the NCBI taxonomy tree.
type TaxID int64

// ErrTaxonNotFound reports that the taxonomy database has no record for an id.
var ErrTaxonNotFound = errors.New("taxon not found")

// Resolver is the lookup contract shared by Store and Cache.
type Resolver interface {
	Lineage(ctx context.Context, id TaxID) ([]TaxID, error)
	Rank(ctx context.Context, id TaxID) (string, error)
	Name(ctx context.Context, id TaxID) (string, error)
}

// Store reads an ete3-layout taxa.sqlite database. The species table carries
// one row per taxon with its rank, scientific name and the comma-joined
// ancestor track (taxon first, root last); the merged table maps obsolete
// ids onto their replacements.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy db %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Lineage returns the ancestor chain of id from the root down to id itself.
// Obsolete ids are translated through the merged table, so the returned
// chain then ends at the replacement id.
func (s *Store) Lineage(ctx context.Context, id TaxID) ([]TaxID, error) {
	track, err := s.track(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrTaxonNotFound) {
			return nil, err
		}
		current, merr := s.mergedInto(ctx, id)
		if merr != nil {
			return nil, err
		}
		logger.Debug("obsolete taxid translated",
			zap.Int64("old", int64(id)), zap.Int64("new", int64(current)))
		if track, err = s.track(ctx, current); err != nil {
			return nil, err
		}
	}

	lineage := make([]TaxID, len(track))
	for i, t := range track {
		lineage[len(track)-1-i] = t
	}
	return lineage, nil
}

// Rank returns the rank name of id. There is no merged-table fallback here:
// rank lookups of obsolete ids fail, matching the upstream ete3 behavior.
func (s *Store) Rank(ctx context.Context, id TaxID) (string, error) {
	var rank string
	err := s.db.QueryRowContext(ctx, `SELECT rank FROM species WHERE taxid = ?`, int64(id)).Scan(&rank)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("taxid %d: %w", id, ErrTaxonNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("taxid %d rank: %w", id, err)
	}
	return rank, nil
}

// Name returns the scientific name of id, consulting the merged table for
// obsolete ids.
func (s *Store) Name(ctx context.Context, id TaxID) (string, error) {
	name, err := s.spname(ctx, id)
	if err == nil {
		return name, nil
	}
	if !errors.Is(err, ErrTaxonNotFound) {
		return "", err
	}
	current, merr := s.mergedInto(ctx, id)
	if merr != nil {
		return "", err
	}
	return s.spname(ctx, current)
}

func (s *Store) track(ctx context.Context, id TaxID) ([]TaxID, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT track FROM species WHERE taxid = ?`, int64(id)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("taxid %d: %w", id, ErrTaxonNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("taxid %d track: %w", id, err)
	}

	parts := strings.Split(raw, ",")
	track := make([]TaxID, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("taxid %d: malformed track entry %q", id, p)
		}
		track = append(track, TaxID(n))
	}
	return track, nil
}

func (s *Store) spname(ctx context.Context, id TaxID) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT spname FROM species WHERE taxid = ?`, int64(id)).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("taxid %d: %w", id, ErrTaxonNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("taxid %d name: %w", id, err)
	}
	return name, nil
}

func (s *Store) mergedInto(ctx context.Context, id TaxID) (TaxID, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT taxid_new FROM merged WHERE taxid_old = ?`, int64(id)).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("taxid %d: %w", id, ErrTaxonNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("taxid %d merged lookup: %w", id, err)
	}
	return TaxID(n), nil
}
