// Package dataset loads the base claim-note record set from a file.
package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/claimsearch/internal/domain"
	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
	"github.com/kailas-cloud/claimsearch/internal/metrics"
)

// Format is a supported dataset file format.
type Format string

// Supported formats.
const (
	CSV     Format = "csv"
	Parquet Format = "parquet"
	SQLite  Format = "sqlite"
)

// DefaultTable is the SQLite table read when none is configured.
const DefaultTable = "claims"

// Column headers of the dataset.
const (
	ColClaimNumber   = "CLAIM_NUMBER"
	ColClaimType     = "CLAIM_TYPE"
	ColLossType      = "LOSS_TYPE"
	ColAgencyParent  = "AGENCY_PARENT"
	ColAgencyName    = "AGENCY_NAME"
	ColAssertedDate  = "ASSERTED_DATE"
	ColTotalIncurred = "TOTAL_INCURRED"
	ColNoteType      = "NOTE_TYPE"
	ColNote          = "NOTE_DESCRIPTION"
)

// Columns lists the dataset columns in file order.
var Columns = []string{
	ColClaimNumber, ColClaimType, ColLossType, ColAgencyParent, ColAgencyName,
	ColAssertedDate, ColTotalIncurred, ColNoteType, ColNote,
}

// requiredColumns must be present in every source.
var requiredColumns = []string{ColClaimNumber, ColNote}

// FormatFromPath infers the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSV, nil
	case ".parquet", ".pq":
		return Parquet, nil
	case ".db", ".sqlite", ".sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("%w: cannot infer format of %q", domain.ErrUnsupportedFormat, path)
}

// ParseFormat validates a format name. Empty infers it from path.
func ParseFormat(name, path string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatFromPath(path)
	case CSV, Parquet, SQLite:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, name)
	}
}

// Source locates a dataset.
type Source struct {
	Path   string
	Format Format
	Table  string // sqlite only
}

// File loads the base set from a file on every call to Load.
// Wrap it in Cached to read the file once per process.
type File struct {
	src    Source
	logger *zap.Logger
}

// NewFile creates a file provider. An empty format is inferred from the path.
func NewFile(src Source, logger *zap.Logger) (*File, error) {
	if src.Path == "" {
		return nil, fmt.Errorf("dataset path is required")
	}
	f, err := ParseFormat(string(src.Format), src.Path)
	if err != nil {
		return nil, err
	}
	src.Format = f
	if src.Table == "" {
		src.Table = DefaultTable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &File{src: src, logger: logger}, nil
}

// Source returns the resolved source.
func (f *File) Source() Source { return f.src }

// Load reads and parses the file into a base set.
func (f *File) Load(ctx context.Context) (claim.Set, error) {
	start := time.Now()

	rows, err := f.read(ctx)
	if err != nil {
		return claim.Set{}, fmt.Errorf("load %s dataset %s: %w", f.src.Format, f.src.Path, err)
	}
	set := Build(rows)

	elapsed := time.Since(start)
	metrics.DatasetLoadDuration.Observe(elapsed.Seconds())
	f.logger.Info("dataset loaded",
		zap.String("path", f.src.Path),
		zap.String("format", string(f.src.Format)),
		zap.Int("rows", set.Len()),
		zap.Duration("duration", elapsed),
	)
	return set, nil
}

func (f *File) read(ctx context.Context) ([]claim.Fields, error) {
	switch f.src.Format {
	case CSV:
		return readCSVFile(ctx, f.src.Path)
	case Parquet:
		return readParquetFile(ctx, f.src.Path)
	case SQLite:
		return readSQLite(ctx, f.src.Path, f.src.Table)
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, f.src.Format)
}

// Fingerprint identifies the current file contents by path, size and
// modification time. It changes whenever the file is replaced or rewritten.
func (f *File) Fingerprint(_ context.Context) (string, error) {
	st, err := os.Stat(f.src.Path)
	if err != nil {
		return "", fmt.Errorf("stat dataset: %w", err)
	}
	abs, err := filepath.Abs(f.src.Path)
	if err != nil {
		abs = f.src.Path
	}
	h := sha256.New()
	for _, part := range []string{
		abs,
		string(f.src.Format),
		f.src.Table,
		strconv.FormatInt(st.Size(), 10),
		strconv.FormatInt(st.ModTime().UnixNano(), 10),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Build converts raw rows into the base set, deriving search copies and years.
func Build(rows []claim.Fields) claim.Set {
	recs := make([]claim.Record, len(rows))
	for i := range rows {
		recs[i] = claim.New(rows[i])
	}
	return claim.NewBase(recs)
}

// parseAmount reads a currency-formatted amount such as "$1,234.50".
// Blank yields zero.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	neg := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	s = strings.Trim(s, "()")
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if neg {
		v = -v
	}
	return v, nil
}

// columnIndex maps normalized header names to positions and checks required columns.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing required column %s", c)
		}
	}
	return idx, nil
}
