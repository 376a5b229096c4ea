package snapshot

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kailas-cloud/claimsearch/internal/domain/claim"
)

// formatVersion changes whenever the encoded layout does.
const formatVersion = 1

type snapshotDTO struct {
	Version int      `json:"v"`
	Rows    []rowDTO `json:"rows"`
}

// rowDTO stores the raw fields; derived values are recomputed on decode.
type rowDTO struct {
	ClaimNumber   string  `json:"cn"`
	ClaimType     string  `json:"ct,omitempty"`
	LossType      string  `json:"lt,omitempty"`
	AgencyParent  string  `json:"ap,omitempty"`
	AgencyName    string  `json:"an,omitempty"`
	AssertedDate  string  `json:"ad,omitempty"`
	TotalIncurred float64 `json:"ti,omitempty"`
	NoteType      string  `json:"nt,omitempty"`
	Note          *string `json:"n,omitempty"`
}

func encode(set claim.Set) ([]byte, error) {
	dto := snapshotDTO{Version: formatVersion, Rows: make([]rowDTO, set.Len())}
	for i := range set.Len() {
		r := set.At(i)
		f := r.Fields()
		row := rowDTO{
			ClaimNumber:   f.ClaimNumber,
			ClaimType:     f.ClaimType,
			LossType:      f.LossType,
			AgencyParent:  f.AgencyParent,
			AgencyName:    f.AgencyName,
			AssertedDate:  f.AssertedDate,
			TotalIncurred: f.TotalIncurred,
			NoteType:      f.NoteType,
		}
		if f.Note.Valid {
			note := f.Note.String
			row.Note = &note
		}
		dto.Rows[i] = row
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(dto); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) ([]claim.Fields, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	defer func() { _ = zr.Close() }()

	var dto snapshotDTO
	if err := json.NewDecoder(io.LimitReader(zr, maxDecodedBytes)).Decode(&dto); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if dto.Version != formatVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", dto.Version, formatVersion)
	}

	rows := make([]claim.Fields, len(dto.Rows))
	for i, r := range dto.Rows {
		rows[i] = claim.Fields{
			ClaimNumber:   r.ClaimNumber,
			ClaimType:     r.ClaimType,
			LossType:      r.LossType,
			AgencyParent:  r.AgencyParent,
			AgencyName:    r.AgencyName,
			AssertedDate:  r.AssertedDate,
			TotalIncurred: r.TotalIncurred,
			NoteType:      r.NoteType,
		}
		if r.Note != nil {
			rows[i].Note = sql.NullString{String: *r.Note, Valid: true}
		}
	}
	return rows, nil
}
