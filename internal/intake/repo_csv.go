package intake

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// SheetHeader is the first row of a new sheet.
var SheetHeader = []string{
	"Timestamp",
	"Client Name",
	"Policy Number",
	"Carrier",
	"Address",
	"Client Phone",
	"Agent Email",
	"Photo Count",
	"Drive Folder Link",
	"Submission ID",
}

// CSVRepo keeps the submission log as a spreadsheet-friendly CSV file.
type CSVRepo struct {
	path string
	mu   sync.Mutex
}

// NewCSVRepo returns a repo writing to path. The file and its directory are
// created on first append.
func NewCSVRepo(path string) *CSVRepo {
	return &CSVRepo{path: path}
}

// Location is the absolute path of the sheet.
func (r *CSVRepo) Location() string {
	if abs, err := filepath.Abs(r.path); err == nil {
		return abs
	}
	return r.path
}

// Append adds one row, writing the header first when the sheet is empty.
func (r *CSVRepo) Append(ctx context.Context, sub Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create sheet dir: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open sheet: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat sheet: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(SheetHeader); err != nil {
			return err
		}
	}
	if err := w.Write(toRow(sub)); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}
	return f.Sync()
}

// List reads the sheet and returns the newest rows first.
func (r *CSVRepo) List(ctx context.Context, limit int) ([]Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Submission{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open sheet: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sheet: %w", err)
		}
		rows = append(rows, rec)
	}
	if len(rows) > 0 && len(rows[0]) > 0 && rows[0][0] == SheetHeader[0] {
		rows = rows[1:]
	}

	out := make([]Submission, 0, min(limit, len(rows)))
	for i := len(rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, fromRow(rows[i]))
	}
	return out, nil
}

func toRow(sub Submission) []string {
	return []string{
		sub.ReceivedAt.UTC().Format(time.RFC3339),
		sub.ClientName,
		orNA(sub.PolicyNumber),
		orNA(sub.InsuranceCompany),
		sub.Address,
		sub.ClientPhone,
		sub.AgentEmail,
		strconv.Itoa(sub.PhotoCount),
		sub.FolderURL,
		sub.ID,
	}
}

func fromRow(rec []string) Submission {
	field := func(i int) string {
		if i < len(rec) {
			return rec[i]
		}
		return ""
	}
	at, _ := time.Parse(time.RFC3339, field(0))
	count, _ := strconv.Atoi(field(7))
	return Submission{
		ReceivedAt:       at,
		ClientName:       field(1),
		PolicyNumber:     field(2),
		InsuranceCompany: field(3),
		Address:          field(4),
		ClientPhone:      field(5),
		AgentEmail:       field(6),
		PhotoCount:       count,
		FolderURL:        field(8),
		ID:               field(9),
		Status:           StatusReceived,
	}
}

var (
	_ SubmissionRepo = (*CSVRepo)(nil)
	_ locator        = (*CSVRepo)(nil)
)
