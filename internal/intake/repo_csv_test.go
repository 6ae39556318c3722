package intake

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCSVRepoWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheets", "submissions.csv")
	repo := NewCSVRepo(path)
	at := time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC)

	first := Submission{ID: "a", ReceivedAt: at, ClientName: "Jane, Doe", Address: "1 Main", PhotoCount: 2, FolderURL: "/data/x"}
	second := Submission{ID: "b", ReceivedAt: at.Add(time.Minute), ClientName: "Bob", PolicyNumber: "P-9", InsuranceCompany: "Travelers", PhotoCount: 1}
	for _, sub := range []Submission{first, second} {
		if err := repo.Append(context.Background(), sub); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d:\n%s", len(lines), raw)
	}
	if !strings.HasPrefix(lines[0], "Timestamp,Client Name,Policy Number,Carrier,Address,Client Phone,Agent Email,Photo Count,Drive Folder Link") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != `2026-03-01T15:04:05Z,"Jane, Doe",N/A,N/A,1 Main,,,2,/data/x,a` {
		t.Fatalf("unexpected row %q", lines[1])
	}

	got, err := repo.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ClientName != "Jane, Doe" || got[1].PhotoCount != 2 {
		t.Fatalf("unexpected list %+v", got)
	}
	if !filepath.IsAbs(repo.Location()) {
		t.Fatalf("Location should be absolute, got %q", repo.Location())
	}
}

func TestCSVRepoListMissingFile(t *testing.T) {
	repo := NewCSVRepo(filepath.Join(t.TempDir(), "none.csv"))
	got, err := repo.List(context.Background(), 0)
	if err != nil || len(got) != 0 {
		t.Fatalf("List = %v, %v; want empty", got, err)
	}
}
