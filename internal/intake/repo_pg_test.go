package intake

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC)
	sub := Submission{
		ID:         "01HV",
		ReceivedAt: at,
		ClientName: "Jane Doe",
		FolderKey:  "Jane Doe - No Address - 2026-03-01",
		FolderURL:  "/data/Jane Doe - No Address - 2026-03-01",
		PhotoCount: 2,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WithArgs("01HV", at, "Jane Doe", "", "", "", "", "", sub.FolderKey, sub.FolderURL, 2, StatusReceived).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := &PGRepo{DB: db}
	if err := repo.Append(context.Background(), sub); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC)
	cols := []string{"id", "received_at", "client_name", "policy_number", "insurance_company", "address", "client_phone", "agent_email", "folder_key", "folder_url", "photo_count", "status"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions")).
		WithArgs(maxListLimit).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("b", at, "B", "P2", "Travelers", "2 Oak", "", "a@b.c", "kb", "ub", 3, StatusReceived).
			AddRow("a", at.Add(-time.Hour), "A", "", "", "", "", "", "ka", "ua", 1, StatusReceived))

	repo := &PGRepo{DB: db}
	got, err := repo.List(context.Background(), 1000)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[0].PhotoCount != 3 || got[1].ClientName != "A" {
		t.Fatalf("unexpected rows %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoListError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions")).WithArgs(defaultListLimit).WillReturnError(boom)

	repo := &PGRepo{DB: db}
	if _, err := repo.List(context.Background(), 0); !errors.Is(err, boom) {
		t.Fatalf("expected query error, got %v", err)
	}
}
