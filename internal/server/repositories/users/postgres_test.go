package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/watchlist-auth/internal/common"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(user_id,\s*password,\s*role\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*$`

	mock.ExpectExec(q).
		WithArgs("a@b.com", []byte("sealed"), sql.NullString{String: "USER", Valid: true}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.User{ID: "a@b.com", Password: []byte("sealed"), Role: models.RoleUser}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+users`).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.User{ID: "a@b.com"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+user_id,\s*password,\s*role,\s*refresh_token_id,\s*created_at\s+FROM\s+users\s+WHERE\s+user_id\s*=\s*\$1\s*$`
	created := time.Now()

	mock.ExpectQuery(q).
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "password", "role", "refresh_token_id", "created_at"}).
			AddRow("a@b.com", []byte("sealed"), "USER", "rt-1", created))

	u, err := repo.GetByID(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if u.ID != "a@b.com" || u.Role != models.RoleUser || u.RefreshTokenID != "rt-1" || string(u.Password) != "sealed" {
		t.Fatalf("unexpected user: %+v", u)
	}

	mock.ExpectQuery(q).
		WithArgs("norole@b.com").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "password", "role", "refresh_token_id", "created_at"}).
			AddRow("norole@b.com", []byte("sealed"), nil, nil, created))

	u, err = repo.GetByID(context.Background(), "norole@b.com")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if u.Role != "" || u.RefreshTokenID != "" {
		t.Fatalf("NULL columns must map to empty values: %+v", u)
	}

	mock.ExpectQuery(q).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}

	mock.ExpectQuery(q).WithArgs("x").WillReturnError(errors.New("boom"))
	if _, err := repo.GetByID(context.Background(), "x"); err == nil || errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want db error, got %v", err)
	}
}

func TestExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+users\s+WHERE\s+user_id\s*=\s*\$1\)`

	mock.ExpectQuery(q).WithArgs("a@b.com").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := repo.Exists(context.Background(), "a@b.com")
	if err != nil || !ok {
		t.Fatalf("want true, got %v %v", ok, err)
	}

	mock.ExpectQuery(q).WithArgs("c@d.com").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	ok, err = repo.Exists(context.Background(), "c@d.com")
	if err != nil || ok {
		t.Fatalf("want false, got %v %v", ok, err)
	}
}

func TestUpdatePassword(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `UPDATE\s+users\s+SET\s+password\s*=\s*\$2\s+WHERE\s+user_id\s*=\s*\$1`

	mock.ExpectExec(q).WithArgs("a@b.com", []byte("new")).WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.UpdatePassword(context.Background(), "a@b.com", []byte("new")); err != nil {
		t.Fatalf("UpdatePassword error: %v", err)
	}

	mock.ExpectExec(q).WithArgs("missing", []byte("new")).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.UpdatePassword(context.Background(), "missing", []byte("new")); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestRefreshTokenReference(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+refresh_token_id\s*=\s*\$2`).
		WithArgs("a@b.com", sql.NullString{String: "rt-1", Valid: true}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.SetRefreshTokenID(context.Background(), "a@b.com", "rt-1"); err != nil {
		t.Fatalf("SetRefreshTokenID error: %v", err)
	}

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+refresh_token_id\s*=\s*NULL`).
		WithArgs("a@b.com").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.ClearRefreshTokenID(context.Background(), "a@b.com"); err != nil {
		t.Fatalf("ClearRefreshTokenID error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
