package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/dmitrijs2005/outlinebot/internal/common"
)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewSQLRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*is_bot,\s*first_name,\s*last_name,\s*username,\s*lang_code,\s*role,\s*is_superuser\)\s*VALUES\s*\(\$1,.*\$8\)$`
	mock.ExpectExec(q).
		WithArgs(int64(4503599627370495), false, "Ann", "", "ann", "en", "admin", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.User{ID: 4503599627370495, FirstName: "Ann", UserName: "ann", LangCode: "en", Role: "admin"}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.User{ID: 1})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*is_bot,.*is_superuser\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	rows := sqlmock.NewRows([]string{"id", "is_bot", "first_name", "last_name", "username", "lang_code", "role", "is_superuser"}).
		AddRow(int64(7), false, "Ann", "Lee", "ann", "en", "user", true)
	mock.ExpectQuery(q).WithArgs(int64(7)).WillReturnRows(rows)

	got, err := repo.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.ID != 7 || got.LastName != "Lee" || got.Role != "user" || !got.IsSuperuser {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+users`).WithArgs(int64(8)).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 8)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestUpdateProfile_KeepsRole(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+is_bot\s*=\s*\$1,\s*first_name\s*=\s*\$2,\s*last_name\s*=\s*\$3,\s*username\s*=\s*\$4,\s*lang_code\s*=\s*\$5\s+WHERE\s+id\s*=\s*\$6$`
	mock.ExpectExec(q).
		WithArgs(false, "Ann", "Lee", "ann2", "de", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateProfile(context.Background(), &models.User{ID: 7, FirstName: "Ann", LastName: "Lee", UserName: "ann2", LangCode: "de", Role: "admin"})
	if err != nil {
		t.Fatalf("UpdateProfile error: %v", err)
	}
}

func TestUpdateProfile_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateProfile(context.Background(), &models.User{ID: 9})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
