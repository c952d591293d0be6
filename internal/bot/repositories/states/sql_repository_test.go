package states

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/outlinebot/internal/bot/models"
	"github.com/dmitrijs2005/outlinebot/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewSQLRepository(db), mock, db
}

func TestGet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+chat_id,\s*user_id,\s*state,\s*data\s+FROM\s+conversation_states\s+WHERE\s+chat_id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2$`
	mock.ExpectQuery(q).WithArgs(int64(5), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"chat_id", "user_id", "state", "data"}).
			AddRow(int64(5), int64(7), "enter_ip", `{"server_name":"MyServer"}`))

	got, err := repo.Get(context.Background(), 5, 7)
	require.NoError(t, err)
	assert.Equal(t, "enter_ip", got.State)
	assert.JSONEq(t, `{"server_name":"MyServer"}`, string(got.Data))
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+conversation_states`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 5, 7)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSave_Upserts(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+conversation_states.*ON\s+CONFLICT\s*\(chat_id,\s*user_id\)\s*DO\s+UPDATE\s+SET\s+state\s*=\s*excluded\.state,\s*data\s*=\s*excluded\.data$`
	mock.ExpectExec(q).
		WithArgs(int64(5), int64(7), "enter_name", "{}").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(context.Background(), &models.Conversation{ChatID: 5, UserID: 7, State: "enter_name", Data: []byte("{}")})
	require.NoError(t, err)
}

func TestDelete_IgnoresMissing(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+conversation_states`).
		WithArgs(int64(5), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^DELETE\s+FROM\s+conversation_states`).
		WillReturnError(errors.New("db down"))

	require.NoError(t, repo.Delete(context.Background(), 5, 7))
	require.Error(t, repo.Delete(context.Background(), 5, 7))
}
