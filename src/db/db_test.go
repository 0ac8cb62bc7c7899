package db

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestNewMockDBServesQueriesFromTheMock(t *testing.T) {
	gormDB, mock, err := NewMockDB()
	assert.Nil(t, err)

	mock.ExpectQuery(`SELECT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))

	var n int
	assert.Nil(t, gormDB.Raw("SELECT 1").Scan(&n).Error)
	assert.Equal(t, 1, n)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestNewDBSwapsTheSingleton(t *testing.T) {
	gormDB, _, err := NewMockDB()
	assert.Nil(t, err)

	NewDB(gormDB)

	assert.Equal(t, gormDB, GetDb())
	assert.Equal(t, "postgres", GetDb().Name())
}
