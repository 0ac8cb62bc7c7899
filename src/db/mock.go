package db

import (
	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewMockDB builds a gorm handle on top of a sqlmock connection for tests. The
// mock has to be handed to the dialector as Conn: a ConnPool set on gorm.Config
// is replaced during dialector initialization, which would dial the DSN and
// route every query past the mock.
func NewMockDB() (*gorm.DB, sqlmock.Sqlmock, error) {
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		return nil, nil, err
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 mockDb,
		PreferSimpleProtocol: true,
	}), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, nil, err
	}
	return gormDB, mock, nil
}
