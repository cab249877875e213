package store

import (
	"errors"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// Store is the write/read surface over the relational schema. Every mutation
// is idempotent: natural-key conflicts resolve through the database's native
// conflict clause, never through application locks.
type Store struct {
	db *gorm.DB
	// hot is the message-insert path with statement preparation enabled,
	// since the backfill pushes the same insert millions of times.
	hot *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{
		db:  db,
		hot: db.Session(&gorm.Session{PrepareStmt: true}),
	}
}

const mysqlErrForeignKey = 1452

func isForeignKeyErr(err error) bool {
	var me *gomysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlErrForeignKey
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint")
}
