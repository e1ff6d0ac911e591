package db

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: dmas.code")))
	assert.True(t, IsDuplicateKeyErr(errors.New(`ERROR: duplicate key value violates unique constraint "ux_group_plan"`)))
	assert.False(t, IsDuplicateKeyErr(errors.New("syntax error")))
}

func TestIsUnavailableErr(t *testing.T) {
	assert.False(t, IsUnavailableErr(nil))
	assert.True(t, IsUnavailableErr(fmt.Errorf("load plans: %w", driver.ErrBadConn)))
	assert.True(t, IsUnavailableErr(sql.ErrConnDone))
	assert.True(t, IsUnavailableErr(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}))
	assert.True(t, IsUnavailableErr(errors.New("sql: database is closed")))
	assert.False(t, IsUnavailableErr(gorm.ErrRecordNotFound))
}
