package journal

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mpengine/mpcore/pkg/mpconfig"
)

func TestOpenWithEmptyTypeIsDisabled(t *testing.T) {
	j, err := Open(mpconfig.JournalConfig{})
	require.NoError(t, err)
	assert.Nil(t, j)
}

func TestOpenRejectsUnknownType(t *testing.T) {
	_, err := Open(mpconfig.JournalConfig{Type: "mongo"})
	require.Error(t, err)
}

func TestRecordRunOnNilJournalIsNoop(t *testing.T) {
	var j *Journal
	j.RecordRun(context.Background(), EvaluationRun{ID: "x"})
	require.NoError(t, j.Close())
}

func TestSqliteJournalRecordsAndReads(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(mpconfig.JournalConfig{Type: "sqlite", DSN: dir + "/journal.db"})
	require.NoError(t, err)
	require.NotNil(t, j)
	defer j.Close()

	j.RecordRun(context.Background(), EvaluationRun{
		ID: "run-1", Base: "Dec", PrecisionDigits: 20, NodeCount: 3, UnitCount: 2,
		DurationMillis: 5, Success: true,
	})

	var got EvaluationRun
	require.NoError(t, j.db.First(&got, "id = ?", "run-1").Error)
	assert.Equal(t, "Dec", got.Base)
	assert.True(t, got.Success)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestMysqlDialectorGeneratesExpectedInsert(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	j := &Journal{db: db}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `evaluation_runs`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	j.RecordRun(context.Background(), EvaluationRun{ID: "run-2", Base: "Hex"})
	require.NoError(t, mock.ExpectationsWereMet())
}
