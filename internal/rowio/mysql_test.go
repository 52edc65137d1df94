package rowio

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLSource_Rows_DefaultQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT \\* FROM `patient`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "arm", "age"}).
			AddRow("1", "treatment", "41").
			AddRow("2", "control", "57"))

	source := NewMySQLSource(db, []string{"patient"}, nil)
	cur, err := source.Rows("patient")
	require.NoError(t, err)
	defer cur.Close()

	ctx := context.Background()
	var rows []Row
	for {
		row, ok, err := cur.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		rows = append(rows, row)
	}

	require.Len(t, rows, 2)
	assert.Equal(t, "treatment", rows[0]["arm"])
	assert.Equal(t, "57", rows[1]["age"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSource_Rows_CustomQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, arm FROM patient WHERE arm = 'treatment'").
		WillReturnRows(sqlmock.NewRows([]string{"id", "arm"}).AddRow("1", "treatment"))

	source := NewMySQLSource(db, []string{"patient"}, map[string]string{
		"patient": "SELECT id, arm FROM patient WHERE arm = 'treatment'",
	})
	cur, err := source.Rows("patient")
	require.NoError(t, err)
	defer cur.Close()

	row, ok, err := cur.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "treatment", row["arm"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSource_Tables(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	source := NewMySQLSource(db, []string{"patient", "visit"}, nil)
	tables, err := source.Tables()
	require.NoError(t, err)
	assert.Equal(t, []string{"patient", "visit"}, tables)
}

func TestMySQLSink_WriteAndClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `patient`").WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	sink := NewMySQLSink(db, 10)
	require.NoError(t, sink.Write(context.Background(), "patient", Row{"id": "1", "arm": "treatment"}))
	require.NoError(t, sink.Write(context.Background(), "patient", Row{"id": "2", "arm": "control"}))
	require.NoError(t, sink.Close("patient"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSink_Close_NoPendingRows(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sink := NewMySQLSink(db, 10)
	assert.NoError(t, sink.Close("patient"))
}

func TestMySQLSink_Close_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `patient`").WillReturnError(sql.ErrTxDone)
	mock.ExpectRollback()

	sink := NewMySQLSink(db, 10)
	require.NoError(t, sink.Write(context.Background(), "patient", Row{"id": "1"}))
	assert.Error(t, sink.Close("patient"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSink_Discard(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sink := NewMySQLSink(db, 10)
	require.NoError(t, sink.Write(context.Background(), "patient", Row{"id": "1"}))
	sink.Discard("patient")
	assert.NoError(t, sink.Close("patient"))
}
