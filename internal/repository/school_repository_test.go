package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schoolRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "name", "address_street", "address_city", "address_state", "address_country",
		"contact_email", "contact_phone", "contact_website", "created_at",
	})
	for _, id := range ids {
		rows.AddRow(id, "School "+id, "1 Main St", "Springfield", "IL", "US",
			"office@example.com", "555-0100", "https://example.com", time.Now())
	}
	return rows
}

func TestSchoolFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM schools WHERE id`).
		WithArgs("s1").
		WillReturnRows(schoolRows("s1"))

	school, err := repo.FindByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", school.ID)
	assert.Equal(t, "Springfield", school.Address.City)
	assert.Equal(t, "office@example.com", school.ContactInfo.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolListAll(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM schools ORDER BY name`).
		WillReturnRows(schoolRows("s1", "s2"))

	schools, err := repo.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, schools, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolListScopedToAdmin(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM schools s\s+WHERE EXISTS \(SELECT 1 FROM school_admins`).
		WithArgs("admin-1").
		WillReturnRows(schoolRows("s1"))

	schools, err := repo.List(context.Background(), "admin-1")
	require.NoError(t, err)
	assert.Len(t, schools, 1)
	assert.Equal(t, "s1", schools[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolFindByStudentAbsent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM schools s\s+WHERE EXISTS \(SELECT 1 FROM school_students`).
		WithArgs("stu-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByStudent(context.Background(), "stu-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolExistsChecks(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM school_admins WHERE school_id = $1 AND user_id = $2 LIMIT 1`)).
		WithArgs("s1", "admin-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM school_students WHERE school_id = $1 AND user_id = $2 LIMIT 1`)).
		WithArgs("s1", "stu-1").
		WillReturnError(sql.ErrNoRows)

	isAdmin, err := repo.ExistsWithAdmin(context.Background(), "s1", "admin-1")
	require.NoError(t, err)
	assert.True(t, isAdmin)

	isStudent, err := repo.ExistsWithStudent(context.Background(), "s1", "stu-1")
	require.NoError(t, err)
	assert.False(t, isStudent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolAddAdminAlreadyPresent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectExec(`INSERT INTO school_admins`).
		WithArgs("s1", "admin-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows, err := repo.AddAdmin(context.Background(), "s1", "admin-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRemoveStudentByUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM school_students WHERE user_id = $1`)).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows, err := repo.RemoveStudentByUser(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolListStudentIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id FROM school_students WHERE school_id = $1`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("stu-1").AddRow("stu-2"))

	ids, err := repo.ListStudentIDs(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"stu-1", "stu-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
