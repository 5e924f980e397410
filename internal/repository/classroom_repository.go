package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schoolyard-io/schoolyard-api/internal/models"
)

type classroomRow struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	SchoolID      string    `db:"school_id"`
	ScheduleDay   string    `db:"schedule_day"`
	ScheduleStart string    `db:"schedule_start"`
	ScheduleEnd   string    `db:"schedule_end"`
	CreatedAt     time.Time `db:"created_at"`
}

func (row classroomRow) toModel() models.Classroom {
	return models.Classroom{
		ID:       row.ID,
		Name:     row.Name,
		SchoolID: row.SchoolID,
		Schedule: models.Schedule{
			Day:       row.ScheduleDay,
			StartTime: row.ScheduleStart,
			EndTime:   row.ScheduleEnd,
		},
		CreatedAt: row.CreatedAt,
	}
}

const classroomColumns = `id, name, school_id, schedule_day, schedule_start, schedule_end, created_at`

// ClassroomRepository handles persistence of classrooms and per-classroom
// student membership.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs the repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// FindByID returns a classroom by its ID.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	query := fmt.Sprintf(`SELECT %s FROM classrooms WHERE id = $1`, classroomColumns)
	var row classroomRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	classroom := row.toModel()
	return &classroom, nil
}

// ListBySchool returns the classrooms under a school. When studentID is
// non-empty the result is narrowed to classrooms that student belongs to.
func (r *ClassroomRepository) ListBySchool(ctx context.Context, schoolID, studentID string) ([]models.Classroom, error) {
	query := fmt.Sprintf(`SELECT %s FROM classrooms WHERE school_id = $1 ORDER BY name`, classroomColumns)
	args := []interface{}{schoolID}
	if studentID != "" {
		query = fmt.Sprintf(`SELECT %s FROM classrooms c WHERE c.school_id = $1
        AND EXISTS (SELECT 1 FROM classroom_students cs WHERE cs.classroom_id = c.id AND cs.user_id = $2)
        ORDER BY name`, classroomColumns)
		args = append(args, studentID)
	}
	var rows []classroomRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	classrooms := make([]models.Classroom, 0, len(rows))
	for _, row := range rows {
		classrooms = append(classrooms, row.toModel())
	}
	return classrooms, nil
}

// Create persists a new classroom record.
func (r *ClassroomRepository) Create(ctx context.Context, classroom *models.Classroom) error {
	if classroom.ID == "" {
		classroom.ID = uuid.NewString()
	}
	if classroom.CreatedAt.IsZero() {
		classroom.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO classrooms (id, name, school_id, schedule_day, schedule_start, schedule_end, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query,
		classroom.ID, classroom.Name, classroom.SchoolID,
		classroom.Schedule.Day, classroom.Schedule.StartTime, classroom.Schedule.EndTime,
		classroom.CreatedAt,
	); err != nil {
		return fmt.Errorf("create classroom: %w", err)
	}
	return nil
}

// Delete removes a classroom and reports how many rows were removed.
func (r *ClassroomRepository) Delete(ctx context.Context, id string) (int64, error) {
	const query = `DELETE FROM classrooms WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("delete classroom: %w", err)
	}
	return res.RowsAffected()
}

// DeleteBySchoolID removes every classroom under a school. Zero matches is
// not an error: a school with no classrooms cascades cleanly.
func (r *ClassroomRepository) DeleteBySchoolID(ctx context.Context, schoolID string) error {
	const query = `DELETE FROM classrooms WHERE school_id = $1`
	if _, err := r.db.ExecContext(ctx, query, schoolID); err != nil {
		return fmt.Errorf("delete classrooms by school: %w", err)
	}
	return nil
}

// IsMember reports whether the student is enrolled in the classroom.
func (r *ClassroomRepository) IsMember(ctx context.Context, classroomID, userID string) (bool, error) {
	const query = `SELECT 1 FROM classroom_students WHERE classroom_id = $1 AND user_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, classroomID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("classroom membership check: %w", err)
	}
	return true, nil
}

// AddStudent inserts the student into the classroom's set with add-to-set
// semantics.
func (r *ClassroomRepository) AddStudent(ctx context.Context, classroomID, userID string) (int64, error) {
	const query = `INSERT INTO classroom_students (classroom_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, classroomID, userID)
	if err != nil {
		return 0, fmt.Errorf("add classroom student: %w", err)
	}
	return res.RowsAffected()
}

// RemoveStudent pulls the student from the classroom's set.
func (r *ClassroomRepository) RemoveStudent(ctx context.Context, classroomID, userID string) (int64, error) {
	const query = `DELETE FROM classroom_students WHERE classroom_id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, classroomID, userID)
	if err != nil {
		return 0, fmt.Errorf("remove classroom student: %w", err)
	}
	return res.RowsAffected()
}

// RemoveStudentEverywhere pulls the student from every classroom. Zero
// matches is not an error: a student enrolled in no classroom cascades
// cleanly.
func (r *ClassroomRepository) RemoveStudentEverywhere(ctx context.Context, userID string) error {
	const query = `DELETE FROM classroom_students WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("remove student from classrooms: %w", err)
	}
	return nil
}
