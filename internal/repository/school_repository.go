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

type schoolRow struct {
	ID             string    `db:"id"`
	Name           string    `db:"name"`
	AddressStreet  string    `db:"address_street"`
	AddressCity    string    `db:"address_city"`
	AddressState   string    `db:"address_state"`
	AddressCountry string    `db:"address_country"`
	ContactEmail   string    `db:"contact_email"`
	ContactPhone   string    `db:"contact_phone"`
	ContactWebsite string    `db:"contact_website"`
	CreatedAt      time.Time `db:"created_at"`
}

func (row schoolRow) toModel() models.School {
	return models.School{
		ID:   row.ID,
		Name: row.Name,
		Address: models.Address{
			Street:  row.AddressStreet,
			City:    row.AddressCity,
			State:   row.AddressState,
			Country: row.AddressCountry,
		},
		ContactInfo: models.ContactInfo{
			Email:   row.ContactEmail,
			Phone:   row.ContactPhone,
			Website: row.ContactWebsite,
		},
		CreatedAt: row.CreatedAt,
	}
}

const schoolColumns = `id, name, address_street, address_city, address_state, address_country,
        contact_email, contact_phone, contact_website, created_at`

// SchoolRepository handles persistence of schools and their admin/student
// membership sets.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// FindByID returns a school by its ID.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	query := fmt.Sprintf(`SELECT %s FROM schools WHERE id = $1`, schoolColumns)
	var row schoolRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	school := row.toModel()
	return &school, nil
}

// List returns all schools, or only the schools administered by adminID when
// it is non-empty.
func (r *SchoolRepository) List(ctx context.Context, adminID string) ([]models.School, error) {
	query := fmt.Sprintf(`SELECT %s FROM schools ORDER BY name`, schoolColumns)
	args := []interface{}{}
	if adminID != "" {
		query = fmt.Sprintf(`SELECT %s FROM schools s
        WHERE EXISTS (SELECT 1 FROM school_admins sa WHERE sa.school_id = s.id AND sa.user_id = $1)
        ORDER BY name`, schoolColumns)
		args = append(args, adminID)
	}
	var rows []schoolRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	schools := make([]models.School, 0, len(rows))
	for _, row := range rows {
		schools = append(schools, row.toModel())
	}
	return schools, nil
}

// Create persists a new school record.
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	if school.CreatedAt.IsZero() {
		school.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO schools (id, name, address_street, address_city, address_state, address_country,
        contact_email, contact_phone, contact_website, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := r.db.ExecContext(ctx, query,
		school.ID, school.Name,
		school.Address.Street, school.Address.City, school.Address.State, school.Address.Country,
		school.ContactInfo.Email, school.ContactInfo.Phone, school.ContactInfo.Website,
		school.CreatedAt,
	); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// Delete removes a school row and reports how many rows were removed. The
// membership join tables cascade at the schema level; dependent classrooms
// and student users are removed by the service-layer cascade.
func (r *SchoolRepository) Delete(ctx context.Context, id string) (int64, error) {
	const query = `DELETE FROM schools WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("delete school: %w", err)
	}
	return res.RowsAffected()
}

// Exists reports whether a school with the given id exists.
func (r *SchoolRepository) Exists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM schools WHERE id = $1 LIMIT 1`, id)
}

// ExistsWithAdmin reports whether the school exists and lists userID among
// its admins.
func (r *SchoolRepository) ExistsWithAdmin(ctx context.Context, schoolID, userID string) (bool, error) {
	const query = `SELECT 1 FROM school_admins WHERE school_id = $1 AND user_id = $2 LIMIT 1`
	return r.exists(ctx, query, schoolID, userID)
}

// ExistsWithStudent reports whether the school exists and lists userID among
// its students.
func (r *SchoolRepository) ExistsWithStudent(ctx context.Context, schoolID, userID string) (bool, error) {
	const query = `SELECT 1 FROM school_students WHERE school_id = $1 AND user_id = $2 LIMIT 1`
	return r.exists(ctx, query, schoolID, userID)
}

// FindByStudent resolves the school whose student roster contains studentID.
// The model allows a student to belong to at most one school.
func (r *SchoolRepository) FindByStudent(ctx context.Context, studentID string) (*models.School, error) {
	query := fmt.Sprintf(`SELECT %s FROM schools s
        WHERE EXISTS (SELECT 1 FROM school_students ss WHERE ss.school_id = s.id AND ss.user_id = $1)
        LIMIT 1`, schoolColumns)
	var row schoolRow
	if err := r.db.GetContext(ctx, &row, query, studentID); err != nil {
		return nil, err
	}
	school := row.toModel()
	return &school, nil
}

// IsAdmin reports whether userID administers the school.
func (r *SchoolRepository) IsAdmin(ctx context.Context, schoolID, userID string) (bool, error) {
	return r.ExistsWithAdmin(ctx, schoolID, userID)
}

// ListStudentIDs returns the ids in the school's student roster.
func (r *SchoolRepository) ListStudentIDs(ctx context.Context, schoolID string) ([]string, error) {
	const query = `SELECT user_id FROM school_students WHERE school_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, schoolID); err != nil {
		return nil, fmt.Errorf("list school students: %w", err)
	}
	return ids, nil
}

// AddAdmin inserts userID into the school's admin set. The insert has
// add-to-set semantics: enrolling an id that is already present touches zero
// rows.
func (r *SchoolRepository) AddAdmin(ctx context.Context, schoolID, userID string) (int64, error) {
	const query = `INSERT INTO school_admins (school_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, schoolID, userID)
	if err != nil {
		return 0, fmt.Errorf("add school admin: %w", err)
	}
	return res.RowsAffected()
}

// RemoveAdmin pulls userID from the school's admin set.
func (r *SchoolRepository) RemoveAdmin(ctx context.Context, schoolID, userID string) (int64, error) {
	const query = `DELETE FROM school_admins WHERE school_id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, schoolID, userID)
	if err != nil {
		return 0, fmt.Errorf("remove school admin: %w", err)
	}
	return res.RowsAffected()
}

// AddStudent inserts userID into the school's student roster with add-to-set
// semantics.
func (r *SchoolRepository) AddStudent(ctx context.Context, schoolID, userID string) (int64, error) {
	const query = `INSERT INTO school_students (school_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, schoolID, userID)
	if err != nil {
		return 0, fmt.Errorf("add school student: %w", err)
	}
	return res.RowsAffected()
}

// RemoveStudentByUser pulls the student from whichever school enrolled it.
func (r *SchoolRepository) RemoveStudentByUser(ctx context.Context, userID string) (int64, error) {
	const query = `DELETE FROM school_students WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("remove school student: %w", err)
	}
	return res.RowsAffected()
}

func (r *SchoolRepository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("school existence check: %w", err)
	}
	return true, nil
}
