package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"printhub/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

type MySQLProgramRepository struct {
	db *sql.DB
}

func NewMySQLProgramRepository(db *sql.DB) *MySQLProgramRepository {
	return &MySQLProgramRepository{db: db}
}

const programColumns = `id, machine_number, status, client, article_code, colors,
        progress, note, created_by, updated_by, version, created_at, updated_at`

func (r *MySQLProgramRepository) Insert(ctx context.Context, program *domain.Program) error {
	colors, err := marshalColors(program.Colors)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO programs (machine_number, status, client, article_code, colors,
            progress, note, created_by, updated_by, version, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	result, err := r.db.ExecContext(ctx, query,
		program.MachineNumber, string(program.Status), program.Client,
		program.ArticleCode, colors, program.Progress, program.Note,
		program.CreatedBy, program.UpdatedBy, program.Version,
		program.CreatedAt, program.UpdatedAt)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	program.ID = id
	return nil
}

func (r *MySQLProgramRepository) GetByID(ctx context.Context, id int64) (*domain.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE id = ?`

	program, err := scanProgram(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return program, nil
}

func (r *MySQLProgramRepository) ListAll(ctx context.Context) ([]*domain.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs ORDER BY machine_number, id`
	return r.queryPrograms(ctx, query)
}

func (r *MySQLProgramRepository) ListByMachine(ctx context.Context, machineNumber int) ([]*domain.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE machine_number = ? ORDER BY id`
	return r.queryPrograms(ctx, query, machineNumber)
}

func (r *MySQLProgramRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE status = ? AND updated_at < ? ORDER BY id`
	return r.queryPrograms(ctx, query, string(domain.StatusFinished), cutoff)
}

// Update writes the program only if the stored version still matches
// program.Version. The version bump makes concurrent writers on the same
// id serialize: the loser's WHERE clause matches nothing.
func (r *MySQLProgramRepository) Update(ctx context.Context, program *domain.Program) error {
	colors, err := marshalColors(program.Colors)
	if err != nil {
		return err
	}

	query := `
        UPDATE programs
        SET machine_number = ?, status = ?, client = ?, article_code = ?, colors = ?,
            progress = ?, note = ?, updated_by = ?, version = version + 1, updated_at = ?
        WHERE id = ? AND version = ?
    `
	result, err := r.db.ExecContext(ctx, query,
		program.MachineNumber, string(program.Status), program.Client,
		program.ArticleCode, colors, program.Progress, program.Note,
		program.UpdatedBy, program.UpdatedAt,
		program.ID, program.Version)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the row is gone or someone else bumped the version.
		var exists int
		err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM programs WHERE id = ?`, program.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		return domain.ErrConflict
	}

	program.Version++
	return nil
}

func (r *MySQLProgramRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM programs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MySQLProgramRepository) Statistics(ctx context.Context) (*domain.Statistics, error) {
	stats := &domain.Statistics{
		ByStatus:  make(map[domain.ProgramStatus]int64),
		Generated: time.Now(),
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM programs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[domain.ProgramStatus(status)] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT machine_number) FROM programs`).Scan(&stats.Machines)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *MySQLProgramRepository) queryPrograms(ctx context.Context, query string, args ...interface{}) ([]*domain.Program, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var programs []*domain.Program
	for rows.Next() {
		program, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, program)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return programs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProgram(row rowScanner) (*domain.Program, error) {
	var program domain.Program
	var status string
	var colors sql.NullString

	err := row.Scan(&program.ID, &program.MachineNumber, &status,
		&program.Client, &program.ArticleCode, &colors, &program.Progress,
		&program.Note, &program.CreatedBy, &program.UpdatedBy,
		&program.Version, &program.CreatedAt, &program.UpdatedAt)
	if err != nil {
		return nil, err
	}

	program.Status = domain.ProgramStatus(status)
	if colors.Valid && colors.String != "" {
		if err := json.Unmarshal([]byte(colors.String), &program.Colors); err != nil {
			return nil, err
		}
	}
	return &program, nil
}

func marshalColors(colors []string) (string, error) {
	if len(colors) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(colors)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
