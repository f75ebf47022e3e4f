package db

import (
	"context"
	"fmt"

	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/google/uuid"
)

// GetApplication returns an application, or nil when it does not exist.
func (db *DB) GetApplication(ctx context.Context, id uuid.UUID) (*types.Application, error) {
	var a types.Application
	err := db.pool.QueryRow(ctx,
		`SELECT id, job_id, resume_id, user_id, created_at FROM applications WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.JobID, &a.ResumeID, &a.UserID, &a.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return &a, nil
}

// ListApplicationsByJob returns the applications of a job, oldest first.
func (db *DB) ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]types.Application, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, job_id, resume_id, user_id, created_at
		 FROM applications WHERE job_id = $1
		 ORDER BY created_at, id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	apps := []types.Application{}
	for rows.Next() {
		var a types.Application
		if err := rows.Scan(&a.ID, &a.JobID, &a.ResumeID, &a.UserID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// GetJob returns a job posting, or nil when it does not exist.
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	var j types.Job
	err := db.pool.QueryRow(ctx,
		`SELECT id, employer_id, title, company_name, location, employment_type, experience_level,
		        salary_min, salary_max, description, requirements
		 FROM jobs WHERE id = $1`,
		id,
	).Scan(&j.ID, &j.EmployerID, &j.Title, &j.CompanyName, &j.Location, &j.EmploymentType, &j.ExperienceLevel,
		&j.SalaryMin, &j.SalaryMax, &j.Description, &j.Requirements)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &j, nil
}

// CreateJob inserts a job posting and assigns its ID when unset.
func (db *DB) CreateJob(ctx context.Context, j *types.Job) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO jobs (id, employer_id, title, company_name, location, employment_type, experience_level,
		                   salary_min, salary_max, description, requirements)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		j.ID, j.EmployerID, j.Title, j.CompanyName, j.Location, j.EmploymentType, j.ExperienceLevel,
		j.SalaryMin, j.SalaryMax, j.Description, j.Requirements,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetResume returns a resume, or nil when it does not exist.
func (db *DB) GetResume(ctx context.Context, id uuid.UUID) (*types.Resume, error) {
	var r types.Resume
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, title, location, skills, experience, education, summary
		 FROM resumes WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.UserID, &r.Title, &r.Location, &r.Skills, &r.Experience, &r.Education, &r.Summary)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resume: %w", err)
	}
	return &r, nil
}

// CreateResume inserts a resume and assigns its ID when unset.
func (db *DB) CreateResume(ctx context.Context, r *types.Resume) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO resumes (id, user_id, title, location, skills, experience, education, summary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.UserID, r.Title, r.Location, r.Skills, r.Experience, r.Education, r.Summary,
	)
	if err != nil {
		return fmt.Errorf("failed to create resume: %w", err)
	}
	return nil
}

// DeleteResume removes a resume. Applications referencing it are kept.
func (db *DB) DeleteResume(ctx context.Context, id uuid.UUID) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM resumes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete resume: %w", err)
	}
	return nil
}

// CreateApplication inserts an application and assigns its ID when unset.
func (db *DB) CreateApplication(ctx context.Context, a *types.Application) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO applications (id, job_id, resume_id, user_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		a.ID, a.JobID, a.ResumeID, a.UserID,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}
