package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Job is a job posting as read by the engine.
type Job struct {
	ID              uuid.UUID `json:"id" yaml:"id"`
	EmployerID      uuid.UUID `json:"employer_id" yaml:"employer_id"`
	Title           string    `json:"title" yaml:"title"`
	CompanyName     string    `json:"company_name" yaml:"company_name"`
	Location        string    `json:"location,omitempty" yaml:"location"`
	EmploymentType  string    `json:"employment_type,omitempty" yaml:"employment_type"`
	ExperienceLevel string    `json:"experience_level,omitempty" yaml:"experience_level"`
	SalaryMin       *int      `json:"salary_min,omitempty" yaml:"salary_min"`
	SalaryMax       *int      `json:"salary_max,omitempty" yaml:"salary_max"`
	Description     string    `json:"description" yaml:"description"`
	Requirements    string    `json:"requirements,omitempty" yaml:"requirements"`
}

// Remote reports whether the posting allows remote work.
func (j *Job) Remote() bool {
	for _, s := range []string{j.Location, j.EmploymentType} {
		if strings.Contains(strings.ToLower(s), "remote") {
			return true
		}
	}
	return false
}

// Resume is the candidate's profile document.
type Resume struct {
	ID         uuid.UUID `json:"id" yaml:"id"`
	UserID     uuid.UUID `json:"user_id" yaml:"user_id"`
	Title      string    `json:"title" yaml:"title"`
	Location   string    `json:"location,omitempty" yaml:"location"`
	Skills     string    `json:"skills,omitempty" yaml:"skills"`
	Experience string    `json:"experience,omitempty" yaml:"experience"`
	Education  string    `json:"education,omitempty" yaml:"education"`
	Summary    string    `json:"summary,omitempty" yaml:"summary"`
}

// Application links a candidate and a resume to a job.
type Application struct {
	ID        uuid.UUID `json:"id"`
	JobID     uuid.UUID `json:"job_id"`
	ResumeID  uuid.UUID `json:"resume_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Candidate is the profile the Fit Analyzer evaluates.
type Candidate struct {
	Name       string `json:"name" yaml:"name"`
	Email      string `json:"email,omitempty" yaml:"email"`
	Phone      string `json:"phone,omitempty" yaml:"phone"`
	Location   string `json:"location,omitempty" yaml:"location"`
	Skills     string `json:"skills,omitempty" yaml:"skills"`
	Experience string `json:"experience,omitempty" yaml:"experience"`
	Education  string `json:"education,omitempty" yaml:"education"`
	Summary    string `json:"summary,omitempty" yaml:"summary"`
}

// NewCandidate combines the user account and resume into a profile.
func NewCandidate(u *User, r *Resume) Candidate {
	c := Candidate{}
	if u != nil {
		c.Name = u.FullName()
		c.Email = u.Email
		c.Phone = u.Phone
	}
	if r != nil {
		c.Location = r.Location
		c.Skills = r.Skills
		c.Experience = r.Experience
		c.Education = r.Education
		c.Summary = r.Summary
	}
	return c
}
