package memstore

import (
	"strings"
	"time"

	"github.com/Rauan228/HackNU2/internal/types"
	"github.com/google/uuid"
)

// Fixture is one employer, one job, one candidate and their application.
type Fixture struct {
	Employer    types.User
	Candidate   types.User
	Job         types.Job
	Resume      types.Resume
	Application types.Application
}

// NewFixture builds the records behind a job and a candidate profile. Zero
// IDs on job are replaced with fresh ones.
func NewFixture(job types.Job, c types.Candidate) Fixture {
	employer := types.User{ID: uuid.New(), FirstName: "Hiring", LastName: "Manager", Email: "employer@example.com", Role: types.RoleEmployer}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.EmployerID == uuid.Nil {
		job.EmployerID = employer.ID
	} else {
		employer.ID = job.EmployerID
	}

	first, last, _ := strings.Cut(strings.TrimSpace(c.Name), " ")
	candidate := types.User{
		ID:        uuid.New(),
		FirstName: first,
		LastName:  last,
		Email:     c.Email,
		Phone:     c.Phone,
		Role:      types.RoleCandidate,
	}
	resume := types.Resume{
		ID:         uuid.New(),
		UserID:     candidate.ID,
		Title:      job.Title,
		Location:   c.Location,
		Skills:     c.Skills,
		Experience: c.Experience,
		Education:  c.Education,
		Summary:    c.Summary,
	}
	app := types.Application{
		ID:        uuid.New(),
		JobID:     job.ID,
		ResumeID:  resume.ID,
		UserID:    candidate.ID,
		CreatedAt: time.Now().UTC(),
	}
	return Fixture{Employer: employer, Candidate: candidate, Job: job, Resume: resume, Application: app}
}

// Seed stores every record of f.
func (s *Store) Seed(f Fixture) {
	s.PutUser(f.Employer)
	s.PutUser(f.Candidate)
	s.PutJob(f.Job)
	s.PutResume(f.Resume)
	s.PutApplication(f.Application)
}
