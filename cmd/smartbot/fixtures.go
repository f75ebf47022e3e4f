package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Rauan228/HackNU2/internal/types"
	"gopkg.in/yaml.v3"
)

// loadYAML decodes a single YAML document from path, rejecting unknown keys.
func loadYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s is empty", path)
		}
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// loadJob reads a job posting fixture. Title and description are required.
func loadJob(path string) (types.Job, error) {
	var job types.Job
	if err := loadYAML(path, &job); err != nil {
		return job, err
	}
	if strings.TrimSpace(job.Title) == "" || strings.TrimSpace(job.Description) == "" {
		return job, fmt.Errorf("%s: job title and description are required", path)
	}
	return job, nil
}

// loadCandidate reads a candidate profile fixture. The name is required.
func loadCandidate(path string) (types.Candidate, error) {
	var c types.Candidate
	if err := loadYAML(path, &c); err != nil {
		return c, err
	}
	if strings.TrimSpace(c.Name) == "" {
		return c, fmt.Errorf("%s: candidate name is required", path)
	}
	return c, nil
}

// sampleJob and sampleCandidate are used by demo when no fixtures are given.
func sampleJob() types.Job {
	salary := 900000
	return types.Job{
		Title:           "Backend Developer (Go)",
		CompanyName:     "Steppe Logistics",
		Location:        "Almaty",
		EmploymentType:  "full-time",
		ExperienceLevel: "middle",
		SalaryMin:       &salary,
		Description:     "Build and run the services behind our delivery tracking platform.",
		Requirements:    "3+ years of Go, PostgreSQL, message queues, a degree in computer science or similar.",
	}
}

func sampleCandidate() types.Candidate {
	return types.Candidate{
		Name:       "Aigerim Sadykova",
		Email:      "aigerim@example.com",
		Location:   "Astana",
		Skills:     "Go, PostgreSQL, Docker, Kafka",
		Experience: "4 years building payment services in Go",
		Summary:    "Backend engineer focused on reliable distributed systems.",
	}
}
