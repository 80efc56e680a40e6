// Package models defines the data model shared by the discovery, application
// and persistence layers: job records, application attempts and the
// applicant profile.
package models

import (
	"fmt"
	"time"

	"github.com/avolkovs/applybot/internal/common"
)

// Status is the lifecycle state of a JobRecord.
type Status string

const (
	// StatusNew is assigned when a job is first discovered.
	StatusNew Status = "new"
	// StatusQueued means the job was selected for application this run.
	StatusQueued Status = "queued"
	// StatusApplying means an application flow is in progress.
	StatusApplying Status = "applying"
	// StatusApplied is terminal: the application was submitted.
	StatusApplied Status = "applied"
	// StatusFailed is terminal for the attempt: the flow could not complete.
	StatusFailed Status = "failed"
	// StatusSkipped is terminal: the site reported an existing application
	// or the posting had no apply affordance.
	StatusSkipped Status = "skipped"
)

// legalTransitions enumerates the allowed status graph:
// new -> queued -> applying -> {applied, failed, skipped}.
var legalTransitions = map[Status][]Status{
	StatusNew:      {StatusQueued},
	StatusQueued:   {StatusApplying},
	StatusApplying: {StatusApplied, StatusFailed, StatusSkipped},
}

// CanTransition reports whether moving from one status to another is legal.
// A no-op transition (same status) is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// JobRecord is one discovered job posting. URL is the unique key; title,
// company and URL are immutable once set, only Status and UpdatedAt change.
type JobRecord struct {
	// ID is the store-assigned surrogate key.
	ID int64

	// Title is the posting title as shown on the result card.
	Title string

	// Company is the hiring company name.
	Company string

	// Location is the posting's location string (may be "Remote").
	Location string

	// Description is the posting body; empty until (and unless) fetched.
	Description string

	// URL uniquely identifies the posting across runs.
	URL string

	// Status is the record's lifecycle state.
	Status Status

	// DiscoveredAt is when the record was first extracted, in UTC.
	DiscoveredAt time.Time

	// UpdatedAt is the last status change time, in UTC.
	UpdatedAt time.Time
}

// Transition mutates Status after validating the move against the legal set.
func (j *JobRecord) Transition(to Status) error {
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("%w: %s -> %s (%s)", common.ErrIllegalTransition, j.Status, to, j.URL)
	}
	j.Status = to
	j.UpdatedAt = time.Now().UTC()
	return nil
}
