package models

// ApplicantProfile is the read-only applicant input supplied once per run.
// The application flow reads it to populate recognized form fields and to
// give the answer generator context; it never mutates the profile.
type ApplicantProfile struct {
	Name            string
	Email           string
	Phone           string
	ExperienceYears int

	// Experience is free-text background handed to the answer generator as
	// context for screening questions.
	Experience string

	// ResumePath is the local path of the resume file to attach when an
	// upload control is present.
	ResumePath string
}
