package domain

import "time"

// RequestStatus is the lifecycle state of a mentorship request.
type RequestStatus string

const (
	StatusPending   RequestStatus = "PENDING"
	StatusAccepted  RequestStatus = "ACCEPTED"
	StatusRejected  RequestStatus = "REJECTED" // mentor declines, or either party ends early
	StatusCancelled RequestStatus = "CANCELLED"
	StatusCompleted RequestStatus = "COMPLETED"
)

// Terminal reports whether no further transition is possible.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle permits moving from s to t.
//
//	PENDING  -> ACCEPTED | REJECTED | CANCELLED
//	ACCEPTED -> REJECTED | COMPLETED
func (s RequestStatus) CanTransition(t RequestStatus) bool {
	switch s {
	case StatusPending:
		return t == StatusAccepted || t == StatusRejected || t == StatusCancelled
	case StatusAccepted:
		return t == StatusRejected || t == StatusCompleted
	}
	return false
}

// MentorshipRequest tracks one mentee-to-mentor request.
// MenteeID and MentorID are immutable after creation; Status,
// RejectionReason and the mentor's CurrentMentees are mutated only by the
// RequestRepository transitions.
type MentorshipRequest struct {
	ID              string
	MenteeID        string
	MentorID        string
	Status          RequestStatus
	Message         string
	RejectionReason string
	RequestedAt     time.Time
	AcceptedAt      *time.Time
	CompletedAt     *time.Time
	UpdatedAt       time.Time
}
