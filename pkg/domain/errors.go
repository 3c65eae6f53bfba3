package domain

import "fmt"

// NotFoundError reports a referenced uid that does not exist, or exists but
// not in the requested version or status. It always surfaces to the caller.
type NotFoundError struct {
	Entity EntityType
	UID    string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.UID)
}

// BusinessLogicError reports an illegal state transition or an illegal
// combination of inputs. The message is meant for end users.
type BusinessLogicError struct {
	Msg string
}

func (e BusinessLogicError) Error() string { return e.Msg }

// VersioningError reports an attempted mutation against a released or
// locked study.
type VersioningError struct {
	StudyUID string
	Status   StudyStatus
}

func (e VersioningError) Error() string {
	return fmt.Sprintf("study %s is %s; selections cannot be added, edited, or reordered", e.StudyUID, e.Status)
}

// ForbiddenError reports a duplicate selection under a uniqueness
// constraint, e.g. one design cell per arm and epoch pair.
type ForbiddenError struct {
	Msg string
}

func (e ForbiddenError) Error() string { return e.Msg }

// ConcurrentModificationError reports a stale revision token: another
// writer committed between this aggregate's load and its save.
type ConcurrentModificationError struct {
	StudyUID string
	Expected int64
	Actual   int64
}

func (e ConcurrentModificationError) Error() string {
	return fmt.Sprintf("study %s was modified concurrently (revision %d, expected %d)", e.StudyUID, e.Actual, e.Expected)
}
