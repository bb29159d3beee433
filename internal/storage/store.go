package storage

import (
	"context"
	"fmt"

	"github.com/kazesawa-dev/certtrack/internal/apperrors"
)

// Collection names. Each names one JSON document holding an array of records
// under a key of the same name, e.g. {"studyPlans": [...]}.
const (
	CollectionUsers          = "users"
	CollectionCertifications = "certifications"
	CollectionStudyPlans     = "studyPlans"
	CollectionAchievements   = "achievements"
	CollectionNotifications  = "notifications"
	CollectionSessions       = "sessions"
)

var collectionFiles = map[string]string{
	CollectionUsers:          "users.json",
	CollectionCertifications: "certifications.json",
	CollectionStudyPlans:     "study_plans.json",
	CollectionAchievements:   "achievements.json",
	CollectionNotifications:  "notifications.json",
	CollectionSessions:       "sessions.json",
}

// Collections lists every known collection name.
func Collections() []string {
	return []string{
		CollectionUsers,
		CollectionCertifications,
		CollectionStudyPlans,
		CollectionAchievements,
		CollectionNotifications,
		CollectionSessions,
	}
}

// FileFor maps a collection name to its file name.
func FileFor(collection string) (string, error) {
	file, ok := collectionFiles[collection]
	if !ok {
		return "", apperrors.Validationf("unknown collection %q", collection)
	}
	return file, nil
}

// Scaffold is the well-known empty value for a collection that has never
// been written.
func Scaffold(collection string) []byte {
	return []byte(fmt.Sprintf("{%q: []}", collection))
}

// Document is a collection snapshot paired with the revision it was read at.
// An empty revision means the collection has never been written.
type Document struct {
	Collection string
	Content    []byte
	Revision   string
}

// CollectionStore loads and saves whole named collections.
//
// Load on a missing collection returns the empty scaffold with an empty
// revision, never an error. Save takes the revision returned by the Load
// the caller mutated from; a backend with concurrency control rejects a
// stale revision with apperrors.ErrConflict, and the store never retries
// on the caller's behalf. I/O failures surface as apperrors.ErrStorageIO.
type CollectionStore interface {
	Load(ctx context.Context, collection string) (*Document, error)
	Save(ctx context.Context, collection string, content []byte, revision string) (string, error)
}
