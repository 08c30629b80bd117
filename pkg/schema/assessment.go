package schema

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentMode tells which modality produced an assessment.
type AssessmentMode string

const (
	ModeSymptom  AssessmentMode = "symptom"
	ModeProtocol AssessmentMode = "protocol"
)

// Assessment is an accepted triage outcome. It is immutable once created
// except for SyncedAt, which the server stamps on first ingest.
type Assessment struct {
	ID             string            `json:"id"`
	PatientName    string            `json:"patientName,omitempty"`
	AssessmentDate string            `json:"assessmentDate,omitempty"`
	Date           time.Time         `json:"date"`
	Mode           AssessmentMode    `json:"mode,omitempty"`
	ProtocolID     string            `json:"protocolId,omitempty"`
	Symptoms       []string          `json:"symptoms"`
	Answers        map[string]string `json:"answers,omitempty"`
	Result         *TriageResult     `json:"result,omitempty"`
	SavedBy        string            `json:"savedBy,omitempty"`
	SyncedAt       *time.Time        `json:"syncedAt,omitempty"`
}

// NewAssessmentID returns a client-generated id: a mode prefix (A for
// symptom, P for protocol) followed by a time-ordered UUIDv7.
func NewAssessmentID(mode AssessmentMode) string {
	prefix := "A"
	if mode == ModeProtocol {
		prefix = "P"
	}
	return prefix + uuid.Must(uuid.NewV7()).String()
}
