package progress

import (
	"time"
)

// SummaryLog tracks a learner's overall progress on one content item.
type SummaryLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ContentID string    `json:"content_id"`
	ChannelID string    `json:"channel_id"`
	Kind      string    `json:"kind"`
	Progress  float64   `json:"progress"`
	StartTime time.Time `json:"start_timestamp"`
	EndTime   time.Time `json:"end_timestamp"`
}

// Completed reports whether the learner has fully completed the content.
func (s *SummaryLog) Completed() bool {
	return s.Progress >= 1.0
}

// Interaction is one entry of an attempt's interaction history.
type Interaction struct {
	Type    string   `json:"type"`
	Correct *float64 `json:"correct,omitempty"`
}

// Failed reports whether the interaction was recorded as incorrect.
func (i Interaction) Failed() bool {
	return i.Correct != nil && *i.Correct == 0
}

// AttemptLog records one attempt at an exercise item.
type AttemptLog struct {
	ID                 string        `json:"id"`
	UserID             string        `json:"user_id"`
	MasteryLogID       string        `json:"masterylog_id"`
	ItemID             string        `json:"item"`
	Correct            float64       `json:"correct"`
	InteractionHistory []Interaction `json:"interaction_history"`
}

// ExamLog tracks a learner's progress through one exam.
type ExamLog struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	ExamID string `json:"exam_id"`
	Closed bool   `json:"closed"`
}

// CountFailed returns the number of failed interactions across attempts.
func CountFailed(attempts []*AttemptLog) int {
	failed := 0
	for _, a := range attempts {
		for _, i := range a.InteractionHistory {
			if i.Failed() {
				failed++
			}
		}
	}
	return failed
}
