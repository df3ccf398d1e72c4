package dto

import "github.com/tutorbase/booking-api/internal/models"

// SubscriptionResponse is the wire shape of a recurring series plus its
// member sessions, ordered by scheduled time.
type SubscriptionResponse struct {
	ID                     string                       `json:"id"`
	TutorID                string                       `json:"tutor_id"`
	ParentID               string                       `json:"parent_id"`
	StudentName            string                       `json:"student_name"`
	Frequency              models.SubscriptionFrequency `json:"frequency"`
	TotalSessions          int                          `json:"total_sessions"`
	DefaultDurationMinutes int                          `json:"default_duration_minutes"`
	Status                 models.SubscriptionStatus    `json:"status"`
	CreatedAt              int64                        `json:"created_at"`
	UpdatedAt              int64                        `json:"updated_at"`
	Sessions               []SessionResponse            `json:"sessions,omitempty"`
}

// NewSubscriptionResponse converts a subscription and its series for the
// wire. Pass nil sessions to omit the series.
func NewSubscriptionResponse(sub models.Subscription, sessions []models.Session) SubscriptionResponse {
	resp := SubscriptionResponse{
		ID:                     sub.ID,
		TutorID:                sub.TutorID,
		ParentID:               sub.ParentID,
		StudentName:            sub.StudentName,
		Frequency:              sub.Frequency,
		TotalSessions:          sub.TotalSessions,
		DefaultDurationMinutes: sub.DefaultDurationMinutes,
		Status:                 sub.Status,
		CreatedAt:              sub.CreatedAt.UnixMilli(),
		UpdatedAt:              sub.UpdatedAt.UnixMilli(),
	}
	if sessions != nil {
		resp.Sessions = NewSessionResponses(sessions)
	}
	return resp
}
