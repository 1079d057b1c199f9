package domain

import "time"

// Profile is the canonical internal representation of a directory profile.
// Output shaping per caller context is done by the privacy package; this
// struct is never serialized directly to an external caller.
type Profile struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Skills       []string  `json:"skills"`
	Bio          string    `json:"bio"`
	AvailableFor []string  `json:"available_for"`
	IsPublic     bool      `json:"is_public"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RequestType enumerates what an appointment request is asking for.
type RequestType string

const (
	RequestTypeAppointment RequestType = "appointment"
	RequestTypeQuote       RequestType = "quote"
	RequestTypeMeeting     RequestType = "meeting"
)

// RequestStatus is the lifecycle state of an appointment request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusDeclined RequestStatus = "declined"
)

// AppointmentRequest is a contact request against a profile.
type AppointmentRequest struct {
	ID             string        `json:"id"`
	ProfileID      string        `json:"profile_id"`
	RequesterName  string        `json:"requester_name"`
	RequesterEmail string        `json:"requester_email"`
	Message        string        `json:"message"`
	PreferredTime  string        `json:"preferred_time,omitempty"`
	RequestType    RequestType   `json:"request_type"`
	Status         RequestStatus `json:"status"`
	SenderUserID   string        `json:"sender_user_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// User is an authenticated account. Profiles reference users by OwnerID.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidRequestType reports whether s is a recognized request type.
func ValidRequestType(s string) bool {
	switch RequestType(s) {
	case RequestTypeAppointment, RequestTypeQuote, RequestTypeMeeting:
		return true
	}
	return false
}

// ValidRequestStatus reports whether s is a recognized request status.
func ValidRequestStatus(s string) bool {
	switch RequestStatus(s) {
	case RequestStatusPending, RequestStatusAccepted, RequestStatusDeclined:
		return true
	}
	return false
}
