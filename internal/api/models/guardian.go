package models

// GuardianCreateRequest is the request body for POST /v1/me/guardians.
type GuardianCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Guardian is an emergency contact.
type Guardian struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt Timestamp `json:"createdAt"`
}

// GuardianList is the response for GET /v1/me/guardians.
type GuardianList struct {
	Items []Guardian `json:"items"`
}
