// Package dto defines the request and response payloads for the v1 API.
package dto

// RegisterResponse is the payload for a successful registration.
type RegisterResponse struct {
	Message     string `json:"message"`
	UserID      int64  `json:"user_id"`
	EmbeddingID int64  `json:"embedding_id"`
}

// VerifyResponse is the payload for a verification attempt.
type VerifyResponse struct {
	Matched    bool    `json:"matched"`
	UserID     string  `json:"user_id,omitempty"`
	Similarity float64 `json:"similarity"`
}

// NearMatch is one entry in the ranked near-match listing.
type NearMatch struct {
	UserID     string  `json:"user_id"`
	Similarity float64 `json:"similarity"`
}

// FrameVerifyResponse extends VerifyResponse with the data an interactive
// client needs to render near-misses.
type FrameVerifyResponse struct {
	Matched     bool        `json:"matched"`
	FaceFound   bool        `json:"face_found"`
	UserID      string      `json:"user_id,omitempty"`
	Similarity  float64     `json:"similarity"`
	Threshold   float64     `json:"threshold"`
	NearMatches []NearMatch `json:"near_matches"`
}

// UsersResponse lists the registered user IDs.
type UsersResponse struct {
	Users []int64 `json:"users"`
	Count int     `json:"count"`
}

// DeleteUserResponse confirms a user deletion.
type DeleteUserResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}
