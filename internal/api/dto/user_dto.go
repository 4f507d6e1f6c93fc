package dto

// UserRequest payload for create and update.
type UserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserResponse is the user representation.
type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
