package commands

import "encoding/json"

// CreateUserCommand asks the users context to create an account. Password is
// plaintext; the handler hashes it. ID is optional and, when supplied by the
// publisher, makes redelivery idempotent.
type CreateUserCommand struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UnmarshalJSON also accepts the id under "user_id", the key older
// producers use. "id" wins when both are present.
func (c *CreateUserCommand) UnmarshalJSON(data []byte) error {
	type plain CreateUserCommand
	var aux struct {
		plain
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*c = CreateUserCommand(aux.plain)
	if c.ID == "" {
		c.ID = aux.UserID
	}
	return nil
}

type LoginCommand struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// OTP is accepted but not checked.
	OTP string `json:"otp,omitempty"`
}

// RevokeTokenCommand asks the auth context to delete an issued token. The
// gateway fills both fields from the caller's own bearer token.
type RevokeTokenCommand struct {
	TokenID string `json:"token_id"`
	UserID  string `json:"user_id"`
}
