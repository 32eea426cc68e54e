package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// tokenRequest is the body of POST /auth/token.
type tokenRequest struct {
	// bcrypt ignores input past 72 bytes
	Password string `json:"password" validate:"required,max=72"`
}

// tokenResponse is returned on a successful password exchange.
type tokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleToken handles POST /auth/token
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.jwtService == nil {
		s.fail(w, ErrAuthNotConfigured)
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, &ErrValidation{Field: "body", Message: "invalid JSON"})
		return
	}
	if err := validate.Struct(req); err != nil {
		s.fail(w, &ErrValidation{Field: "password", Message: "password is required and at most 72 bytes"})
		return
	}

	if !s.passwords.VerifyPassword(req.Password, s.adminHash) {
		s.log.Warn().Str("client", s.extractClientID(r)).Msg("rejected admin password")
		s.fail(w, &ErrInvalidCredentials{})
		return
	}

	token, expiresAt, err := s.jwtService.GenerateToken(AdminSubject)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, tokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt.UTC(),
	})
}
