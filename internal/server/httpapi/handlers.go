package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/userval/internal/common"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	OTP string `json:"otp"`
}

// handleAddUser registers a new account and triggers the first OTP email.
func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.WithMessage(common.ErrValidation, "invalid request body"))
		return
	}

	id, err := s.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Success: true,
		Message: fmt.Sprintf("Please go to your email at- %s and complete registration process", req.Email),
		Data:    id,
	})
}

// handleLogin authenticates a user. An unverified account receives a fresh
// OTP and a 401 carrying its id, so the client can route to verification.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.WithMessage(common.ErrValidation, "invalid request body"))
		return
	}

	result, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	if result.NeedsVerification {
		writeJSON(w, http.StatusUnauthorized, response{
			Success: false,
			Message: "You are not verified",
			Data:    result.UnverifiedUserID,
		})
		return
	}

	writeJSON(w, http.StatusOK, response{
		Success: true,
		Message: "LoggedIn successfully",
		Data:    result.User,
		Token:   result.Token,
	})
}

// handleVerifyUser redeems a submitted OTP for the user named in the query.
func (s *Server) handleVerifyUser(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.WithMessage(common.ErrValidation, "invalid request body"))
		return
	}

	user, token, err := s.users.VerifyOTP(r.Context(), id, req.OTP)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Success: true,
		Message: "OTP verified",
		Data:    user,
		Token:   token,
	})
}

// handleRegenerateOTP replaces any outstanding codes with a fresh one.
func (s *Server) handleRegenerateOTP(w http.ResponseWriter, r *http.Request) {
	email, err := s.users.RegenerateOTP(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Success: true,
		Message: fmt.Sprintf("Please go to your email at- %s and complete verification process", email),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Server is running"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, response{Success: false, Message: "Route not found!"})
}
