package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	tokendomain "github.com/learnsprout/sproutlink/internal/token/domain"
)

func (s *Server) ValidateToken(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		AbortWithError(c, newValidationError("token", "required", "token is required"))
		return
	}

	resp, err := s.tokenSvc.Validate(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type CompleteRegistrationRequest struct {
	Token string `json:"token"`
	UID   string `json:"uid"`
	Email string `json:"email"`
}

func (s *Server) CompleteRegistration(c *gin.Context) {
	var req CompleteRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var missing []ValidationError
	if strings.TrimSpace(req.Token) == "" {
		missing = append(missing, ValidationError{Field: "token", Code: "required", Message: "token is required"})
	}
	if strings.TrimSpace(req.UID) == "" {
		missing = append(missing, ValidationError{Field: "uid", Code: "required", Message: "uid is required"})
	}
	if strings.TrimSpace(req.Email) == "" {
		missing = append(missing, ValidationError{Field: "email", Code: "required", Message: "email is required"})
	}
	if len(missing) > 0 {
		AbortWithError(c, &ValidationErrors{Errors: missing})
		return
	}

	err := s.tokenSvc.Complete(c.Request.Context(), tokendomain.CompleteRequest{
		Token: strings.TrimSpace(req.Token),
		UID:   strings.TrimSpace(req.UID),
		Email: strings.TrimSpace(req.Email),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
