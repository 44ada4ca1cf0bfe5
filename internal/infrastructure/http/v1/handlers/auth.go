package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"melowms/internal/core/apperror"
	appctx "melowms/internal/core/context"
	"melowms/internal/domain/auth"
	"melowms/internal/infrastructure/http/v1/dto"
)

// Auth handles login and account registration.
type Auth struct {
	auth *auth.Service
}

// NewAuth creates the auth handler.
func NewAuth(authSvc *auth.Service) *Auth {
	return &Auth{auth: authSvc}
}

// Login handles POST /auth/login.
func (h *Auth) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewValidation(err.Error()))
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		UserID:      session.UserID,
		AccessToken: session.AccessToken,
		ExpiresAt:   session.ExpiresAt,
		Name:        session.User.Name,
		Company:     session.User.Company,
		Branch:      session.User.Branch,
		Roles:       session.User.Roles,
	})
}

// Register handles POST /companies/:companyId/users. New accounts always
// land in the caller's company.
func (h *Auth) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.NewValidation(err.Error()))
		return
	}

	user := appctx.GetUser(c.Request.Context())
	if user == nil {
		_ = c.Error(apperror.NewUnauthorized("authentication required"))
		return
	}

	userID, err := h.auth.Register(c.Request.Context(), auth.RegisterInput{
		Email:     req.Email,
		Name:      req.Name,
		Password:  req.Password,
		CompanyID: c.Param("companyId"),
		BranchID:  req.BranchID,
		Roles:     req.Roles,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.IDResponse{ID: userID})
}
