// Package controller exposes the pre-authentication and pre-signup gates as
// HTTP hooks for the identity provider.
package controller

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medeez/gate/internal/accounts/domain"
	"github.com/medeez/gate/internal/accounts/service"
	"github.com/medeez/gate/internal/platform/validation"
)

type Controller struct {
	preAuth   *service.PreAuth
	preSignup *service.PreSignup
}

func New(preAuth *service.PreAuth, preSignup *service.PreSignup) *Controller {
	return &Controller{preAuth: preAuth, preSignup: preSignup}
}

func (h *Controller) Register(g *echo.Group) {
	g.POST("/pre-authentication", h.preAuthentication)
	g.POST("/pre-signup", h.preSignUp)
}

type denialBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func deny(c echo.Context, status int, code, message string) error {
	return c.JSON(status, denialBody{
		Error:     code,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

type preAuthReq struct {
	UserAttributes map[string]string `json:"userAttributes" validate:"required"`
	CallerContext  struct {
		SourceIP string `json:"sourceIp"`
		ClientID string `json:"clientId"`
	} `json:"callerContext"`
}

type preAuthResp struct {
	Allowed bool `json:"allowed"`
}

func (h *Controller) preAuthentication(c echo.Context) error {
	var req preAuthReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}

	err := h.preAuth.Check(c.Request().Context(), service.PreAuthInput{
		UserID:   req.UserAttributes["sub"],
		Email:    req.UserAttributes["email"],
		ClinicID: req.UserAttributes["custom:clinicId"],
		SourceIP: req.CallerContext.SourceIP,
		ClientID: req.CallerContext.ClientID,
	})
	if err != nil {
		if d := domain.AsDenial(err); d != nil {
			return deny(c, http.StatusForbidden, string(d.Code), d.Message)
		}
		// Internal failure: fail closed without leaking the cause.
		return deny(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Authentication failed")
	}
	return c.JSON(http.StatusOK, preAuthResp{Allowed: true})
}

type preSignupReq struct {
	UserAttributes struct {
		Email string `json:"email" validate:"required"`
	} `json:"userAttributes"`
	ValidationData struct {
		InvitationCode string `json:"invitationCode"`
	} `json:"validationData"`
}

type preSignupResp struct {
	Allowed         bool `json:"allowed"`
	AutoConfirmUser bool `json:"autoConfirmUser"`
	AutoVerifyEmail bool `json:"autoVerifyEmail"`
}

func (h *Controller) preSignUp(c echo.Context) error {
	var req preSignupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}

	res, err := h.preSignup.Check(c.Request().Context(),
		req.UserAttributes.Email, req.ValidationData.InvitationCode)
	if err != nil {
		if d := domain.AsDenial(err); d != nil {
			return deny(c, http.StatusForbidden, string(d.Code), d.Message)
		}
		return deny(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Registration failed")
	}
	return c.JSON(http.StatusOK, preSignupResp{
		Allowed:         true,
		AutoConfirmUser: res.AutoConfirmUser,
		AutoVerifyEmail: res.AutoVerifyEmail,
	})
}
