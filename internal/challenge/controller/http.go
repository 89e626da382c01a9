// Package controller exposes the challenge ceremony stages as HTTP hooks for
// the identity provider.
package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medeez/gate/internal/challenge/domain"
	"github.com/medeez/gate/internal/challenge/service"
)

type Controller struct {
	creator    *service.Creator
	postAuth   *service.PostAuth
	sessionCap int
}

func New(creator *service.Creator, postAuth *service.PostAuth, sessionCap int) *Controller {
	if sessionCap <= 0 {
		sessionCap = service.DefaultSessionCap
	}
	return &Controller{creator: creator, postAuth: postAuth, sessionCap: sessionCap}
}

func (h *Controller) Register(g *echo.Group) {
	g.POST("/define-auth-challenge", h.defineAuthChallenge)
	g.POST("/create-auth-challenge", h.createAuthChallenge)
	g.POST("/verify-auth-challenge", h.verifyAuthChallenge)
	g.POST("/post-authentication", h.postAuthentication)
}

type callerContext struct {
	SourceIP string `json:"sourceIp"`
	ClientID string `json:"clientId"`
}

type defineReq struct {
	Session        []domain.Attempt  `json:"session"`
	UserAttributes domain.Attributes `json:"userAttributes" validate:"required"`
	ChallengeName  string            `json:"challengeName"`
}

func (h *Controller) defineAuthChallenge(c echo.Context) error {
	var req defineReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	decision := service.DecideNextChallenge(req.Session, req.UserAttributes, req.ChallengeName, h.sessionCap)
	return c.JSON(http.StatusOK, decision)
}

type createReq struct {
	UserAttributes domain.Attributes `json:"userAttributes" validate:"required"`
	ChallengeName  string            `json:"challengeName"`
}

func (h *Controller) createAuthChallenge(c echo.Context) error {
	var req createReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	// Only the custom challenge needs state; anything else passes through.
	if req.ChallengeName != "" && req.ChallengeName != domain.ChallengeCustom {
		return c.JSON(http.StatusOK, domain.CreateResult{})
	}
	res, err := h.creator.CreateChallenge(c.Request().Context(), req.UserAttributes)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "challenge creation failed"})
	}
	return c.JSON(http.StatusOK, res)
}

type verifyResp struct {
	AnswerCorrect bool `json:"answerCorrect"`
}

func (h *Controller) verifyAuthChallenge(c echo.Context) error {
	var req domain.VerifyInput
	if err := c.Bind(&req); err != nil {
		// An unreadable payload is an incorrect answer, never an error.
		return c.JSON(http.StatusOK, verifyResp{AnswerCorrect: false})
	}
	return c.JSON(http.StatusOK, verifyResp{AnswerCorrect: service.VerifyResponse(req)})
}

type postAuthReq struct {
	UserAttributes domain.Attributes `json:"userAttributes" validate:"required"`
	CallerContext  callerContext     `json:"callerContext"`
	UserAgent      string            `json:"userAgent"`
}

func (h *Controller) postAuthentication(c echo.Context) error {
	var req postAuthReq
	if err := c.Bind(&req); err != nil {
		// Telemetry only; never block the login flow.
		return c.NoContent(http.StatusNoContent)
	}
	h.postAuth.PostAuthentication(c.Request().Context(), domain.PostAuthInput{
		UserID:    req.UserAttributes.Sub(),
		Email:     req.UserAttributes.Email(),
		ClinicID:  req.UserAttributes.ClinicID(),
		Role:      req.UserAttributes.Role(),
		SourceIP:  req.CallerContext.SourceIP,
		UserAgent: req.UserAgent,
		ClientID:  req.CallerContext.ClientID,
	})
	return c.NoContent(http.StatusNoContent)
}
