package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/studiosync/internal/common"
	"github.com/dmitrijs2005/studiosync/internal/logging"
	"github.com/dmitrijs2005/studiosync/internal/server/models"
)

const (
	msgUnknownQuery   = "Unknown query."
	msgBadCredentials = "Invalid username or password."
	msgNotLoggedIn    = "You are not logged in."
	msgSessionExpired = "Your session has expired."
	msgLoggedOut      = "Logged out."
	msgServerError    = "Server error."
)

type Handler struct {
	users   Users
	sync    Syncer
	version string
	log     logging.Logger
}

type pingContent struct {
	Version string `json:"version"`
}

// Dispatch routes a call by its raw query string. Application level
// failures are reported inside a 200 reply; only undecodable bodies get an
// HTTP error.
func (h *Handler) Dispatch(c *gin.Context) {
	req, err := parseRequest(c)
	if err != nil {
		h.log.Warn(c, "bad request", "query", c.Request.URL.RawQuery, "error", err)
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	switch req.Query {
	case common.QueryPing:
		h.ping(c, req)
	case common.QueryLogin:
		h.login(c, req)
	case common.QuerySync:
		h.syncRound(c, req)
	case common.QueryLogout:
		h.logout(c, req)
	default:
		c.JSON(http.StatusOK, reply{Query: req.Query, Message: msgUnknownQuery})
	}
}

// ping keeps a valid session alive by re-issuing its token. Callers without
// one get an anonymous token.
func (h *Handler) ping(c *gin.Context, req *request) {
	userName, err := h.users.Authenticate(req.Token)
	if err != nil {
		userName = ""
	}

	token, err := h.users.IssueToken(userName)
	if err != nil {
		h.log.Error(c, "issuing token", "error", err)
		c.JSON(http.StatusOK, reply{Query: common.QueryPing, Message: msgServerError, Accepted: true})
		return
	}

	c.JSON(http.StatusOK, reply{
		Query:    common.QueryPing,
		Success:  true,
		Accepted: true,
		Token:    token,
		Content:  pingContent{Version: h.version},
	})
}

func (h *Handler) login(c *gin.Context, req *request) {
	userName := req.field("username")

	token, err := h.users.Login(c.Request.Context(), userName, req.field("password"))
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			h.log.Info(c, "login refused", "user", userName)
			c.JSON(http.StatusOK, reply{Query: common.QueryLogin, Message: msgBadCredentials, Accepted: true})
			return
		}
		h.log.Error(c, "login failed", "user", userName, "error", err)
		c.JSON(http.StatusOK, reply{Query: common.QueryLogin, Message: msgServerError, Accepted: true})
		return
	}

	h.log.Info(c, "logged in", "user", userName, "client", req.Version)
	c.JSON(http.StatusOK, reply{Query: common.QueryLogin, Success: true, Accepted: true, Token: token})
}

func (h *Handler) syncRound(c *gin.Context, req *request) {
	userName, err := h.users.Authenticate(req.Token)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			c.JSON(http.StatusOK, reply{Query: common.QuerySync, Message: msgNotLoggedIn, Accepted: true})
			return
		}
		c.JSON(http.StatusOK, reply{Query: common.QueryLoggedOut, Message: msgSessionExpired, Accepted: true})
		return
	}

	var in models.SyncRequest
	if err := req.decode(&in); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.sync.Sync(c.Request.Context(), userName, in)
	if err != nil {
		h.log.Error(c, "sync failed", "user", userName, "error", err)
		c.JSON(http.StatusOK, reply{Query: common.QuerySync, Message: msgServerError, Accepted: true})
		return
	}

	c.JSON(http.StatusOK, reply{Query: common.QuerySync, Success: true, Accepted: true, Content: out})
}

// logout is stateless: the client drops its token on the loggedout reply.
func (h *Handler) logout(c *gin.Context, req *request) {
	if userName, err := h.users.Authenticate(req.Token); err == nil {
		h.log.Info(c, "logged out", "user", userName)
	}
	c.JSON(http.StatusOK, reply{Query: common.QueryLoggedOut, Message: msgLoggedOut, Success: true, Accepted: true})
}
