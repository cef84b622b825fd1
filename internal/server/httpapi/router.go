// Package httpapi exposes the sync protocol over HTTP. Every call is a POST
// whose raw query string names the operation, e.g. "/?ping".
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/studiosync/internal/logging"
	"github.com/dmitrijs2005/studiosync/internal/server/models"
)

type Users interface {
	IssueToken(userName string) (string, error)
	Authenticate(token string) (string, error)
	Login(ctx context.Context, userName, passwordHash string) (string, error)
}

type Syncer interface {
	Sync(ctx context.Context, userName string, req models.SyncRequest) (models.SyncReply, error)
}

type Deps struct {
	Users   Users
	Sync    Syncer
	Version string
	Log     logging.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	h := &Handler{users: deps.Users, sync: deps.Sync, version: deps.Version, log: deps.Log}
	r.POST("/*path", h.Dispatch)

	return r
}
