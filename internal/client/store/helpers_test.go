package store

import (
	"github.com/dmitrijs2005/studiosync/internal/client/models"
	"github.com/dmitrijs2005/studiosync/internal/dbx"
)

var serverConfigFixture = models.ServerConfig{Address: "studio.example/api/", UseSSL: true, UpdateDelay: 2, Timeout: 3000}

func wrapForTest(query string, err error) error {
	return dbx.WrapQuery(query, err)
}
