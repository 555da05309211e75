// Package cli implements the interactive terminal client for the
// validation server.
package cli

import (
	"bufio"
	"os"

	"github.com/dmitrijs2005/userval/internal/client/api"
	"github.com/dmitrijs2005/userval/internal/client/config"
	"github.com/dmitrijs2005/userval/internal/server/models"
)

// App holds the CLI state. The session (user and token) lives in memory
// only and is gone when the process exits, matching the behavior of the
// browser client this tool replaces.
type App struct {
	config *config.Config
	api    *api.Client
	reader *bufio.Reader

	// in-memory session
	user  *models.User
	token string

	// id of an account awaiting verification, set after register or an
	// unverified login
	pendingUserID string
}

func NewApp(c *config.Config) (*App, error) {
	return &App{
		config: c,
		api:    api.NewClient(c.ServerURL),
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) Run() {
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(a, a.status, scanner)
}

func (a *App) status() string {
	switch {
	case a.isLoggedIn():
		return a.user.Email
	case a.pendingUserID != "":
		return "awaiting verification"
	default:
		return "not logged in"
	}
}
