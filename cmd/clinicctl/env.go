package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ariefcatur/clinic-orders/internal/clinicapi"
	"github.com/ariefcatur/clinic-orders/internal/config"
	"github.com/ariefcatur/clinic-orders/internal/logging"
	"github.com/ariefcatur/clinic-orders/internal/session"
)

// env is what every command needs before it talks to the API or the database.
type env struct {
	cfg         *config.Config
	log         zerolog.Logger
	apiURL      string
	sessionPath string
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load("clinicctl")
	if err != nil {
		return nil, err
	}
	e := &env{
		cfg:    cfg,
		log:    logging.New(cfg.Env, cfg.LogLevel, cfg.ServiceName).Output(zerolog.ConsoleWriter{Out: os.Stderr}),
		apiURL: cfg.APIBaseURL,
	}
	if v, _ := cmd.Flags().GetString("api"); v != "" {
		e.apiURL = v
	}
	e.sessionPath, _ = cmd.Flags().GetString("session")
	if e.sessionPath == "" {
		if e.sessionPath, err = session.DefaultPath(); err != nil {
			return nil, fmt.Errorf("session path: %w", err)
		}
	}
	return e, nil
}

// authorized loads the stored session, checks it against roles and returns a
// client carrying its token.
func (e *env) authorized(roles ...session.Role) (*clinicapi.Client, *session.Session, error) {
	s, err := session.Load(e.sessionPath)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Require(time.Now(), roles...); err != nil {
		return nil, nil, fmt.Errorf("%w (run clinicctl login)", err)
	}
	return clinicapi.New(e.apiURL, clinicapi.WithToken(s.Token)), s, nil
}
