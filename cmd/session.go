package cmd

import (
	"fmt"
	"io"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/mqtt-tools/hivemq-tui/internal/browser"
	"github.com/mqtt-tools/hivemq-tui/internal/cache"
	"github.com/mqtt-tools/hivemq-tui/internal/config"
	"github.com/mqtt-tools/hivemq-tui/internal/hivemq"
	"github.com/mqtt-tools/hivemq-tui/pkg/logger"
)

// session holds what every browsing command needs: the resolved config, a
// logger, the REST client and the cache backend.
type session struct {
	cfg    config.Config
	log    *logger.Logger
	client *hivemq.Client
	match  cache.MatchOptions

	db      *cache.DB
	closers []func() error
}

// openSession resolves the configuration of cmd and connects the pieces.
// Logs go to logOut unless a log file is configured.
func openSession(cmd *cobra.Command, logOut io.Writer) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	match, err := matchOptions(cfg)
	if err != nil {
		return nil, err
	}
	log, closeLog, err := newLogger(cfg, logOut)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: log, match: match}
	s.closers = append(s.closers, closeLog)

	s.client, err = hivemq.NewClient(hivemq.ClientConfig{
		Endpoint: cfg.Endpoint,
		Token:    cfg.Token,
		Timeout:  cfg.Timeout.Duration,
		Insecure: cfg.Insecure,
		Logger:   log,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create HiveMQ client: %w", err)
	}

	if cfg.Cache.Backend == config.CacheSQLite {
		s.db, err = cache.OpenDB(cfg.Cache.Path)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, s.db.Close)
	}
	return s, nil
}

// store returns an empty cache for resource r.
func (s *session) store(r hivemq.Resource) (cache.Store, error) {
	if s.db == nil {
		return cache.NewMemory(), nil
	}
	return s.db.Collection(r.Name)
}

// controller builds the browser controller of r.
func (s *session) controller(r hivemq.Resource, opts ...browser.Option) (*browser.Controller, error) {
	store, err := s.store(r)
	if err != nil {
		return nil, err
	}
	base := []browser.Option{
		browser.WithFilterPath(r.FilterPath),
		browser.WithMatchOptions(s.match),
		browser.WithPageSize(s.cfg.PageSize),
		browser.WithClipboard(browser.ClipboardFunc(clipboard.WriteAll)),
		browser.WithTemplate(r.Template),
		browser.WithLogger(s.log),
	}
	return browser.NewController(r.Name, s.client.Ops(r), store, append(base, opts...)...), nil
}

// Close releases the cache and the log file, most recent first.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
	s.closers = nil
}
