// Package app wires config into a running todo backend.
package app

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/idilsaglam/tada/internal/config"
	"github.com/idilsaglam/tada/internal/conn"
	"github.com/idilsaglam/tada/internal/kv"
	"github.com/idilsaglam/tada/internal/mockapi"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/notify"
	"github.com/idilsaglam/tada/internal/remote"
	"github.com/idilsaglam/tada/internal/store"
	"github.com/idilsaglam/tada/internal/store/jsonstore"
)

// App holds the process-wide pieces. Exactly one Store is active; which
// one is a config choice.
type App struct {
	Config   *config.Config
	Log      *log.Logger
	KV       *kv.Dir
	Gate     *conn.Gate
	Mock     *mockapi.State
	Handler  http.Handler
	Registry *prometheus.Registry
	Store    store.Store

	notifier *switchNotifier
}

// New builds an App. Notices raised by the store go to whatever SetNotifier
// last installed; until then they are dropped.
func New(cfg *config.Config, logger *log.Logger) (*App, error) {
	dir, err := kv.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open data dir: %w", err)
	}

	ids := model.NewIDClock(nil)
	a := &App{
		Config:   cfg,
		Log:      logger,
		KV:       dir,
		Gate:     conn.NewGate(dir),
		Mock:     mockapi.NewState(ids),
		Registry: prometheus.NewRegistry(),
		notifier: &switchNotifier{to: notify.Discard},
	}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Handler = mockapi.NewHandler(a.Mock, mockapi.Options{
		Logger:     logger.WithPrefix("mockapi"),
		Registerer: a.Registry,
	})
	a.Gate.OnClear(a.Mock.Reset)

	switch cfg.Backend {
	case config.BackendRemote:
		hc := mockapi.NewClient(a.Handler)
		if cfg.APIBaseURL != "" {
			hc = &http.Client{}
		}
		a.Store = remote.New(hc, cfg.APIBaseURL, a.Gate, a.notifier, logger.WithPrefix("remote"))
	default:
		s, err := jsonstore.New(dir, ids, logger.WithPrefix("store"))
		if err != nil {
			return nil, err
		}
		a.Store = s
	}
	logger.Debug("backend ready", "backend", cfg.Backend, "data_dir", cfg.DataDir)
	return a, nil
}

// SetNotifier routes store notices to n.
func (a *App) SetNotifier(n notify.Notifier) { a.notifier.set(n) }

// Notifier is the notifier the store reports through.
func (a *App) Notifier() notify.Notifier { return a.notifier }

// Remote reports whether the active store goes through the API.
func (a *App) Remote() bool { return a.Config.Backend == config.BackendRemote }

type switchNotifier struct {
	to notify.Notifier
}

func (s *switchNotifier) set(n notify.Notifier) {
	if n == nil {
		n = notify.Discard
	}
	s.to = n
}

func (s *switchNotifier) Notify(n notify.Notice) { s.to.Notify(n) }
