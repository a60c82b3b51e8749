package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-arena/internal/challenge"
	"github.com/pixil98/go-arena/internal/driver"
	"github.com/pixil98/go-arena/internal/game"
	"github.com/pixil98/go-arena/internal/listener"
	"github.com/pixil98/go-arena/internal/messaging"
	"github.com/pixil98/go-arena/internal/metrics"
	"github.com/pixil98/go-arena/internal/player"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	logger, closeLog, err := cfg.Log.buildLogger()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	slog.SetDefault(logger)

	// Persistent data
	profiles, err := cfg.Storage.Profiles.buildProfiles()
	if err != nil {
		return nil, fmt.Errorf("creating profile store: %w", err)
	}
	catalog, err := cfg.Storage.Combatants.buildCatalog()
	if err != nil {
		return nil, fmt.Errorf("creating combatant catalog: %w", err)
	}
	slog.Info("loaded combatant catalog", "combatants", catalog.Len())

	// Message bus
	bus, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	reg := metrics.NewRegistry()
	world := game.NewWorldState(game.WithUpdateInterval(cfg.Listener.updateInterval()))
	router := messaging.NewRouter(bus, world)

	battles, err := cfg.Combat.buildManager(router, reg)
	if err != nil {
		return nil, fmt.Errorf("creating combat manager: %w", err)
	}

	coordinator := challenge.NewCoordinator(world, router, profiles, catalog, battles,
		challenge.WithOfferTTL(cfg.Challenge.offerTTL()),
		challenge.WithMetrics(reg),
	)

	pm := player.NewPlayerManager(
		world,
		cfg.Auth.buildVerifier(profiles),
		profiles,
		bus,
		router,
		coordinator,
		battles,
		player.WithAuthTimeout(cfg.Listener.authTimeout()),
		player.WithMap(cfg.mapName()),
		player.WithMetrics(reg),
	)

	cm := listener.NewConnectionManager(pm)
	ws := cfg.Listener.buildListener(cm, bus.Ready(), reg)

	// Setup the arena driver
	d := driver.NewDriver([]driver.Manager{
		coordinator,
	}, driver.WithInterval(cfg.tickInterval()))

	return service.WorkerList{
		"nats":     bus,
		"combat":   battles,
		"driver":   d,
		"listener": ws,
		"log":      &logCloser{close: closeLog},
	}, nil
}

// logCloser flushes the log outputs on shutdown.
type logCloser struct {
	close func() error
}

func (l *logCloser) Start(ctx context.Context) error {
	<-ctx.Done()
	return l.close()
}
