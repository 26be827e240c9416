package main // Entry point package

import (
	"context"   // Cancellation of background workers
	"errors"    // Matching http.ErrServerClosed
	"log/slog"  // Structured logging
	"net"       // Listener type for BaseContext
	"net/http"  // Server errors
	"os"        // Process exit and stdout
	"os/signal" // Graceful shutdown on SIGINT/SIGTERM
	"syscall"   // Signal numbers
	"time"      // Shutdown deadline

	"github.com/joho/godotenv"                       // .env loading for local runs
	"github.com/labstack/echo/v4"                    // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // Request logging, recovery, CORS
	"github.com/redis/go-redis/v9"                   // Shared Redis client

	"github.com/iliyamo/airport-kiosk/internal/broadcast"  // Event fan-out
	"github.com/iliyamo/airport-kiosk/internal/clock"      // Wall clock
	"github.com/iliyamo/airport-kiosk/internal/config"     // Internal config loader
	"github.com/iliyamo/airport-kiosk/internal/database"   // MySQL connection and schema
	"github.com/iliyamo/airport-kiosk/internal/flightlock" // Per-flight mutual exclusion
	"github.com/iliyamo/airport-kiosk/internal/handler"    // HTTP handlers
	"github.com/iliyamo/airport-kiosk/internal/middleware" // Rate limit and response cache
	"github.com/iliyamo/airport-kiosk/internal/queue"      // RabbitMQ audit trail
	"github.com/iliyamo/airport-kiosk/internal/repository" // Stores
	"github.com/iliyamo/airport-kiosk/internal/router"     // Internal router setup
	"github.com/iliyamo/airport-kiosk/internal/seed"       // Fixture loading
	"github.com/iliyamo/airport-kiosk/internal/service"    // Kiosk engines
)

func main() {
	_ = godotenv.Load() // A missing .env is fine; the environment wins anyway
	cfg := config.Load() // Load environment config
	log := newLogger(cfg)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server: exiting", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	if cfg.Dev() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// stores is the storage side of the service, backed by either MySQL or
// the in-memory store.
type stores struct {
	seats    repository.SeatStore
	counters repository.CounterStore
	flights  repository.FlightStore
	bookings repository.BookingStore
	baggage  repository.BaggageStore
	tx       repository.Transactor
	sink     seed.Sink
	close    func()
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (*stores, error) {
	if cfg.StoreBackend != config.StoreMySQL {
		mem := repository.NewMemoryStore()
		log.Info("store: using in-memory store")
		return &stores{
			seats: mem, counters: mem, flights: mem, bookings: mem, baggage: mem, tx: mem,
			sink:  seed.MemorySink{Store: mem},
			close: func() {},
		}, nil
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, err
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("store: schema migrated")
	}
	flights := repository.NewFlightRepo(db)
	seats := repository.NewSeatRepo(db)
	bookings := repository.NewBookingRepo(db)
	log.Info("store: using mysql", "host", cfg.DBHost, "db", cfg.DBName)
	return &stores{
		seats: seats, counters: flights, flights: flights, bookings: bookings,
		baggage: repository.NewBaggageRepo(db), tx: repository.NewTxManager(db),
		sink:  seed.SQLSink{Flights: flights, Seats: seats, Bookings: bookings},
		close: func() { _ = db.Close() },
	}, nil
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	if cfg.SeedFile != "" {
		fx, err := seed.LoadFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(ctx, st.sink, fx, log); err != nil {
			return err
		}
	}

	// Redis is optional; without it locks and events stay in-process and
	// the HTTP middleware passes everything through.
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	needRedis := cfg.FlightLockBackend == config.BackendRedis || cfg.EventsBackend == config.BackendRedis
	if needRedis && rdb == nil {
		log.Warn("redis: unreachable, falling back to in-process locks and events")
	}

	var locks flightlock.Locker = flightlock.NewLocal()
	if cfg.FlightLockBackend == config.BackendRedis && rdb != nil {
		locks = flightlock.NewRedis(rdb, "kiosk:flightlock", cfg.FlightLockTTL, log)
		log.Info("flightlock: using redis", "ttl", cfg.FlightLockTTL)
	}

	hub := broadcast.NewHub(log)
	pub, closePub := buildPublisher(ctx, cfg, rdb, hub, log)
	defer closePub()

	seats := service.NewSeatService(service.SeatDeps{
		Seats: st.seats, Counters: st.counters, Flights: st.flights, Bookings: st.bookings,
		Tx: st.tx, Locks: locks, Publisher: pub, Clock: clock.Real(), Log: log,
		LockTTL: cfg.SeatLockTTL,
	})
	baggage := service.NewBaggageService(service.BaggageDeps{
		Baggage: st.baggage, Counters: st.counters, Tx: st.tx, Locks: locks,
		Publisher: pub, Clock: clock.Real(), Log: log,
	})
	bookings := service.NewBookingService(st.bookings, st.flights, st.seats)

	if cfg.LockSweepInterval > 0 {
		go service.NewSweeper(seats, cfg.LockSweepInterval, log).Run(ctx)
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info("http: request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "err", v.Error)
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	router.RegisterRoutes(e, router.Handlers{ // Register application routes
		Flights:  handler.NewFlightHandler(service.NewFlightService(st.flights)),
		Bookings: handler.NewBookingHandler(bookings),
		Seats:    handler.NewSeatHandler(seats, bookings),
		Baggage:  handler.NewBaggageHandler(baggage, bookings),
		Events:   handler.NewEventsHandler(hub, cfg.EventsBuffer, log),
	}, router.Middleware{
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	})

	// Request contexts derive from ctx so that open event streams end on shutdown.
	e.Server.BaseContext = func(net.Listener) context.Context { return ctx }

	addr := ":" + cfg.Port // Address string with port
	errc := make(chan error, 1)
	go func() {
		log.Info("server: listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreBackend)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// buildPublisher assembles the event path.  In redis mode the local hub
// is fed by the relay only, so every instance, this one included, sees
// each event exactly once.
func buildPublisher(ctx context.Context, cfg config.Config, rdb *redis.Client, hub *broadcast.Hub, log *slog.Logger) (broadcast.Publisher, func()) {
	var (
		pubs    broadcast.Multi
		asyncs  []*broadcast.Async
		closers []func() error
	)
	if cfg.EventsBackend == config.BackendRedis && rdb != nil {
		a := broadcast.NewAsync("redis", broadcast.NewRedisPublisher(rdb, log), cfg.EventsBuffer, log)
		asyncs = append(asyncs, a)
		pubs = append(pubs, a)
		go func() {
			if err := broadcast.RunRedisRelay(ctx, rdb, hub, log); err != nil && ctx.Err() == nil {
				log.Error("broadcast: redis relay stopped", "err", err)
			}
		}()
		log.Info("broadcast: using redis pub/sub")
	} else {
		pubs = append(pubs, hub)
	}

	if cfg.AMQPEnabled {
		p := queue.NewPublisher(cfg.RabbitMQURL, cfg.AMQPExchange, log)
		a := broadcast.NewAsync("amqp", p, cfg.EventsBuffer, log)
		asyncs = append(asyncs, a)
		closers = append(closers, p.Close)
		pubs = append(pubs, a)
		consumer := &queue.AuditConsumer{URL: cfg.RabbitMQURL, Exchange: cfg.AMQPExchange, LogDir: cfg.AuditLogDir, Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("queue: audit consumer stopped", "err", err)
			}
		}()
		log.Info("broadcast: auditing to rabbitmq", "exchange", cfg.AMQPExchange)
	}

	return pubs, func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, a := range asyncs {
			if err := a.Close(drainCtx); err != nil {
				log.Warn("broadcast: queue not drained", "err", err)
			}
			if n := a.Dropped(); n > 0 {
				log.Warn("broadcast: events dropped by full queue", "dropped", n)
			}
		}
		if n := hub.Dropped(); n > 0 {
			log.Warn("broadcast: events dropped for slow subscribers", "dropped", n)
		}
		for _, c := range closers {
			_ = c()
		}
	}
}
