package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"example.com/cadeado/internal/auth"
	"example.com/cadeado/internal/config"
	"example.com/cadeado/internal/game"
	"example.com/cadeado/internal/httpapi"
	"example.com/cadeado/internal/migrate"
	"example.com/cadeado/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg config.Config
	log *slog.Logger

	db  *pgxpool.Pool
	rdb *redis.Client

	srv   *http.Server
	maint *Maintenance
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	if cfg.Postgres.RunMigrations {
		if err := migrate.Up(cfg.Postgres.URL, log); err != nil {
			return nil, err
		}
	}

	// --- Postgres ---
	dbpool, err := pgxpool.New(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})

	// fail fast when a backend is unreachable
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := dbpool.Ping(pingCtx); err != nil {
		dbpool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		dbpool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping (%s db=%d): %w", cfg.Redis.Addr, cfg.Redis.DB, err)
	}

	authSvc := auth.NewService([]byte(cfg.Auth.Secret))

	users := store.NewUserStore(dbpool)
	stats := store.NewStatsStore(dbpool)

	authH := &httpapi.AuthHandler{
		Users:    users,
		Stats:    stats,
		Auth:     authSvc,
		TokenTTL: cfg.Auth.TokenTTL,
		Log:      log.With("component", "auth"),
	}

	// --- Game ---
	matchSvc := game.NewMatchService(
		game.Config{Rules: cfg.Game},
		game.NewRedisMatchStore(rdb, cfg.Redis.MatchTTL),
		game.NewRedisBroker(rdb, log.With("component", "broker")),
		stats,
		log.With("component", "matches"),
	)
	gameSrv := game.NewServer(matchSvc, authSvc, log.With("component", "gateway"))

	a := &App{cfg: cfg, log: log, db: dbpool, rdb: rdb}
	a.srv = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newHandler(cfg, gameSrv, authH, authSvc, a.health),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	if cfg.Maintenance.PruneInterval > 0 {
		a.maint, err = NewMaintenance(ctx, matchSvc, cfg.Maintenance.PruneInterval, log.With("component", "maintenance"))
		if err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
	}
	return a, nil
}

// newHandler assembles all routes behind the CORS layer.
func newHandler(cfg config.Config, gameSrv *game.Server, authH *httpapi.AuthHandler, verifier httpapi.TokenVerifier, health http.HandlerFunc) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", health)

	gameSrv.RegisterRoutes(mux)
	authH.Routes(mux, httpapi.AuthMiddleware(verifier))

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.Origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(mux)
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, body := http.StatusOK, "ok"
	if err := a.db.Ping(ctx); err != nil {
		status, body = http.StatusServiceUnavailable, "postgres unavailable"
	} else if err := a.rdb.Ping(ctx).Err(); err != nil {
		status, body = http.StatusServiceUnavailable, "redis unavailable"
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr)

	g.Go(func() error {
		err := a.srv.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	if a.maint != nil {
		a.maint.Start()
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.log.Info("http server shutting down")
		return a.srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if cerr := a.Close(context.Background()); cerr != nil {
		a.log.Warn("close resources", "err", cerr)
	}
	return err
}

// Close releases the scheduler and both connection pools.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.maint != nil {
		errs = append(errs, a.maint.Stop())
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	return errors.Join(errs...)
}
