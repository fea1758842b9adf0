package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/erazemk/depot/internal/api"
	"github.com/erazemk/depot/internal/assignment"
	"github.com/erazemk/depot/internal/blob"
	"github.com/erazemk/depot/internal/config"
	"github.com/erazemk/depot/internal/db"
	"github.com/erazemk/depot/internal/identity"
	"github.com/erazemk/depot/internal/model"
	"github.com/erazemk/depot/internal/store"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("depot", flag.ContinueOnError)

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")

	fs.StringVar(&cfg.AdminEmail, "admin", cfg.AdminEmail, "")
	fs.StringVar(&cfg.AdminEmail, "u", cfg.AdminEmail, "")

	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	fs.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")

	fs.DurationVar(&cfg.PendingTTL, "pending-ttl", cfg.PendingTTL, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: depot [flags]

Flags:
  -d, -db <path>          SQLite database path (default: depot.sqlite3, env DEPOT_DB)
  -a, -addr <host:port>   listen address (default: :8080, env DEPOT_ADDR)
  -u, -admin <email>      admin email on first run (default: admin@depot.local, env DEPOT_ADMIN_EMAIL)
  -l, -log <path>         log file path (default: no file, env DEPOT_LOG)
  -pending-ttl <dur>      expire pending assignments after this long (default: never, env DEPOT_PENDING_TTL)
  -h, -help               show this help and exit

Other settings are read from the environment or a .env file:
  DEPOT_SWEEP_INTERVAL, DEPOT_TOKEN_TTL, DEPOT_SIGNIN_RATE, DEPOT_MAX_UPLOAD
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		database, password, err := initDatabase(cfg.DBPath, cfg.AdminEmail)
		if err != nil {
			slog.Error("failed to initialize database", "error", err)
			os.Exit(1)
		}
		database.Close()

		printInitResult(cfg.DBPath, cfg.AdminEmail, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	slog.Info("database ready", "path", cfg.DBPath)

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(context.Background(), database)
	if err != nil {
		slog.Error("failed to get JWT secret", "error", err)
		os.Exit(1)
	}

	idp := identity.New(database, jwtSecret, cfg.TokenTTL)
	identity.MirrorUsers(idp)

	svc := assignment.New(database, &blob.Store{DB: database}, idp)
	svc.MaxImageBytes = cfg.MaxUpload

	limiter := api.NewRateLimiter(cfg.SignInRate)
	apiRouter := api.NewRouter(idp, svc, api.Options{
		SignInLimiter: limiter,
		MaxUpload:     cfg.MaxUpload,
	})

	handler := api.LoggingMiddleware(apiRouter)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background work stops with the server.
	bgCtx, stopBackground := context.WithCancel(context.Background())
	var bg sync.WaitGroup

	bg.Add(3)
	go func() {
		defer bg.Done()
		svc.RunExpiry(bgCtx, cfg.PendingTTL, cfg.SweepInterval)
	}()
	go func() {
		defer bg.Done()
		housekeeping(bgCtx, database, limiter, cfg.SweepInterval)
	}()
	go func() {
		defer bg.Done()
		logSessions(bgCtx, idp)
	}()

	if cfg.PendingTTL > 0 {
		slog.Info("pending assignment expiry enabled", "ttl", cfg.PendingTTL, "interval", cfg.SweepInterval)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		stopBackground()
		bg.Wait()
		os.Exit(1)
	}

	stopBackground()
	bg.Wait()
	slog.Info("server stopped, closing database")
}

// housekeeping purges expired revoked tokens and idle rate-limit entries.
func housekeeping(ctx context.Context, database *sql.DB, limiter *api.RateLimiter, every time.Duration) {
	if every <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeRevokedTokens(ctx, database, now)
			if err != nil && ctx.Err() == nil {
				slog.Error("failed to purge revoked tokens", "error", err)
			} else if n > 0 {
				slog.Info("purged revoked tokens", "count", n)
			}
			if limiter != nil {
				limiter.Prune(now.Add(-10 * time.Minute))
			}
		}
	}
}

// logSessions writes session changes to the log until ctx is done.
func logSessions(ctx context.Context, idp *identity.Provider) {
	events, cancel := idp.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			slog.Info("session changed", "event", string(ev.Kind), "user", ev.UserID)
		}
	}
}

// initDatabase creates a new database, ensures the schema, and creates the admin account.
func initDatabase(path, adminEmail string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	fail := func(err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	if err := db.EnsureSchema(database); err != nil {
		return fail(fmt.Errorf("ensuring schema: %w", err))
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}

	ctx := context.Background()
	secret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fail(err)
	}

	idp := identity.New(database, secret, 0)
	identity.MirrorUsers(idp)

	acct, err := idp.SignUp(ctx, adminEmail, password, "Admin")
	if err != nil {
		return fail(fmt.Errorf("creating admin account: %w", err))
	}
	if err := store.UpdateUser(ctx, database, acct.ID, acct.DisplayName, model.RoleAdmin); err != nil {
		return fail(fmt.Errorf("granting admin role: %w", err))
	}

	return database, password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, email, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Email:    %s\n", email)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after signing in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
