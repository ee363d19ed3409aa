package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-auth-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-auth-go")

	// key material is resolved once here and never re-read
	authCfg := auth.ConfigFromEnv()
	if insecure := authCfg.InsecureDefaults(); len(insecure) > 0 {
		sugar.Warnw("using insecure development defaults; set these in production", "vars", insecure)
	}
	if authCfg.LenientBearer {
		sugar.Warn("lenient bearer prefix handling enabled")
	}

	// init db
	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	users := userrepo.NewUserRepo(db)
	ensureCtx, cancelEnsure := context.WithTimeout(context.Background(), 5*time.Second)
	if err := users.EnsureTable(ensureCtx); err != nil {
		cancelEnsure()
		sugar.Fatalf("ensure users table: %v", err)
	}
	cancelEnsure()

	hasher := auth.NewHasher(authCfg, sugar.Named("hasher"))
	codec := auth.NewTokenCodec(authCfg, clockwork.NewRealClock())

	handler := router.RegisterRoutes(router.Deps{
		Logger: sugar,
		Users:  user.NewUserService(users, hasher, codec, sugar.Named("user")),
		Auth:   router.NewAuthenticator(codec, sugar.Named("auth")),
		IDs:    utilities.NewIDGenerator(utilities.NodeIDFromEnv()),
	})

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
