package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ezekl/budget-server/authn"
	"github.com/ezekl/budget-server/authn/cookie"
	"github.com/ezekl/budget-server/authn/state"
	"github.com/ezekl/budget-server/internal/config"
	"github.com/ezekl/budget-server/quickbooks"
	"github.com/ezekl/budget-server/server"
	"github.com/ezekl/budget-server/sessions"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	handler, err := buildServer(c)
	if err != nil {
		return fmt.Errorf("buildServer: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildServer(c config.Config) (*server.Server, error) {
	endpoints := quickbooks.Endpoints{
		AuthURL:   c.GetAuthEndpoint(),
		TokenURL:  c.GetTokenEndpoint(),
		RevokeURL: c.GetRevokeEndpoint(),
	}
	if issuer := c.GetIssuer(); issuer != "" {
		ctx, cancel := context.WithTimeout(context.Background(), c.GetProviderTimeout())
		defer cancel()
		discovered, err := quickbooks.Discover(ctx, issuer)
		if err != nil {
			log.Warn().Err(err).Str("issuer", issuer).Msg("oidc discovery failed, using static endpoints")
		} else {
			endpoints = discovered
		}
	}

	codec, err := cookie.New(cookieSecret(c))
	if err != nil {
		return nil, fmt.Errorf("cookie codec: %w", err)
	}

	stateRepo, sessionRepo := buildStores(c)
	providerClient := quickbooks.NewClient(endpoints, quickbooks.WithHTTPClient(&http.Client{Timeout: c.GetProviderTimeout()}))

	authService, err := authn.NewService(c, codec, stateRepo, sessionRepo, providerClient)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	guard, err := authn.NewGuard(c, codec, sessionRepo, providerClient)
	if err != nil {
		return nil, fmt.Errorf("guard: %w", err)
	}

	apiClient := quickbooks.NewAPIClient(c.GetAPIBaseURL())
	return server.New(c, authService, guard, apiClient)
}

func buildStores(c config.Config) (state.Repo, sessions.Repo) {
	addr := c.GetRedisAddr()
	if addr == "" {
		log.Info().Msg("using in-memory session and state stores")
		return state.NewInMemoryRepo(c.GetStateTTL(), c.GetStateCap()), sessions.NewInMemoryRepo()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: c.GetRedisPassword(),
	})
	log.Info().Str("addr", addr).Msg("using redis session and state stores")
	return state.NewRedisRepo(client, c.GetStateTTL()), sessions.NewRedisRepo(client)
}

// cookieSecret returns the configured signing key, or a process-local random
// one when unset. An ephemeral key means every restart logs everyone out.
func cookieSecret(c config.Config) []byte {
	if secret := c.GetCookieSecret(); len(secret) > 0 {
		return secret
	}
	log.Warn().Msg("SESSION_COOKIE_SECRET not set, generating an ephemeral key")
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatal().Err(err).Msg("failed to generate cookie secret")
	}
	return secret
}

func setupLogging(c config.Config) {
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
