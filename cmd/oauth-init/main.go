package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"

	"cashbook/internal/backend"
	"cashbook/internal/cli"
	"cashbook/internal/core"
	"cashbook/internal/log"
)

func main() {
	userID := flag.String("user", "", "user id the token is stored for")
	port := flag.String("port", envOr("OAUTH_REDIRECT_PORT", "8085"), "local port for the OAuth redirect")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentOAuth)
	if *userID == "" {
		logger.Error("-user is required")
		os.Exit(2)
	}
	cfg := cli.LoadAndValidateConfig(logger)

	clientJSON, err := cfg.OAuthClientJSON()
	if err != nil {
		logger.Error("Failed to load OAuth client", log.FieldError, err)
		os.Exit(1)
	}
	oauthCfg, err := google.ConfigFromJSON(clientJSON, drive.DriveScope, sheets.SpreadsheetsScope)
	if err != nil {
		logger.Error("Invalid OAuth client definition", log.FieldError, err)
		os.Exit(1)
	}
	oauthCfg.RedirectURL = "http://localhost:" + *port + "/callback"

	state, err := randomState()
	if err != nil {
		logger.Error("Failed to generate state", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, 5*time.Minute)
	defer cancelTimeout()

	code, err := awaitCode(ctx, ":"+*port, state, func() {
		fmt.Printf("Open this URL to authorize:\n%s\n", oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline))
	})
	if err != nil {
		logger.Error("Authorization failed", log.FieldError, err)
		os.Exit(1)
	}

	tok, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		logger.Error("Token exchange failed", log.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	backendCfg.AMQPURL = ""
	res, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer res.Cleanup()

	cred := core.Credential{
		UserID:      *userID,
		AccessToken: tok.AccessToken,
		Expiry:      tok.Expiry,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := res.Credentials.SaveCredential(ctx, cred); err != nil {
		logger.Error("Failed to store credential", log.FieldError, err, log.FieldUserID, *userID)
		return
	}
	logger.Info("Stored Google access token",
		log.FieldUserID, *userID,
		"expiry", tok.Expiry,
		"backend", backendCfg.Credentials)
}

// awaitCode serves the redirect endpoint until Google delivers a code whose
// state matches.
func awaitCode(ctx context.Context, addr, state string, ready func()) (string, error) {
	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res result
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("oauth error: %s", q.Get("error"))
		case q.Get("state") != state:
			res.err = errors.New("state mismatch")
		case q.Get("code") == "":
			res.err = errors.New("no code in callback")
		default:
			res.code = q.Get("code")
		}
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			results <- result{err: err}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	ready()
	select {
	case res := <-results:
		return res.code, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization: %w", ctx.Err())
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
