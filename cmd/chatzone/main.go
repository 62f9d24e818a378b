package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/chatzone/chatzone/internal/chatclient"
	"github.com/chatzone/chatzone/internal/chatview"
	"github.com/chatzone/chatzone/internal/config"
	"github.com/chatzone/chatzone/internal/observ"
	"github.com/chatzone/chatzone/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		serverURL = flag.String("server", config.GetEnv("CHATZONE_SERVER_URL", "http://localhost:8081"), "chatzone server URL")
		email     = flag.String("email", "", "account email")
		password  = flag.String("password", "", "account password")
		name      = flag.String("name", "", "display name (signup only)")
		signup    = flag.Bool("signup", false, "create a new account instead of logging in")
	)
	flag.Parse()

	logger, err := observ.NewLogger(config.GetEnv("ENV", "development"), config.GetEnv("LOG_LEVEL", "warn"))
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := chatclient.New(*serverURL, logger)

	if *signup {
		form := chatview.SignupForm{Name: *name, Email: *email, Password: *password}
		fieldErrs, err := chatview.Signup(ctx, client, form)
		if err != nil {
			return err
		}
		if len(fieldErrs) > 0 {
			for field, msg := range fieldErrs {
				fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
			}
			return fmt.Errorf("signup form is invalid")
		}
		fmt.Println("Signup successful! Please log in.")
		// Mirror the web flow: signup routes to login, it doesn't open
		// the chat view directly.
		client.SignOut()
		return nil
	}

	if *email == "" || *password == "" {
		return fmt.Errorf("-email and -password are required (or use -signup)")
	}
	if _, err := client.Login(ctx, *email, *password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer client.SignOut()

	err = tui.Run(ctx, tui.Options{Client: client, Logger: logger})
	if errors.Is(err, chatview.ErrUnauthenticated) {
		return fmt.Errorf("session expired, please log in again")
	}
	return err
}
