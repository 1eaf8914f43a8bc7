package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eringen/portal"
	"github.com/eringen/portal/views"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "adduser":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: portal adduser <username> <display name>")
			os.Exit(1)
		}
		if err := runAddUser(os.Args[2], os.Args[3]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("portal %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe() error {
	cfg, err := portal.LoadConfig()
	if err != nil {
		return err
	}
	app := portal.New(cfg, views.Default(cfg.Name))
	defer app.Close()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Echo.Shutdown(ctx)
}

func runAddUser(username, name string) error {
	password := os.Getenv("PORTAL_PASSWORD")
	if password == "" {
		return fmt.Errorf("set PORTAL_PASSWORD to the new user's password")
	}
	cfg, err := portal.LoadConfig()
	if err != nil {
		return err
	}
	store, err := portal.NewStore(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.AddUser(context.Background(), name, username, password); err != nil {
		return err
	}
	fmt.Printf("Added user %s\n", username)
	return nil
}

func printUsage() {
	fmt.Println(`portal - content management for announcements, articles and a photo gallery

Usage:
  portal <command> [arguments]

Commands:
  serve                       Start the HTTP server
  adduser <username> <name>   Create a staff account (password from PORTAL_PASSWORD)
  version                     Print the portal version
  help                        Show this help message

Configuration is read from .env, config.yml and the environment.
SESSION_SECRET is required for serve.`)
}
