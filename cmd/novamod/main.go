package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/novamoderation/novamod/internal/app"
)

type (
	// cmd corresponds to the top-level `novamod` command.
	cmd struct {
		// Serve runs the moderation gateway.
		Serve cmdServe `cmd:"" help:"Run the moderation gateway."`
		// Migrate applies database migrations and exits.
		Migrate cmdMigrate `cmd:"" help:"Apply database migrations."`
		// Keygen provisions an account and prints a new API key.
		Keygen cmdKeygen `cmd:"" help:"Provision an account and print a new API key."`
	}
	cmdServe struct {
		Config string `help:"Path to the configuration yaml file." short:"c" type:"path"`
	}
	cmdMigrate struct {
		Config string `help:"Path to the configuration yaml file." short:"c" type:"path"`
	}
	cmdKeygen struct {
		Config  string `help:"Path to the configuration yaml file." short:"c" type:"path"`
		Account string `help:"Account name to create or attach the key to." required:""`
		Email   string `help:"Contact email for a newly created account."`
		Name    string `help:"Display name for the key." default:"default"`
		Tokens  int64  `help:"Moderation tokens to credit on creation." default:"0"`
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli cmd
	parsed := kong.Parse(&cli,
		kong.Name("novamod"),
		kong.Description("Image moderation gateway backed by PicPurify."),
	)

	var err error
	switch parsed.Command() {
	case "serve":
		err = app.RunServer(ctx, cli.Serve.Config)
	case "migrate":
		err = app.Migrate(ctx, cli.Migrate.Config)
	case "keygen":
		var token string
		token, err = app.Keygen(ctx, cli.Keygen.Config, app.KeygenParams{
			AccountName: cli.Keygen.Account,
			Email:       cli.Keygen.Email,
			KeyName:     cli.Keygen.Name,
			Tokens:      cli.Keygen.Tokens,
		})
		if err == nil {
			fmt.Fprintln(os.Stdout, token)
		}
	default:
		err = fmt.Errorf("unknown command %q", parsed.Command())
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
