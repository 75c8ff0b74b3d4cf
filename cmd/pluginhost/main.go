// Package main is a sample host built on the plugin framework. Its own
// commands come from host.yaml; everything else is contributed by the
// plugins installed under its home directory.
package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/CliForge/pluginhost/internal/builder"
	"github.com/CliForge/pluginhost/internal/runtime"
	"github.com/pterm/pterm"
)

//go:embed host.yaml
var hostConfig []byte

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[1:]
	exe, _ := os.Executable()

	rt, err := runtime.New(ctx, runtime.Options{
		CliName:    "sample-cli",
		Embedded:   hostConfig,
		Executable: exe,
		Debug:      runtime.HasDebugFlag(args),
		Handlers: map[string]builder.HandlerFunc{
			"greet": greet,
		},
	})
	if err != nil {
		pterm.Error.WithWriter(os.Stderr).Println(err.Error())
		os.Exit(1)
	}
	os.Exit(rt.Execute(ctx, args))
}

func greet(_ context.Context, inv *builder.Invocation) error {
	name := inv.Args.String("name")
	greeting := inv.Args.String("greeting")
	if inv.Args.Bool("shout") {
		greeting = strings.ToUpper(greeting)
		name = strings.ToUpper(name)
	}
	_, err := fmt.Fprintf(inv.Command.OutOrStdout(), "%s, %s!\n", greeting, name)
	return err
}
