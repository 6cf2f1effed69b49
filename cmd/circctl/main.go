// Command circctl is the command-line front end of the circulation service.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	pb "github.com/librarydesk/circulation/contracts/circulation/v1"
	"github.com/librarydesk/circulation/internal/clients"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// dialFunc opens a client for addr and returns it with its closer
type dialFunc func(addr string) (pb.CirculationServiceClient, func() error, error)

type app struct {
	out  io.Writer
	in   io.Reader
	dial dialFunc

	addr    string
	actor   string
	jsonOut bool
	timeout time.Duration

	client pb.CirculationServiceClient
	close  func() error
}

func main() {
	a := &app{out: os.Stdout, in: os.Stdin, dial: dialService}
	if err := a.rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func dialService(addr string) (pb.CirculationServiceClient, func() error, error) {
	c, err := clients.NewCirculationClient(addr, zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "circctl",
		Short:         "Manage the library's catalog, users and loans",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.client != nil {
				return nil
			}
			client, closer, err := a.dial(a.addr)
			if err != nil {
				return err
			}
			a.client, a.close = client, closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.close != nil {
				return a.close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.addr, "addr", envOr("CIRCULATION_ADDR", "localhost:50061"), "circulation service address")
	flags.StringVar(&a.actor, "actor", os.Getenv("CIRCULATION_ACTOR"), "id of the user performing the action")
	flags.BoolVar(&a.jsonOut, "json", false, "print responses as JSON")
	flags.DurationVar(&a.timeout, "timeout", 10*time.Second, "per-call timeout")

	root.AddCommand(
		a.booksCmd(),
		a.borrowCmd(),
		a.recordsCmd(),
		a.usersCmd(),
		a.statsCmd(),
		a.reportCmd(),
		a.exportCmd(),
	)
	return root
}

func (a *app) ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.timeout)
}

func (a *app) requireActor() (string, error) {
	if a.actor == "" {
		return "", fmt.Errorf("--actor (or CIRCULATION_ACTOR) is required")
	}
	return a.actor, nil
}

// readPassword prompts on a terminal without echo, or reads one line otherwise.
func (a *app) readPassword(prompt string) (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.out, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	if line = strings.TrimSpace(line); line == "" {
		return "", fmt.Errorf("password is required")
	}
	return line, nil
}

func (a *app) printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
