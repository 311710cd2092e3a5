// Package main implements lifectl, an admin CLI for a running lifedash server.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lifedash/internal/cli"
	"lifedash/internal/client"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd(time.Now).Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries the persistent flags shared by every command.
type app struct {
	server string
	token  string
	tzName string
	now    func() time.Time
}

func newRootCmd(now func() time.Time) *cobra.Command {
	a := &app{now: now}

	root := &cobra.Command{
		Use:          "lifectl",
		Short:        "Administer a lifedash server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.server, "server", envOr("LIFEDASH_SERVER", "http://localhost:8081"), "server base URL")
	root.PersistentFlags().StringVar(&a.token, "token", os.Getenv("LIFEDASH_TOKEN"), "session token (default $LIFEDASH_TOKEN)")
	root.PersistentFlags().StringVar(&a.tzName, "tz", os.Getenv("TZ_NAME"), "time zone for day boundaries (default local)")

	root.AddCommand(
		a.statusCmd(),
		a.setupCmd(),
		a.loginCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.applyRoutineCmd(),
		a.statsCmd(),
		a.reportCmd(),
		a.summaryCmd(),
	)
	return root
}

func (a *app) client() *client.Client {
	return client.New(a.server, client.WithToken(a.token))
}

// authed returns a client or fails early when no token is configured.
func (a *app) authed() (*client.Client, error) {
	if a.token == "" {
		return nil, errors.New("no session token: pass --token or set LIFEDASH_TOKEN (see `lifectl login`)")
	}
	return a.client(), nil
}

func (a *app) location() (*time.Location, error) {
	if a.tzName == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(a.tzName)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", a.tzName, err)
	}
	return loc, nil
}

// readPassword takes the password from the flag or the first line of in.
func readPassword(flag string, in io.Reader) (string, error) {
	if flag != "" {
		return flag, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required (pass --password or pipe it on stdin)")
	}
	return pw, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
