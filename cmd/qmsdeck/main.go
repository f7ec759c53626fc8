package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/waabox/qmsdeck/internal/api"
	"github.com/waabox/qmsdeck/internal/auth"
	"github.com/waabox/qmsdeck/internal/config"
	"github.com/waabox/qmsdeck/internal/domain"
	"github.com/waabox/qmsdeck/internal/httpclient"
	"github.com/waabox/qmsdeck/internal/tokenstore"
	"github.com/waabox/qmsdeck/internal/tui"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

const usage = `usage: qmsdeck [flags] [command]

commands:
  (none)             open the dashboard
  login              sign in and store the session
  logout             end the session and forget the stored tokens
  list <collection>  print the records of a collection
`

func main() {
	versionFlag := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", config.DefaultConfigPath(), "path to the config file")
	logPath := flag.String("log", "", "write debug logs to this file")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if *versionFlag {
		fmt.Println("qmsdeck", version)
		os.Exit(0)
	}

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config %s:\n%v\n", *configPath, err)
		os.Exit(1)
	}

	log, closeLog, err := newLogger(*logPath, cfg.Client.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	store, closeStore, err := tokenstore.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening session store: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	nav := tui.NewNavigator()
	client, err := httpclient.New(httpclient.ConfigFrom(cfg), store,
		httpclient.WithNavigator(nav),
		httpclient.WithLogger(log),
		httpclient.WithRateLimit(cfg.Client.RateLimit, cfg.Client.RateBurst),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating client: %v\n", err)
		os.Exit(1)
	}
	session := auth.NewSession(client, store, cfg.LoginPathOrDefault(), cfg.LogoutPathOrDefault(), log)
	service := api.NewAdapter(client)

	ctx := context.Background()
	args := flag.Args()
	if len(args) == 0 {
		err = runDashboard(ctx, service, session, nav)
	} else {
		switch args[0] {
		case "login":
			err = runLogin(ctx, session)
		case "logout":
			err = session.Logout(ctx)
		case "list":
			if len(args) < 2 {
				flag.Usage()
				os.Exit(2)
			}
			err = runList(ctx, service, domain.Collection(args[1]), os.Stdout)
		default:
			flag.Usage()
			os.Exit(2)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger returns a text logger writing to path, or a discarding logger when
// path is empty. The terminal belongs to the dashboard.
func newLogger(path, level string) (*slog.Logger, func() error, error) {
	if path == "" {
		return slog.New(slog.DiscardHandler), func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, err
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: lvl})), f.Close, nil
}

func runDashboard(ctx context.Context, service domain.RecordService, session *auth.Session, nav *tui.Navigator) error {
	loggedIn, err := session.LoggedIn(ctx)
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}
	m := tui.NewAppModel(service, nav, loggedIn)
	m.OnLogin = session.Login
	m.OnLogout = session.Logout
	return tui.Run(m)
}

// runLogin prompts on stderr so stdout remains clean for piping.
func runLogin(ctx context.Context, session *auth.Session) error {
	fmt.Fprint(os.Stderr, "Username: ")
	username, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading username: %w", err)
	}
	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if err := session.Login(ctx, strings.TrimSpace(username), string(password)); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Signed in.")
	return nil
}

func runList(ctx context.Context, service domain.RecordService, c domain.Collection, w io.Writer) error {
	if !c.Valid() {
		return fmt.Errorf("unknown collection %q", c)
	}
	records, err := service.ListRecords(ctx, c)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tOWNER\tUPDATED\tTITLE")
	for _, r := range records {
		updated := "--"
		if !r.UpdatedAt.IsZero() {
			updated = r.UpdatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Status, r.Owner, updated, r.Title)
	}
	return tw.Flush()
}
