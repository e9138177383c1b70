// Command tahoe launches sing-box with the everything-v2ray server profiles.
// It keeps a small config.json, downloads sing-box on first run when it is
// not installed, fetches the chosen server profile and runs sing-box
// until Ctrl+C:
//
//	tahoe
//	tahoe --server vn
//	tahoe --mode foreground --refresh
//
// Author: Ing Muyleang (អុឹង មួយលៀង) — Ing_Muyleang
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/MuyleangIng/Tahoe/internal/assets"
	"github.com/MuyleangIng/Tahoe/internal/catalog"
	"github.com/MuyleangIng/Tahoe/internal/config"
	"github.com/MuyleangIng/Tahoe/internal/httpx"
	"github.com/MuyleangIng/Tahoe/internal/servers"
	"github.com/MuyleangIng/Tahoe/internal/supervisor"
	"github.com/MuyleangIng/Tahoe/internal/ui"
)

var version = "dev"

const title = "Tahoe VPN client for everything-v2ray."

// options are the command-line flags.
type options struct {
	dir     string
	server  string
	bin     string
	mode    string
	refresh bool
	list    bool
	version bool
}

func parseFlags(args []string, settings *config.Settings) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("tahoe", pflag.ContinueOnError)
	fs.StringVarP(&opts.dir, "dir", "d", settings.Dir, "Directory holding config.json, bin/ and servers/")
	fs.StringVarP(&opts.server, "server", "s", "", "Server to connect to ("+strings.Join(catalog.Builtin().IDs(), ", ")+"); skips the prompt")
	fs.StringVar(&opts.bin, "bin", "", "Path to sing-box for first-time setup; skips the prompt")
	fs.StringVarP(&opts.mode, "mode", "m", string(settings.Mode), "Supervision mode: supervised or foreground")
	fs.BoolVarP(&opts.refresh, "refresh", "r", false, "Download the server configuration even if it is cached")
	fs.BoolVarP(&opts.list, "list", "l", false, "List available servers and exit")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "  Usage: tahoe [flags]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "  Examples:")
		fmt.Fprintln(os.Stderr, "    tahoe                       prompt for a server and connect")
		fmt.Fprintln(os.Stderr, "    tahoe --server vn           connect to the vn server")
		fmt.Fprintln(os.Stderr, "    tahoe --refresh             re-download the server configuration")
		fmt.Fprintln(os.Stderr, "    tahoe --mode foreground     run until sing-box exits by itself")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "  Flags:")
		fmt.Fprint(os.Stderr, fs.FlagUsages())
		fmt.Fprintln(os.Stderr, "")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	mode, err := config.ParseMode(opts.mode)
	if err != nil {
		return nil, err
	}
	settings.Mode = mode
	settings.Dir = opts.dir
	return opts, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		ui.Stderr().Error("%v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	settings := config.Default()
	if err := settings.ApplyEnv(); err != nil {
		return err
	}
	opts, err := parseFlags(args, &settings)
	if err != nil {
		return err
	}

	if opts.version {
		fmt.Println("tahoe", version)
		return nil
	}
	if opts.list {
		for _, e := range catalog.Builtin() {
			fmt.Printf("  %-4s %s\n", e.ID, e.Filename)
		}
		return nil
	}

	out := ui.Stdout()
	out.Banner(title, settings.Dir, string(settings.Mode))

	ctx := context.Background()
	client := httpx.New(settings.UserAgent)
	stdin := bufio.NewReader(os.Stdin)

	resolver := &assets.Resolver{
		BinDir:          settings.BinPath(),
		ReleaseURL:      settings.ReleaseURL,
		Client:          client,
		MetadataTimeout: config.MetadataTimeout,
		DownloadTimeout: config.DownloadTimeout,
		Log:             out,
	}

	cfg, created, err := config.LoadOrCreate(settings.ConfigPath(), func() (string, error) {
		out.Step("Config file does not exist, entering first time setup.")
		answer := opts.bin
		if answer == "" {
			var err error
			if answer, err = ask(stdin, out, "Enter the path to the sing-box executable", ""); err != nil {
				return "", err
			}
		}
		return resolver.Resolve(ctx, answer)
	})
	if err != nil {
		return err
	}
	if created {
		out.Success("Saved %s", settings.ConfigPath())
	} else {
		out.Success("Loaded %s", settings.ConfigPath())
	}

	answer := opts.server
	if answer == "" {
		if answer, err = ask(stdin, out, "Select which server you want to connect to", cfg.Server); err != nil {
			return err
		}
	}
	if strings.TrimSpace(answer) == "" && cfg.Server == "" {
		out.Step("Selecting default server (%s)...", strings.ToUpper(catalog.DefaultServer))
	}
	id, filename, err := catalog.Builtin().Select(answer, cfg.Server)
	if err != nil {
		return err
	}
	cfg.Server = id
	if err := config.Save(settings.ConfigPath(), cfg); err != nil {
		return err
	}

	cache := &servers.Cache{
		Dir:     settings.ServersPath(),
		BaseURL: settings.ServerBaseURL,
		Client:  client,
		Timeout: config.MetadataTimeout,
	}
	profile, fresh, err := prepareProfile(ctx, cache, filename, opts.refresh, out)
	if err != nil {
		return err
	}

	notifier := supervisor.NewNotifier()
	stop := notifier.NotifyOnSignal(os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := newSupervisor(settings, cfg, cache, filename, fresh, out)
	out.Step("Starting sing-box with %s...", profile)
	if err := sup.Run(ctx, notifier); err != nil {
		return err
	}
	out.Success("Done.")
	return nil
}

// prepareProfile makes sure filename is cached, downloading it again
// when refresh is set. fresh reports whether it was downloaded here.
func prepareProfile(ctx context.Context, cache *servers.Cache, filename string, refresh bool, out *ui.Printer) (profile string, fresh bool, err error) {
	if !cache.Exists(filename) {
		out.Step("Updating server configuration...")
	}
	profile, fresh, err = cache.EnsurePresent(ctx, filename)
	if err != nil {
		return "", false, err
	}
	if refresh && !fresh {
		out.Step("Updating server configuration...")
		if _, err := cache.Refresh(ctx, filename); err != nil {
			return "", false, err
		}
		fresh = true
	}
	return profile, fresh, nil
}

// newSupervisor prepares the sing-box launch. A profile that was not
// downloaded during this run is refreshed in the background once
// sing-box is up.
func newSupervisor(settings config.Settings, cfg *config.Config, cache *servers.Cache, filename string, fresh bool, out *ui.Printer) *supervisor.Supervisor {
	sup := &supervisor.Supervisor{
		Binary:     cfg.Bin,
		ConfigPath: cache.Path(filename),
		Mode:       settings.Mode,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Log:        out,
		OnStart: func(p *os.Process) {
			out.Success("sing-box started (pid %d), press Ctrl+C to stop", p.Pid)
		},
	}
	if !fresh {
		sup.RefreshDelay = settings.RefreshDelay
		sup.Refresh = func(ctx context.Context) error {
			_, err := cache.Refresh(ctx, filename)
			return err
		}
	}
	return sup
}

// ask prints a prompt and reads one line. EOF counts as a blank answer.
func ask(r *bufio.Reader, out *ui.Printer, question, def string) (string, error) {
	out.Prompt(question, def)
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
