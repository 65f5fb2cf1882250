// kvsema is the operational surface of the distributed semaphore: it wraps a
// command between slot acquisition and release, or inspects the record.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/kvquorum/kvsema/common/clock"
	"github.com/kvquorum/kvsema/common/log"
	"github.com/kvquorum/kvsema/config"
	"github.com/kvquorum/kvsema/discovery"
	"github.com/kvquorum/kvsema/semaphore"
	"github.com/kvquorum/kvsema/store/redisstore"
)

func main() {
	app := buildApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildApp() *cli.App {
	return &cli.App{
		Name:  "kvsema",
		Usage: "bounded-concurrency semaphore over a versioned key-value store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the yaml configuration file",
				Value:   "kvsema.yaml",
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "holder identity, overriding the configured one",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "acquire a slot, run the command, release the slot",
				ArgsUsage: "command [args...]",
				Action:    runCommand,
			},
			{
				Name:   "release",
				Usage:  "release this node's slot, if any",
				Action: releaseCommand,
			},
			{
				Name:   "status",
				Usage:  "print the record's current holders",
				Action: statusCommand,
			},
		},
	}
}

type env struct {
	cfg   *config.Config
	guard *semaphore.Guard
	store *redisstore.Store
}

func setup(c *cli.Context, generateID bool) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if id := c.String("id"); id != "" {
		cfg.ID = id
	}
	if cfg.ID == "" && generateID {
		// one-shot identity: the same process acquires and releases
		hostname, _ := os.Hostname()
		cfg.ID = hostname + "-" + uuid.NewString()
	}

	logger := log.NewZapLogger(log.BuildZapLogger(cfg.Log))

	kv, err := redisstore.New(cfg.Store, cfg.AuthToken)
	if err != nil {
		return nil, err
	}

	discoveryClient, err := newDiscovery(cfg)
	if err != nil {
		kv.Close()
		return nil, err
	}

	guard, err := semaphore.NewGuard(cfg, kv, discoveryClient, logger, clock.NewRealTimeSource())
	if err != nil {
		kv.Close()
		return nil, err
	}
	return &env{cfg: cfg, guard: guard, store: kv}, nil
}

// newDiscovery binds service-based sizing for the CLI. There is no discovery
// system to query here, so the member count must be declared in the
// configuration; a service block without one can never resolve a capacity.
func newDiscovery(cfg *config.Config) (discovery.Client, error) {
	if cfg.Service == nil {
		return nil, nil
	}
	if cfg.Service.MemberCount <= 0 {
		return nil, &config.ValidationError{Msg: "service-based sizing requires service.memberCount"}
	}
	client := discovery.NewStaticClient()
	client.SetMemberCount(cfg.Service.Name, cfg.Service.Datacenter, cfg.Service.MemberCount)
	return client, nil
}

func runCommand(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return cli.Exit("run requires a command", 2)
	}
	e, err := setup(c, true)
	if err != nil {
		return err
	}
	defer e.store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !e.guard.Acquire(ctx) {
		return cli.Exit("could not acquire a slot", 1)
	}
	defer e.guard.Release(context.Background())

	cmd := exec.CommandContext(ctx, c.Args().First(), c.Args().Tail()...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return cli.Exit("", exitErr.ExitCode())
		}
		return err
	}
	return nil
}

func releaseCommand(c *cli.Context) error {
	e, err := setup(c, false)
	if err != nil {
		return err
	}
	defer e.store.Close()

	if e.cfg.ID == "" {
		return cli.Exit("release requires a holder id", 2)
	}
	if !e.guard.Release(context.Background()) {
		return cli.Exit("release abandoned", 1)
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	e, err := setup(c, true)
	if err != nil {
		return err
	}
	defer e.store.Close()

	sem, err := e.guard.Snapshot(context.Background())
	if err != nil {
		return err
	}

	holders := sem.Holders()
	ids := make([]string, 0, len(holders))
	for id := range holders {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("path: %s\nconcurrency: %d\nholders: %d\n", e.cfg.Path, sem.Concurrency(), len(ids))
	for _, id := range ids {
		fmt.Printf("  %s  since %s\n", id, time.Unix(holders[id], 0).UTC().Format(time.RFC3339))
	}
	return nil
}
