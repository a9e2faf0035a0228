// Command repairmemberids reconciles plans' memberIds with their membership maps directly
// against a store, without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/memberids"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/domain"
	platformclock "github.com/Overland-East-Bay/plan-sharing-api/internal/platform/clock"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/platform/config"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/platform/logging"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/platform/storage"
)

type options struct {
	planID  string
	backend string
	dryRun  bool
}

func parseFlags(args []string, defaultBackend string) (options, error) {
	var o options
	fs := pflag.NewFlagSet("repairmemberids", pflag.ContinueOnError)
	fs.StringVar(&o.planID, "plan-id", "", "repair a single plan instead of every plan")
	fs.StringVar(&o.backend, "backend", defaultBackend, "storage backend: postgres or firestore")
	fs.BoolVar(&o.dryRun, "dry-run", false, "report plans needing repair without writing")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	switch o.backend {
	case config.StoragePostgres, config.StorageFirestore:
	default:
		return options{}, fmt.Errorf("--backend must be postgres or firestore (got %q)", o.backend)
	}
	return o, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	opts, err := parseFlags(os.Args[1:], cfg.StorageBackend)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := storage.Open(ctx, cfg, opts.backend, platformclock.NewSystemClock())
	if err != nil {
		slog.Error("open storage", "backend", opts.backend, "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	if err := run(ctx, memberids.NewService(stores.Plans), opts, os.Stdout); err != nil {
		slog.Error("repair failed", "error", err)
		stores.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, svc *memberids.Service, o options, out io.Writer) error {
	switch {
	case o.planID != "" && o.dryRun:
		res, err := svc.InspectPlan(ctx, domain.PlanID(o.planID))
		if err != nil {
			return err
		}
		if res.Repaired {
			fmt.Fprintf(out, "%s: would replace %v with %v\n", res.PlanID, res.OldMemberIDs, res.NewMemberIDs)
		} else {
			fmt.Fprintf(out, "%s: no repair needed\n", res.PlanID)
		}
		return nil

	case o.planID != "":
		res, err := svc.RepairPlan(ctx, domain.PlanID(o.planID))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Message)
		return nil

	case o.dryRun:
		fixes, err := svc.ScanAll(ctx)
		if err != nil {
			return err
		}
		for _, f := range fixes {
			fmt.Fprintf(out, "%s: would set memberIds to %v\n", f.PlanID, f.MemberIDs)
		}
		fmt.Fprintf(out, "%d plan(s) need repair\n", len(fixes))
		return nil

	default:
		res, err := svc.RepairAll(ctx)
		if err != nil {
			return err
		}
		for _, id := range res.RepairedPlanIDs {
			fmt.Fprintln(out, id)
		}
		fmt.Fprintln(out, res.Message)
		return nil
	}
}
