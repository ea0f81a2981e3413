package cli

import (
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/buildtall-systems/kitchen/internal/config"
	"github.com/buildtall-systems/kitchen/internal/db"
	"github.com/buildtall-systems/kitchen/internal/logging"
	"github.com/buildtall-systems/kitchen/internal/order"
	"github.com/buildtall-systems/kitchen/internal/session"
	"github.com/buildtall-systems/kitchen/internal/source"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	var orderSpecs []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one batch of orders",
		Long: `Reset the database, seed it with the configured inventory and run a batch of orders through the kitchen.

Orders come from --order flags when given, otherwise from orders.source:
the fixed simulated batch or a seeded random batch.`,
		Example: `  kitchen run
  kitchen run --order "pizza=5 hamburguesa=2" --order "soda=3"
  kitchen run --policy all-or-nothing --consistency relaxed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, v, orderSpecs)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&orderSpecs, "order", nil, `order to submit, e.g. "pizza=5 soda=2" (repeatable)`)
	flags.String("policy", "best-effort", "fulfillment policy: best-effort or all-or-nothing")
	flags.String("consistency", "strict", "durable write consistency: strict or relaxed")

	_ = v.BindPFlag("fulfillment.policy", flags.Lookup("policy"))
	_ = v.BindPFlag("fulfillment.consistency", flags.Lookup("consistency"))
	return cmd
}

func runSession(cmd *cobra.Command, v *viper.Viper, orderSpecs []string) error {
	cfg, err := config.LoadFrom(v)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.Log.Format, cfg.Verbose)

	orders, err := loadOrders(cfg, orderSpecs)
	if err != nil {
		return err
	}

	logger.Info("kitchen starting",
		"database", cfg.Database.Path,
		"policy", cfg.Fulfillment.Policy,
		"consistency", cfg.Fulfillment.Consistency,
		"orders", len(orders))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = database.Close() }()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	if _, err := session.Run(ctx, session.Options{
		Store:       database,
		Stock:       cfg.Inventory,
		Orders:      orders,
		Policy:      cfg.Fulfillment.Policy,
		Consistency: cfg.Fulfillment.Consistency,
		MailboxSize: cfg.Mailbox.Size,
		Out:         cmd.OutOrStdout(),
		Logger:      logger,
	}); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	logger.Info("kitchen finished")
	return nil
}

func loadOrders(cfg *config.Config, orderSpecs []string) ([]order.Order, error) {
	if len(orderSpecs) > 0 {
		orders, err := source.ParseAll(orderSpecs)
		if err != nil {
			return nil, fmt.Errorf("parsing --order: %w", err)
		}
		return orders, nil
	}

	switch cfg.Orders.Source {
	case config.SourceRandom:
		rng := rand.New(rand.NewPCG(cfg.Orders.Seed, cfg.Orders.Seed))
		return source.Random(rng, cfg.Orders.Count, cfg.Inventory, cfg.Orders.MaxQuantity)
	default:
		return source.Simulated(), nil
	}
}

