package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-metafields/keys"
	"github.com/goliatone/go-metafields/metafields"
	"github.com/goliatone/go-metafields/pkg/di"
)

// entity addresses records by type name and identifier without a model type.
type entity struct {
	metafields.Base
	typ string
	id  string
}

func (e *entity) MorphType() string { return e.typ }
func (e *entity) MorphID() any      { return e.id }

// bind returns an engine for the entity named by args, with the --map
// serializer bindings applied. Bindings are not persisted, so reads of a
// key must use the same mapping as its writes.
func bind(c *di.Container, opts *options, args []string) (*metafields.Engine, invoker, error) {
	engine := c.For(&entity{typ: args[0], id: args[1]})

	names := make([]string, 0, len(opts.serializers))
	for k := range opts.serializers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := engine.MapSerializer(keys.Raw(k), opts.serializers[k]); err != nil {
			return nil, invoker{}, err
		}
	}
	return engine, invoker{engine: engine, noCache: opts.noCache}, nil
}

// NewMigrateCommand creates the migrate command
func NewMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the metafields table if it doesn't exist",
		Long: `Create the metafields table and its unique (owner, key) index.

This command is idempotent - it's safe to run multiple times.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd, func(ctx context.Context, c *di.Container) error {
				if err := c.Migrate(ctx); err != nil {
					return err
				}
				successColor := color.New(color.FgGreen, color.Bold)
				successColor.Fprintf(cmd.OutOrStdout(), "✓ table %s ready\n", c.Records().Table())
				return nil
			})
		},
	}
}

// NewGetCommand creates the get command
func NewGetCommand(opts *options) *cobra.Command {
	var def string

	cmd := &cobra.Command{
		Use:   "get <type> <id> <key>",
		Short: "Print one metafield as JSON",
		Example: `  metafieldctl get Person 42 favorite_color
  metafieldctl get Person 42 nickname --default anonymous --no-cache`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd, func(ctx context.Context, c *di.Container) error {
				engine, inv, err := bind(c, opts, args)
				if err != nil {
					return err
				}

				var fallback any
				if cmd.Flags().Changed("default") {
					fallback = def
				}

				v, err := inv.call(ctx, metafields.MethodGet, func() (any, error) {
					return engine.Get(ctx, keys.Raw(args[2]), fallback)
				}, args[2], fallback)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatValue(v))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&def, "default", "", "Value printed when the key is missing")
	return cmd
}

// NewSetCommand creates the set command
func NewSetCommand(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "set <type> <id> <key> <value>",
		Short: "Create or overwrite a metafield",
		Example: `  metafieldctl set Person 42 favorite_color green
  metafieldctl set Person 42 address '{"city":"Springfield"}' --json
  metafieldctl set Person 42 tags '["a","b"]' --json --map tags=json`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := any(args[3])
			if asJSON {
				var decoded any
				if err := json.Unmarshal([]byte(args[3]), &decoded); err != nil {
					return fmt.Errorf("invalid JSON value: %w", err)
				}
				value = decoded
			}

			return opts.withContainer(cmd, func(ctx context.Context, c *di.Container) error {
				engine, inv, err := bind(c, opts, args)
				if err != nil {
					return err
				}
				if _, err := inv.call(ctx, "set", func() (any, error) {
					return engine.Set(ctx, keys.Raw(args[2]), value)
				}, args[2], value); err != nil {
					return err
				}

				successColor := color.New(color.FgGreen, color.Bold)
				successColor.Fprintf(cmd.OutOrStdout(), "✓ set %s on %s %s\n", args[2], args[0], args[1])
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Parse the value as JSON instead of storing a string")
	return cmd
}

// NewDeleteCommand creates the delete command
func NewDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <type> <id> <key>",
		Short: "Delete one metafield",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd, func(ctx context.Context, c *di.Container) error {
				engine, inv, err := bind(c, opts, args)
				if err != nil {
					return err
				}

				v, err := inv.call(ctx, "delete", func() (any, error) {
					return engine.Delete(ctx, keys.Raw(args[2]))
				}, args[2])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if deleted, _ := v.(bool); deleted {
					color.New(color.FgGreen, color.Bold).Fprintf(out, "✓ deleted %s\n", args[2])
				} else {
					color.New(color.FgYellow).Fprintf(out, "%s not found\n", args[2])
				}
				return nil
			})
		},
	}
}

// NewListCommand creates the list command
func NewListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list <type> <id>",
		Short: "List every metafield of an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd, func(ctx context.Context, c *di.Container) error {
				engine, inv, err := bind(c, opts, args)
				if err != nil {
					return err
				}

				v, err := inv.call(ctx, metafields.MethodGetAll, func() (any, error) {
					return engine.GetAll(ctx)
				})
				if err != nil {
					return err
				}

				all, _ := v.(map[string]any)
				names := make([]string, 0, len(all))
				for k := range all {
					names = append(names, k)
				}
				sort.Strings(names)

				table := newTable(cmd.OutOrStdout(), "KEY", "VALUE")
				for _, k := range names {
					table.addRow(k, formatValue(all[k]))
				}
				table.render()
				return nil
			})
		},
	}
}

// NewPurgeCommand creates the purge command
func NewPurgeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <type> <id>",
		Short: "Delete every metafield of an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd, func(ctx context.Context, c *di.Container) error {
				engine, inv, err := bind(c, opts, args)
				if err != nil {
					return err
				}

				v, err := inv.call(ctx, "deleteAll", func() (any, error) {
					return engine.DeleteAll(ctx)
				})
				if err != nil {
					return err
				}

				successColor := color.New(color.FgGreen, color.Bold)
				successColor.Fprintf(cmd.OutOrStdout(), "✓ deleted %d metafields\n", v)
				return nil
			})
		},
	}
}
