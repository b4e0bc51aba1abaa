package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jaffle/internal/backend"
	"jaffle/internal/cli"
	"jaffle/internal/config"
	"jaffle/internal/core"
	applog "jaffle/internal/log"
	"jaffle/internal/services"
	"jaffle/internal/source/memory"
	"jaffle/internal/storage"
)

type app struct {
	loadConfig func() (*config.Config, error)

	cfg    *config.Config
	logger *applog.Logger
}

func newApp() *app {
	return &app{loadConfig: cli.LoadConfig}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "dashboardctl",
		Short:         "Jaffle Shop sales dashboard from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			a.cfg = cfg

			lc := applog.DefaultConfig()
			if level, err := applog.ParseLevel(cfg.LogLevel); err == nil {
				lc.Level = level
			}
			lc.Format = cfg.LogFormat
			lc.Component = applog.ComponentCLI
			lc.Output = cmd.ErrOrStderr()
			a.logger = applog.New(lc)
			return nil
		},
	}

	root.AddCommand(
		newKPICmd(a),
		newStoresCmd(a),
		newExportCmd(a),
		newMigrateCmd(a),
		newSeedCmd(a),
	)
	return root
}

// withBackend opens the configured backend for the duration of fn.
func (a *app) withBackend(ctx context.Context, fn func(*backend.BackendResult) error) error {
	result, err := cli.OpenBackend(ctx, a.logger, a.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := result.Close(); cerr != nil {
			a.logger.Warn("Backend close error", applog.FieldError, cerr.Error())
		}
	}()
	return fn(result)
}

func (a *app) dashboardService(result *backend.BackendResult) *services.DashboardService {
	return services.NewDashboardService(result.Reader,
		services.WithQueryTimeout(a.cfg.QueryTimeout),
		services.WithLogger(a.logger.With(applog.FieldComponent, applog.ComponentDashboard).Logger))
}

func (a *app) render(ctx context.Context, store string) (core.Dashboard, error) {
	var d core.Dashboard
	err := a.withBackend(ctx, func(result *backend.BackendResult) error {
		var err error
		d, err = a.dashboardService(result).Render(ctx, core.ParseFilter(store))
		return err
	})
	return d, err
}

func newKPICmd(a *app) *cobra.Command {
	var (
		store  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "kpi",
		Short: "Print KPIs and the product table for a store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.render(cmd.Context(), store)
			if err != nil {
				return err
			}
			if asJSON {
				return services.NewExportService().WriteJSON(cmd.OutOrStdout(), d)
			}
			return printDashboard(cmd.OutOrStdout(), d)
		},
	}
	cmd.Flags().StringVar(&store, "store", core.AllStoresLabel, "store name or All")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the dashboard as JSON")
	return cmd
}

func printDashboard(w io.Writer, d core.Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Store:\t%s\n", d.Filter)
	fmt.Fprintf(tw, "Total Revenue:\t%s\n", core.FormatCurrency(d.KPI.TotalRevenue))
	fmt.Fprintf(tw, "Total Orders:\t%s\n", core.FormatCount(d.KPI.TotalOrders))
	if err := tw.Flush(); err != nil {
		return err
	}
	if !d.KnownStore() {
		fmt.Fprintf(w, "\nNo data for store %q.\n", d.Filter.String())
		return nil
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	for i, h := range services.ProductHeaders {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, h)
	}
	fmt.Fprintln(tw, "\t")
	for _, p := range d.Products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", p.ProductName, p.ProductType, core.FormatCount(p.UnitsSold), core.FormatCurrency(p.Revenue))
	}
	return tw.Flush()
}

func newStoresCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stores",
		Short: "List the store selector options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd.Context(), func(result *backend.BackendResult) error {
				stores, err := a.dashboardService(result).Stores(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range stores {
					fmt.Fprintln(cmd.OutOrStdout(), s)
				}
				return nil
			})
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var store, format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dashboard for a store as XLSX or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !services.ValidFormat(format) {
				return fmt.Errorf("unsupported format %q: use xlsx or json", format)
			}
			if out == "" || out == "-" {
				if format != services.FormatJSON {
					return fmt.Errorf("--out is required for %s exports", format)
				}
			}

			d, err := a.render(cmd.Context(), store)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				return services.NewExportService().Write(cmd.OutOrStdout(), d, format)
			}
			if err := writeFile(out, func(w io.Writer) error {
				return services.NewExportService().Write(w, d, format)
			}); err != nil {
				return err
			}
			a.logger.Info("Export written", applog.FieldStore, d.Filter.String(), applog.FieldFormat, format, applog.FieldPathOut, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&store, "store", core.AllStoresLabel, "store name or All")
	cmd.Flags().StringVar(&format, "format", services.FormatXLSX, "xlsx or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file; - writes JSON to stdout")
	return cmd
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the analytics tables for the postgres or sqlite backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			switch a.cfg.DataBackend {
			case config.BackendPostgres:
				err = storage.RunPostgresMigrations(a.cfg.Database.DSN())
			case config.BackendSQLite:
				err = storage.RunSQLiteMigrations(a.cfg.SQLiteDBPath)
			default:
				return fmt.Errorf("backend %s has no tables to migrate", a.cfg.DataBackend)
			}
			if err != nil {
				return err
			}
			a.logger.Info("Migrations applied", applog.FieldBackend, a.cfg.DataBackend)
			return nil
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	var dir, monthlyPath, productPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the stored metrics with CSV data (bundled sample by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			monthly, products, err := loadSeed(ctx, dir, monthlyPath, productPath)
			if err != nil {
				return err
			}
			return a.withBackend(ctx, func(result *backend.BackendResult) error {
				if result.Writer == nil {
					return fmt.Errorf("backend %s is read-only", a.cfg.DataBackend)
				}
				if err := result.Writer.ReplaceMetrics(ctx, monthly, products); err != nil {
					return err
				}
				a.logger.Info("Metrics seeded",
					applog.FieldBackend, a.cfg.DataBackend,
					applog.FieldMonths, len(monthly),
					applog.FieldProducts, len(products))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory holding monthly_metrics.csv and product_metrics.csv")
	cmd.Flags().StringVar(&monthlyPath, "monthly", "", "monthly_metrics CSV file; overrides --dir")
	cmd.Flags().StringVar(&productPath, "products", "", "product_metrics CSV file; overrides --dir")
	return cmd
}

// loadSeed reads seed rows from dir (missing files fall back to the bundled
// sample) with explicit files taking precedence.
func loadSeed(ctx context.Context, dir, monthlyPath, productPath string) ([]core.MonthlyMetricRow, []core.ProductMetricRow, error) {
	var (
		sample *memory.Store
		err    error
	)
	if dir == "" {
		sample, err = memory.Sample()
	} else {
		sample, err = memory.NewFromFiles(dir)
	}
	if err != nil {
		return nil, nil, err
	}

	var monthly []core.MonthlyMetricRow
	if monthlyPath == "" {
		monthly, err = sample.ReadMonthlyMetrics(ctx)
	} else {
		monthly, err = readCSVFile(monthlyPath, memory.ReadMonthlyCSV)
	}
	if err != nil {
		return nil, nil, err
	}

	var products []core.ProductMetricRow
	if productPath == "" {
		products, err = sample.ReadProductMetrics(ctx)
	} else {
		products, err = readCSVFile(productPath, memory.ReadProductCSV)
	}
	if err != nil {
		return nil, nil, err
	}
	return monthly, products, nil
}

func readCSVFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
