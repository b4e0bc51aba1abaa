package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jaffle/internal/config"
)

func testApp(t *testing.T, env map[string]string) *app {
	t.Helper()
	base := map[string]string{
		"DATA_BACKEND": "memory",
		"DATA_DIR":     t.TempDir(),
		"SNAPSHOT_DIR": t.TempDir(),
		"LOG_LEVEL":    "error",
	}
	for k, v := range env {
		base[k] = v
	}
	return &app{loadConfig: func() (*config.Config, error) {
		cfg, err := config.LoadFrom(config.Sources{LookupEnv: func(k string) (string, bool) {
			v, ok := base[k]
			return v, ok
		}})
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}}
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(a)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStoresCommand(t *testing.T) {
	out, err := run(t, testApp(t, nil), "stores")
	if err != nil {
		t.Fatal(err)
	}
	got := strings.Split(strings.TrimSpace(out), "\n")
	want := []string{"All", "Brooklyn", "Chicago", "New Orleans", "Philadelphia", "San Francisco"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("stores = %v, want %v", got, want)
	}
}

func TestKPICommand(t *testing.T) {
	out, err := run(t, testApp(t, nil), "kpi", "--store", "Brooklyn")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Store:", "Brooklyn", "Total Revenue:", "Total Orders:", "Product Name", "Revenue $"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestKPICommandUnknownStoreJSON(t *testing.T) {
	out, err := run(t, testApp(t, nil), "kpi", "--store", "Atlantis", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Filter string `json:"filter"`
		KPI    struct {
			TotalOrders int64 `json:"total_orders"`
		} `json:"kpi"`
		Products []json.RawMessage `json:"products"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if got.Filter != "Atlantis" || got.KPI.TotalOrders != 0 || len(got.Products) != 0 {
		t.Fatalf("unexpected dashboard %+v", got)
	}
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	a := testApp(t, nil)

	jsonPath := filepath.Join(dir, "out", "chicago.json")
	if _, err := run(t, a, "export", "--store", "Chicago", "--format", "json", "--out", jsonPath); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(data) || !strings.Contains(string(data), `"filter": "Chicago"`) {
		t.Fatalf("unexpected export %s", data)
	}

	xlsxPath := filepath.Join(dir, "all.xlsx")
	if _, err := run(t, testApp(t, nil), "export", "-o", xlsxPath); err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(xlsxPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatal("xlsx export is not a zip container")
	}
}

func TestExportCommandErrors(t *testing.T) {
	if _, err := run(t, testApp(t, nil), "export", "--format", "pdf", "-o", "x.pdf"); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, err := run(t, testApp(t, nil), "export", "--format", "xlsx"); err == nil {
		t.Error("expected error for xlsx without --out")
	}
}

func TestMigrateRejectsMemoryBackend(t *testing.T) {
	if _, err := run(t, testApp(t, nil), "migrate"); err == nil {
		t.Fatal("expected error for memory backend")
	}
}

func TestSeedSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "jaffle.db")
	env := map[string]string{"DATA_BACKEND": "sqlite", "SQLITE_DB_PATH": dbPath}

	if _, err := run(t, testApp(t, env), "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := run(t, testApp(t, env), "seed"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := run(t, testApp(t, env), "stores")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "San Francisco") || !strings.HasPrefix(out, "All\n") {
		t.Fatalf("unexpected stores after seed:\n%s", out)
	}
}

func TestSeedFromCSV(t *testing.T) {
	dir := t.TempDir()
	monthly := filepath.Join(dir, "monthly.csv")
	products := filepath.Join(dir, "products.csv")
	if err := os.WriteFile(monthly, []byte("store_name,year_month,revenue,number_of_orders\nToronto,2019-05,10.00,1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(products, []byte("store_name,product_name,product_type,number_sold,product_revenue\nToronto,tangaroo,jaffle,1,10.00\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	env := map[string]string{"DATA_BACKEND": "sqlite", "SQLITE_DB_PATH": filepath.Join(dir, "jaffle.db")}
	if _, err := run(t, testApp(t, env), "seed", "--monthly", monthly, "--products", products); err != nil {
		t.Fatalf("seed: %v", err)
	}
	out, err := run(t, testApp(t, env), "stores")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "All\nToronto" {
		t.Fatalf("stores = %q", out)
	}
}

func TestSeedFromDir(t *testing.T) {
	dir := t.TempDir()
	products := "store_name,product_name,product_type,number_sold,product_revenue\nOslo,tangaroo,jaffle,2,22.00\n"
	if err := os.WriteFile(filepath.Join(dir, "product_metrics.csv"), []byte(products), 0o600); err != nil {
		t.Fatal(err)
	}

	env := map[string]string{"DATA_BACKEND": "sqlite", "SQLITE_DB_PATH": filepath.Join(dir, "jaffle.db")}
	if _, err := run(t, testApp(t, env), "seed", "--dir", dir); err != nil {
		t.Fatalf("seed: %v", err)
	}
	out, err := run(t, testApp(t, env), "stores")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "All\nOslo" {
		t.Fatalf("stores = %q", out)
	}
}
