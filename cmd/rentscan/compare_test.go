package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/rentscan/internal/cache"
	"github.com/nao1215/rentscan/internal/model"
	"github.com/nao1215/rentscan/internal/pipeline"
	"github.com/nao1215/rentscan/internal/report"
)

// seedCompareCache writes rankings of 90210 into a file cache and returns
// the cache directory and a config file whose default count is 3.
func seedCompareCache(t *testing.T, snapshots map[cache.SnapshotKey][]model.ScoredListing) (string, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := cache.NewFileStore(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer store.Close()

	for key, listings := range snapshots {
		if err := store.SaveSnapshot(context.Background(), key, listings); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	configPath := filepath.Join(dir, "rentscan.yaml")
	if err := os.WriteFile(configPath, []byte("defaults:\n  count: 3\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return store.Dir(), configPath
}

func rankedListing(address string, rent, expenses float64) model.ScoredListing {
	return model.ScoredListing{
		Listing:  model.Listing{Address: address, Area: "90210", Price: 250000},
		Rent:     rent,
		Expenses: expenses,
	}
}

func defaultCompareSnapshots() map[cache.SnapshotKey][]model.ScoredListing {
	return map[cache.SnapshotKey][]model.ScoredListing{
		{Area: "90210", Count: 3, Day: "20240101"}: {
			rankedListing("4 Palm Dr", 2500, 2000),
			rankedListing("9 Palm Dr", 2400, 2600),
		},
		{Area: "90210", Count: 3, Day: "20240108"}: {
			rankedListing("4 Palm Dr", 2500, 2000),
			rankedListing("1 Palm Dr", 2000, 1900),
		},
		{Area: "90210", Count: 5, Day: "20240105"}: {
			rankedListing("4 Palm Dr", 2500, 2000),
		},
	}
}

func executeCompare(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewCompareCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// TestCompareCmd tests comparisons of stored rankings.
func TestCompareCmd(t *testing.T) {
	t.Parallel()

	cacheDir, configPath := seedCompareCache(t, defaultCompareSnapshots())
	base := []string{"-c", configPath, "--backend", "files", "--cache-dir", cacheDir}

	t.Run("latest two rankings", func(t *testing.T) {
		t.Parallel()

		out, err := executeCompare(t, append(base, "90210")...)
		if err != nil {
			t.Fatalf("compare: %v", err)
		}
		for _, want := range []string{
			"Ranking Comparison: 90210 (count 3)",
			"Previous ranking: 2024-01-01",
			"Current ranking:  2024-01-08",
			"[+] #2 1 Palm Dr",
			"[-] #2 9 Palm Dr",
			"Unchanged: 1 listings",
			"IMPROVED",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q\n%s", want, out)
			}
		}
	})

	t.Run("with day", func(t *testing.T) {
		t.Parallel()

		out, err := executeCompare(t, append(base, "--with-day", "2024-01-01", "--json", "90210")...)
		if err != nil {
			t.Fatalf("compare: %v", err)
		}

		var c report.Comparison
		if err := json.Unmarshal([]byte(out), &c); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if c.Previous.Day != "20240101" || c.Current.Day != "20240108" || c.Count != 3 {
			t.Errorf("unexpected comparison %+v", c)
		}
	})

	t.Run("markdown", func(t *testing.T) {
		t.Parallel()

		out, err := executeCompare(t, append(base, "-m", "90210")...)
		if err != nil {
			t.Fatalf("compare: %v", err)
		}
		if !strings.Contains(out, "# Ranking Comparison: 90210") {
			t.Errorf("expected a markdown heading\n%s", out)
		}
	})

	t.Run("list", func(t *testing.T) {
		t.Parallel()

		out, err := executeCompare(t, append(base, "--list", "90210")...)
		if err != nil {
			t.Fatalf("compare --list: %v", err)
		}
		if !strings.Contains(out, "Rankings of 90210 (3)") {
			t.Errorf("expected history header\n%s", out)
		}
		newest := strings.Index(out, "2024-01-08")
		middle := strings.Index(out, "2024-01-05")
		oldest := strings.Index(out, "2024-01-01")
		if newest < 0 || middle < 0 || oldest < 0 || newest > middle || middle > oldest {
			t.Errorf("expected rankings newest first\n%s", out)
		}
		if !strings.Contains(out, "500.00/mo") {
			t.Errorf("expected best cash flow\n%s", out)
		}
	})

	t.Run("list unknown area", func(t *testing.T) {
		t.Parallel()

		out, err := executeCompare(t, append(base, "--list", "10001")...)
		if err != nil {
			t.Fatalf("compare --list: %v", err)
		}
		if !strings.Contains(out, "No rankings found for 10001") {
			t.Errorf("unexpected output\n%s", out)
		}
	})

	errorTests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "single ranking", args: []string{"-n", "5", "90210"}, wantErr: "at least 2 rankings"},
		{name: "no ranking", args: []string{"-n", "7", "90210"}, wantErr: "no rankings of 7 listings"},
		{name: "latest day", args: []string{"--with-day", "2024-01-08", "90210"}, wantErr: "is the latest one"},
		{name: "unknown day", args: []string{"--with-day", "2023-12-31", "90210"}, wantErr: "no ranking of 3 listings found"},
		{name: "bad day format", args: []string{"--with-day", "20240101", "90210"}, wantErr: "invalid date format"},
		{name: "conflicting formats", args: []string{"-j", "-m", "90210"}, wantErr: "mutually exclusive"},
		{name: "negative count", args: []string{"-n", "-1", "90210"}, wantErr: "count"},
	}

	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := executeCompare(t, append(append([]string{}, base...), tt.args...)...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("invalid area", func(t *testing.T) {
		t.Parallel()

		_, err := executeCompare(t, append(append([]string{}, base...), "../etc")...)
		if !errors.Is(err, pipeline.ErrInvalidArea) {
			t.Errorf("expected ErrInvalidArea, got %v", err)
		}
	})
}

// TestCompareAfterRank tests that rankings made by rank can be compared.
func TestCompareAfterRank(t *testing.T) {
	t.Parallel()

	_, ep := newFakeUpstreams(t)
	cfg := testRankConfig(t, "sqlite")

	if err := runRank(context.Background(), cfg, ep, discardLogger(), io.Discard); err != nil {
		t.Fatalf("runRank: %v", err)
	}

	out, err := executeCompare(t, "--backend", "sqlite", "--cache-dir", cfg.CacheDir, "-n", "3", "--list", "90210")
	if err != nil {
		t.Fatalf("compare --list: %v", err)
	}
	if !strings.Contains(out, "Rankings of 90210 (1)") {
		t.Errorf("expected the ranking made by rank\n%s", out)
	}
}
