package internal

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/astra/internal/script"
	"github.com/starford/astra/internal/storage"
	"github.com/starford/astra/internal/testutil"
)

func testConfig(t *testing.T, driver string) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Store.Driver = driver
	cfg.Store.Path = filepath.Join(t.TempDir(), "apps")
	if driver == storage.DriverSQLite {
		cfg.Store.Path += ".db"
	}
	return cfg
}

func TestApplyScript_CreatesApp(t *testing.T) {
	for _, driver := range []string{storage.DriverFS, storage.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			cfg := testConfig(t, driver)
			s, err := script.Parse([]byte("---\nname: Shop\n---\nadd page Pricing\nrename page Pricing to Plans\ndelete page Blog\nhm\n"))
			if err != nil {
				t.Fatal(err)
			}

			var out bytes.Buffer
			id, err := ApplyScript(context.Background(), s, &out, WithConfig(cfg), WithLogger(testutil.DiscardLogger()))
			if err != nil {
				t.Fatalf("apply: %v", err)
			}

			got := out.String()
			for _, want := range []string{
				"created " + id + " (Shop)",
				"4\tapplied\tAdded page \"Pricing\".",
				"5\tapplied\tRenamed page \"Pricing\" to \"Plans\".",
				"6\tskipped\tPage \"Blog\" not found.",
				"7\tskipped\tI'm not sure",
			} {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}

			store, err := storage.Open(cfg.Store.Driver, cfg.Store.Path)
			if err != nil {
				t.Fatal(err)
			}
			defer store.Close()
			bp, err := store.Get(context.Background(), id)
			if err != nil {
				t.Fatal(err)
			}
			if names := bp.PageNames(); len(names) != 2 || names[1] != "Plans" {
				t.Errorf("pages = %v", names)
			}
		})
	}
}

func TestApplyScript_ExistingApp(t *testing.T) {
	cfg := testConfig(t, storage.DriverFS)
	store, err := storage.NewFS(cfg.Store.Path)
	if err != nil {
		t.Fatal(err)
	}
	bp := testutil.TestApp(t, store, "Blog", "Posts")

	s := &script.Script{
		Header: script.Header{App: bp.ID},
		Lines:  []script.Line{{Number: 1, Text: "delete page Posts"}},
	}
	var out bytes.Buffer
	id, err := ApplyScript(context.Background(), s, &out, WithConfig(cfg), WithLogger(testutil.DiscardLogger()))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if id != bp.ID {
		t.Errorf("id = %q, want %q", id, bp.ID)
	}
	if strings.Contains(out.String(), "created") {
		t.Errorf("should not create an app:\n%s", out.String())
	}
}

func TestApplyScript_UnknownApp(t *testing.T) {
	cfg := testConfig(t, storage.DriverFS)
	s := &script.Script{
		Header: script.Header{App: "app_missing"},
		Lines:  []script.Line{{Number: 3, Text: "add page X"}},
	}
	_, err := ApplyScript(context.Background(), s, &bytes.Buffer{}, WithConfig(cfg), WithLogger(testutil.DiscardLogger()))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("err = %v, want line 3 failure", err)
	}
}

func TestApplyScript_ConfigRequired(t *testing.T) {
	if _, err := ApplyScript(context.Background(), &script.Script{}, &bytes.Buffer{}); err == nil {
		t.Fatal("missing config should fail")
	}
}
