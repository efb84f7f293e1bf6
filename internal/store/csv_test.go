package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestImportBarsCSV(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	csv := `date,open,high,low,close,volume
2023-01-02,99,101,98,100,900
2023-01-03,100,102,99,101,1000
2023-01-04,101,103,100,0,1100
2023-01-05,101,103,100,102,1200
`
	path := filepath.Join(t.TempDir(), "spy.csv")
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	count, err := ImportBarsCSV(ctx, s, path, "SPY", "1day")
	if err != nil {
		t.Fatalf("ImportBarsCSV: %v", err)
	}
	if count != 3 {
		t.Errorf("imported = %d, want 3 after dropping the zero close", count)
	}

	bars, err := s.GetBars(ctx, "SPY", "1day")
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 3 {
		t.Fatalf("stored bars = %d, want 3", len(bars))
	}
	if bars[0].Date != "2023-01-02" || bars[0].Close != 100 {
		t.Errorf("first bar = %+v", bars[0])
	}
}

func TestImportBarsCSV_MissingFile(t *testing.T) {
	s := newTestStore(t)
	if _, err := ImportBarsCSV(context.Background(), s, filepath.Join(t.TempDir(), "nope.csv"), "SPY", "1day"); err == nil {
		t.Error("missing file must error")
	}
}
