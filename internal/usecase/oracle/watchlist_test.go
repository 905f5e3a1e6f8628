package oracle

import (
	"path/filepath"
	"testing"
)

func TestParseWatchlist(t *testing.T) {
	list, err := ParseWatchlist([]byte(`
version = 1

[[property]]
id = "10"
location = " Lagos, NG "

[[property]]
id = "0x02"
auto_update = false

[[property]]
id = "2"
location = "duplicate is ignored"
`))
	if err != nil {
		t.Fatalf("ParseWatchlist() error = %v", err)
	}
	if len(list.Properties) != 2 {
		t.Fatalf("properties = %+v", list.Properties)
	}
	first, second := list.Properties[0], list.Properties[1]
	if first.ID != "2" || first.AutoUpdateEnabled() || first.Location != "" {
		t.Fatalf("first = %+v", first)
	}
	if second.ID != "10" || !second.AutoUpdateEnabled() || second.Location != "Lagos, NG" {
		t.Fatalf("second = %+v", second)
	}
}

func TestParseWatchlistRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"bad id":      "[[property]]\nid = \"ten\"\n",
		"missing id":  "[[property]]\nlocation = \"x\"\n",
		"bad version": "version = 2\n",
		"bad toml":    "[[property]\n",
	}
	for name, body := range cases {
		if _, err := ParseWatchlist([]byte(body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadWatchlistMissingFile(t *testing.T) {
	list, err := LoadWatchlist(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadWatchlist() error = %v", err)
	}
	if len(list.Properties) != 0 {
		t.Fatalf("properties = %+v", list.Properties)
	}
	if _, err := LoadWatchlist(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
