package transaction

import (
	"strings"
	"testing"
)

func TestBuildFilterEscapesSearchWildcards(t *testing.T) {
	where, args, err := buildFilter(Query{WalletID: testWalletID, Search: `50%_off\sale`}.withDefaults())
	if err != nil {
		t.Fatalf("build filter: %v", err)
	}

	if !strings.Contains(where, `ESCAPE '\'`) {
		t.Fatalf("expected an ESCAPE clause in %q", where)
	}
	pattern, ok := args[len(args)-1].(string)
	if !ok {
		t.Fatalf("expected the search pattern as the last argument, got %T", args[len(args)-1])
	}
	// Metacharacters from the search term must be escaped so they match
	// literally; only the surrounding wildcards remain live.
	if want := `%50\%\_off\\sale%`; pattern != want {
		t.Fatalf("expected pattern %q, got %q", want, pattern)
	}
}

func TestBuildFilterPlainSearchKeepsSurroundingWildcards(t *testing.T) {
	_, args, err := buildFilter(Query{WalletID: testWalletID, Search: "rent"}.withDefaults())
	if err != nil {
		t.Fatalf("build filter: %v", err)
	}
	if pattern := args[len(args)-1].(string); pattern != "%rent%" {
		t.Fatalf("expected pattern %%rent%%, got %q", pattern)
	}
}
