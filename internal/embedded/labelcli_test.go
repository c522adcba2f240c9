package embedded

import (
	"encoding/json"
	"testing"

	"github.com/insilica/srvc-go/internal/config"
)

func TestResolveDialectFromLegacyExtraType(t *testing.T) {
	l := config.Label{
		ID:    "smoker",
		Extra: map[string]json.RawMessage{"type": json.RawMessage(`"boolean"`)},
	}
	d, err := resolveDialect(l)
	if err != nil {
		t.Fatalf("resolveDialect: %v", err)
	}
	if d != dialectBoolean {
		t.Fatalf("expected dialectBoolean, got %s", d)
	}
}

func TestResolveDialectFromJSONSchemaAlias(t *testing.T) {
	l := config.Label{ID: "age", JSONSchema: json.RawMessage(`"string"`)}
	d, err := resolveDialect(l)
	if err != nil {
		t.Fatalf("resolveDialect: %v", err)
	}
	if d != dialectString {
		t.Fatalf("expected dialectString, got %s", d)
	}
}

func TestResolveDialectUnknown(t *testing.T) {
	l := config.Label{ID: "mystery"}
	if _, err := resolveDialect(l); err == nil {
		t.Fatal("expected an error for a label with no type hint")
	}
}

func TestCategoriesFromExtra(t *testing.T) {
	l := config.Label{
		Extra: map[string]json.RawMessage{"categories": json.RawMessage(`["red","green","blue"]`)},
	}
	cats := categories(l)
	if len(cats) != 3 || cats[0] != "red" || cats[2] != "blue" {
		t.Fatalf("unexpected categories: %v", cats)
	}
}

func TestCategoriesMissing(t *testing.T) {
	if cats := categories(config.Label{}); cats != nil {
		t.Fatalf("expected nil categories, got %v", cats)
	}
}
