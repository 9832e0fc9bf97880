package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tradepilot/tradepilot/internal/core/domain"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestStore(t *testing.T, policyPath string) *Store {
	t.Helper()
	countries := writeTestFile(t, "countries.csv",
		"Country Name,Code\nJapan,JPN\nCanada,CAN\nUnited States,USA\nMexico,MEX\nGermany,DEU\nFrance,FRA\n")
	hsCatalog := writeTestFile(t, "hs.json",
		`[{"id":"870321","description":"Motor cars with spark-ignition engine of a cylinder capacity not exceeding 1,000 cc"},
		  {"id":"040690","description":"Cheese, other"}]`)

	store, err := NewStore(StoreConfig{
		CountriesCSVPath:    countries,
		HSCatalogPath:       hsCatalog,
		AgreementPolicyPath: policyPath,
	})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestCanonicalCountryIsCaseInsensitive(t *testing.T) {
	store := newTestStore(t, "")

	canon, ok := store.CanonicalCountry("  japan ")
	if !ok || canon != "Japan" {
		t.Fatalf("CanonicalCountry(japan) = %q, %v", canon, ok)
	}
	if _, ok := store.CanonicalCountry("Atlantis"); ok {
		t.Fatalf("unknown country must not resolve")
	}
}

func TestRepresentativeMemberDefaults(t *testing.T) {
	store := newTestStore(t, "")

	cases := []struct {
		raw  string
		role domain.TradeRole
		want string
	}{
		{"USMCA", domain.RoleExporter, "USA"},
		{"USMCA", domain.RoleImporter, "Mexico"},
		{"the European Union", domain.RoleExporter, "Germany"},
		{"EU", domain.RoleImporter, "France"},
	}
	for _, tc := range cases {
		got, ok := store.RepresentativeMember(tc.raw, tc.role)
		if !ok || got != tc.want {
			t.Fatalf("RepresentativeMember(%q, %s) = %q, %v; want %q", tc.raw, tc.role, got, ok, tc.want)
		}
	}

	if _, ok := store.RepresentativeMember("Japan", domain.RoleExporter); ok {
		t.Fatalf("plain country must not match an agreement rule")
	}
}

func TestRepresentativeMemberDoesNotMatchSubstrings(t *testing.T) {
	store := newTestStore(t, "")
	if _, ok := store.RepresentativeMember("Reunion", domain.RoleExporter); ok {
		t.Fatalf("'eu' rule must not fire inside 'Reunion'")
	}
}

func TestAgreementPolicyFileOverridesDefaults(t *testing.T) {
	policy := writeTestFile(t, "policy.yaml", `
rules:
  - match: mercosur
    exporter: Brazil
    importer: Argentina
`)
	store := newTestStore(t, policy)

	got, ok := store.RepresentativeMember("Mercosur", domain.RoleExporter)
	if !ok || got != "Brazil" {
		t.Fatalf("RepresentativeMember(Mercosur) = %q, %v", got, ok)
	}
	if _, ok := store.RepresentativeMember("USMCA", domain.RoleExporter); ok {
		t.Fatalf("file rules replace defaults entirely")
	}
}

func TestAgreementPolicyMissingFileFallsBackToDefaults(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "absent.yaml"))
	if got, ok := store.RepresentativeMember("USMCA", domain.RoleImporter); !ok || got != "Mexico" {
		t.Fatalf("defaults not applied when policy file is absent: %q, %v", got, ok)
	}
}

func TestFindHSCodeSubstringMatch(t *testing.T) {
	store := newTestStore(t, "")

	if got := store.FindHSCode("motor cars"); got != "870321" {
		t.Fatalf("FindHSCode(motor cars) = %q", got)
	}
	if got := store.FindHSCode("CHEESE"); got != "040690" {
		t.Fatalf("FindHSCode is not case-insensitive: %q", got)
	}
	if got := store.FindHSCode("spaceship"); got != "" {
		t.Fatalf("unknown product must yield empty code, got %q", got)
	}
	if got := store.FindHSCode("  "); got != "" {
		t.Fatalf("blank product must yield empty code, got %q", got)
	}
}

func TestNewStoreFailsOnMissingCountries(t *testing.T) {
	hsCatalog := writeTestFile(t, "hs.json", `[]`)
	_, err := NewStore(StoreConfig{
		CountriesCSVPath: filepath.Join(t.TempDir(), "absent.csv"),
		HSCatalogPath:    hsCatalog,
	})
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
