package reference

import (
	"log/slog"

	"github.com/tradepilot/tradepilot/internal/core/domain"
)

// Store bundles the three flat-file reference tables behind one lookup
// surface: canonical country names, bloc-to-member substitution, and HS code
// search. All data is loaded once at construction; lookups are read-only.
type Store struct {
	countries  *countryTable
	agreements agreementPolicy
	hsCodes    *hsCatalog
}

type StoreConfig struct {
	CountriesCSVPath    string
	HSCatalogPath       string
	AgreementPolicyPath string
}

func NewStore(cfg StoreConfig) (*Store, error) {
	countries, err := loadCountries(cfg.CountriesCSVPath)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "load countries", err)
	}
	hsCodes, err := loadHSCatalog(cfg.HSCatalogPath)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "load hs catalog", err)
	}
	agreements, err := loadAgreementPolicy(cfg.AgreementPolicyPath)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "load agreement policy", err)
	}

	slog.Info("reference data loaded",
		"countries", len(countries.byName),
		"hs_entries", len(hsCodes.entries),
		"agreement_rules", len(agreements.Rules))

	return &Store{
		countries:  countries,
		agreements: agreements,
		hsCodes:    hsCodes,
	}, nil
}

func (s *Store) CanonicalCountry(name string) (string, bool) {
	return s.countries.canonical(name)
}

func (s *Store) RepresentativeMember(name string, role domain.TradeRole) (string, bool) {
	return s.agreements.representative(name, role)
}

func (s *Store) FindHSCode(product string) string {
	return s.hsCodes.find(product)
}
