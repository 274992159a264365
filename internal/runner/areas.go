package runner

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnknownArea is returned for an area name that has no registered tests.
var ErrUnknownArea = errors.New("unknown area")

// Area maps a dashboard area to the top-level tests covering it.
type Area struct {
	Name  string
	Tests []string
}

var areas = []Area{
	{Name: "auth", Tests: []string{"TestAuthentication"}},
	{Name: "attributes", Tests: []string{"TestAttributes"}},
	{Name: "channels", Tests: []string{"TestChannels"}},
	{Name: "customers", Tests: []string{"TestCustomers"}},
	{Name: "draft_orders", Tests: []string{"TestDraftOrders"}},
	{Name: "extensions", Tests: []string{"TestInstalledExtensions", "TestExploreExtensions"}},
	{Name: "gift_cards", Tests: []string{"TestGiftCards"}},
	{Name: "models", Tests: []string{"TestModels", "TestModelTypes"}},
	{Name: "orders", Tests: []string{"TestOrders"}},
	{Name: "permission_groups", Tests: []string{"TestPermissionGroups"}},
	{Name: "playground", Tests: []string{"TestPlayground"}},
	{Name: "products", Tests: []string{"TestProducts", "TestCatalogStructure"}},
	{Name: "promotions", Tests: []string{"TestPromotions"}},
	{Name: "refund_settings", Tests: []string{"TestRefundSettings"}},
	{Name: "signup", Tests: []string{"TestSignup"}},
	{Name: "site_settings", Tests: []string{"TestSiteSettings"}},
	{Name: "staff", Tests: []string{"TestStaffMembers"}},
	{Name: "structures", Tests: []string{"TestStructures"}},
	{Name: "taxes", Tests: []string{"TestTaxes"}},
	{Name: "translations", Tests: []string{"TestTranslations"}},
	{Name: "vouchers", Tests: []string{"TestVouchers"}},
	{Name: "warehouses", Tests: []string{"TestWarehouses", "TestShippingZones"}},
}

// Areas returns every registered area.
func Areas() []Area {
	out := make([]Area, len(areas))
	copy(out, areas)
	return out
}

// LookupArea finds an area by name. Dashes and case are ignored.
func LookupArea(name string) (Area, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for _, a := range areas {
		if a.Name == n {
			return a, nil
		}
	}
	return Area{}, errors.Wrapf(ErrUnknownArea, "%q", name)
}

// AreaTitle turns an area name into a heading, e.g. "Permission Groups".
func AreaTitle(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

// RunPattern builds the -run expression selecting the tests of the named
// areas. No names selects everything and returns "".
func RunPattern(names []string) (string, error) {
	var tests []string
	seen := map[string]bool{}
	for _, n := range names {
		a, err := LookupArea(n)
		if err != nil {
			return "", err
		}
		for _, t := range a.Tests {
			if !seen[t] {
				seen[t] = true
				tests = append(tests, t)
			}
		}
	}
	return exactPattern(tests), nil
}

// exactPattern matches exactly the given top-level tests.
func exactPattern(tests []string) string {
	if len(tests) == 0 {
		return ""
	}
	quoted := make([]string, len(tests))
	for i, t := range tests {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return "^(" + strings.Join(quoted, "|") + ")$"
}
