// Package modules holds the static registry of optional feature modules and
// their dependency tiers. Nothing in the engine depends on it; the transport
// layer exposes it read-only so installers and settings screens can render
// what is available.
package modules

// Info describes one optional module.
type Info struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Tier         int      `json:"tier"`
	Description  string   `json:"description"`
	Dependencies []string `json:"dependencies"`
}

// CoreID is the implicit dependency of every module.
const CoreID = "core"

var registry = []Info{
	{ID: "customer_accounts", Name: "Customer Accounts", Version: "1.0.0", Tier: 1,
		Description: "Credit tracking and customer database", Dependencies: []string{CoreID}},
	{ID: "inventory_management", Name: "Inventory Management", Version: "1.0.0", Tier: 1,
		Description: "Stock alerts and reorder points", Dependencies: []string{CoreID}},
	{ID: "basic_reporting", Name: "Basic Reporting", Version: "1.0.0", Tier: 1,
		Description: "Daily and weekly sales reports", Dependencies: []string{CoreID}},
	{ID: "supplier_management", Name: "Supplier Management", Version: "1.0.0", Tier: 2,
		Description: "Purchase orders and supplier tracking", Dependencies: []string{CoreID, "inventory_management"}},
	{ID: "barcode_scanner", Name: "Barcode Scanner", Version: "1.0.0", Tier: 2,
		Description: "Product scanning capability", Dependencies: []string{CoreID}},
	{ID: "advanced_reporting", Name: "Advanced Reporting", Version: "1.0.0", Tier: 2,
		Description: "Profit analysis, trends, tax reports", Dependencies: []string{CoreID, "basic_reporting"}},
	{ID: "mobile_integration", Name: "Mobile Integration", Version: "1.0.0", Tier: 3,
		Description: "SMS notifications and mobile payments", Dependencies: []string{CoreID, "customer_accounts"}},
	{ID: "loyalty_programs", Name: "Loyalty Programs", Version: "1.0.0", Tier: 3,
		Description: "Points and rewards for repeat customers", Dependencies: []string{CoreID, "customer_accounts"}},
}

// All returns the full registry in declaration order.
func All() []Info {
	out := make([]Info, len(registry))
	copy(out, registry)
	return out
}

// Lookup finds a module by id.
func Lookup(id string) (Info, bool) {
	for _, m := range registry {
		if m.ID == id {
			return m, true
		}
	}
	return Info{}, false
}

// ByTier returns all modules in the given tier.
func ByTier(tier int) []Info {
	out := make([]Info, 0, len(registry))
	for _, m := range registry {
		if m.Tier == tier {
			out = append(out, m)
		}
	}
	return out
}

// DependenciesSatisfied reports whether the module's dependency set is covered
// by the enabled set. The core is always considered enabled.
func DependenciesSatisfied(id string, enabled map[string]bool) bool {
	m, ok := Lookup(id)
	if !ok {
		return false
	}
	for _, dep := range m.Dependencies {
		if dep == CoreID {
			continue
		}
		if !enabled[dep] {
			return false
		}
	}
	return true
}
