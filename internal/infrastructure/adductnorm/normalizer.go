package adductnorm

import (
	"regexp"
	"strings"
)

var chargeSuffix = regexp.MustCompile(`[1-3]?[+-]{1,2}$`)

// defaultConversions maps frequent spelling variants to the form used by
// the built-in adduct table.
var defaultConversions = map[string]string{
	"[M+H-H2O]+":     "[M-H2O+H]+",
	"[M-H-H2O]-":     "[M-H2O-H]-",
	"[M+HCOO]-":      "[M+FA-H]-",
	"[M+HCOOH-H]-":   "[M+FA-H]-",
	"[M-H+HCOOH]-":   "[M+FA-H]-",
	"[M+CH3COO]-":    "[M+Hac-H]-",
	"[M+CH3COOH-H]-": "[M+Hac-H]-",
	"[M+ACN+H]+":     "[M+CH3CN+H]+",
	"[M+H+Na]2+":     "[M+Na+H]2+",
	"[M+H+K]2+":      "[M+K+H]2+",
	"[M+H+NH4]2+":    "[M+NH4+H]2+",
}

type Normalizer struct {
	conversions map[string]string
}

func New() *Normalizer {
	return NewWithConversions(defaultConversions)
}

func NewWithConversions(conversions map[string]string) *Normalizer {
	copied := make(map[string]string, len(conversions))
	for k, v := range conversions {
		copied[k] = v
	}
	return &Normalizer{conversions: copied}
}

// Clean brings an adduct into bracketed form, e.g. "M+H+" becomes "[M+H]+".
func (n *Normalizer) Clean(raw string) string {
	adduct := strings.TrimSpace(raw)
	adduct = strings.ReplaceAll(adduct, "\n", "")
	adduct = strings.ReplaceAll(adduct, "*", "")
	adduct = strings.ReplaceAll(adduct, "++", "2+")
	adduct = strings.ReplaceAll(adduct, "--", "2-")
	if adduct == "" {
		return ""
	}

	if strings.HasPrefix(adduct, "[") {
		return n.convert(adduct)
	}
	if strings.HasSuffix(adduct, "]") {
		return n.convert("[" + adduct)
	}

	core := strings.Fields(adduct)[0]
	charge := chargeSuffix.FindString(core)
	if charge == "" {
		return n.convert("[" + core + "]")
	}
	return n.convert("[" + strings.TrimSuffix(core, charge) + "]" + charge)
}

func (n *Normalizer) convert(adduct string) string {
	if converted, ok := n.conversions[adduct]; ok {
		return converted
	}
	return adduct
}
