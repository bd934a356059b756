package alpm

import (
	"strings"

	"github.com/github/go-spdx/v2/spdxexp"
)

// LicenseExpression joins the licenses of p that are valid SPDX
// expressions with AND. Licenses that are not, such as "custom", are
// returned in invalid.
func (p Package) LicenseExpression() (expr string, invalid []string, err error) {
	licenses, err := p.Licenses().Collect()
	if err != nil {
		return "", nil, err
	}
	var valid []string
	for _, l := range licenses {
		if ok, _ := spdxexp.ValidateLicenses([]string{l}); !ok {
			invalid = append(invalid, l)
			continue
		}
		valid = append(valid, l)
	}
	if len(valid) < 2 {
		return strings.Join(valid, ""), invalid, nil
	}
	for i, l := range valid {
		if strings.Contains(l, " ") {
			valid[i] = "(" + l + ")"
		}
	}
	return strings.Join(valid, " AND "), invalid, nil
}
