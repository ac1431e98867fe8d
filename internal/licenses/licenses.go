// Package licenses maps free-text license and copyright fields onto a
// known set of licenses.
package licenses

import "strings"

// License describes one known license and what it permits.
type License struct {
	Code                string
	Name                string
	URL                 string
	AllowModifications  bool
	AllowRedistribution bool
}

// Registry holds every license Match can resolve to, in matching order.
var Registry = []License{
	{
		Code:                "cc0",
		Name:                "Public domain",
		URL:                 "https://creativecommons.org/publicdomain/zero/1.0/",
		AllowModifications:  true,
		AllowRedistribution: true,
	},
	{
		Code:                "cc-by",
		Name:                "Creative Commons - Attribution",
		URL:                 "https://creativecommons.org/licenses/by/2.0/",
		AllowModifications:  true,
		AllowRedistribution: true,
	},
	{
		Code:                "cc-by-sa",
		Name:                "Creative Commons - Attribution - Share alike",
		URL:                 "https://creativecommons.org/licenses/by-sa/4.0/",
		AllowModifications:  false,
		AllowRedistribution: true,
	},
	{
		Code:                "cc-by-nc",
		Name:                "Creative Commons - Attribution - Non-commercial",
		URL:                 "https://creativecommons.org/licenses/by-nc/4.0/",
		AllowModifications:  true,
		AllowRedistribution: true,
	},
	{
		Code:                "cc-by-nc-sa",
		Name:                "Creative Commons - Attribution - Non-commercial - Share alike",
		URL:                 "https://creativecommons.org/licenses/by-nc-sa/4.0/",
		AllowModifications:  false,
		AllowRedistribution: true,
	},
	{
		Code:                "cc-by-nd",
		Name:                "Creative Commons - Attribution - NoDerivatives",
		URL:                 "https://creativecommons.org/licenses/by-nd/4.0/",
		AllowModifications:  false,
		AllowRedistribution: true,
	},
	{
		Code:                "cc-by-nc-nd",
		Name:                "Creative Commons - Attribution - Non-commercial - NoDerivatives",
		URL:                 "https://creativecommons.org/licenses/by-nc-nd/4.0/",
		AllowModifications:  false,
		AllowRedistribution: true,
	},
}

// ByCode returns the license with the given code, or nil.
func ByCode(code string) *License {
	for i := range Registry {
		if Registry[i].Code == code {
			return &Registry[i]
		}
	}
	return nil
}

// Match resolves the first value that names a known license, either by
// code or by containing the license URL. Values are tried in order so a
// license tag wins over a copyright notice. Scheme and a trailing slash
// are ignored when comparing URLs. Returns nil when nothing matches.
func Match(values ...string) *License {
	for _, value := range values {
		v := normalize(value)
		if v == "" {
			continue
		}
		for i := range Registry {
			l := &Registry[i]
			if v == l.Code {
				return l
			}
			if strings.Contains(v, normalize(l.URL)) {
				return l
			}
		}
	}
	return nil
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	return strings.TrimSuffix(s, "/")
}
