// Package coupon holds the read-only coupon catalog and the coupon/country
// compatibility check used by both rule validation and dispatch.
package coupon

import (
	"encoding/json"
	"strings"
)

// Coupon is an external entity; the engine only reads it.
type Coupon struct {
	ID        string      `json:"id" yaml:"id"`
	Name      string      `json:"name" yaml:"name"`
	Code      string      `json:"code" yaml:"code"`
	Countries CountryList `json:"countries" yaml:"countries"`
}

// CountryList tolerates both a plain list and a JSON-string-encoded list
// ("[\"FR\",\"DE\"]"), which some upstream exports still produce.
type CountryList []string

func (l *CountryList) UnmarshalYAML(unmarshal func(any) error) error {
	var raw []string
	if err := unmarshal(&raw); err == nil {
		*l = normalize(raw)
		return nil
	}
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return l.fromString(s)
}

func (l *CountryList) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err == nil {
		*l = normalize(raw)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return l.fromString(s)
}

func (l *CountryList) fromString(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*l = nil
		return nil
	}
	var raw []string
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return err
	}
	*l = normalize(raw)
	return nil
}

func normalize(raw []string) CountryList {
	out := make(CountryList, 0, len(raw))
	for _, c := range raw {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Compatible reports whether c may be used by a rule scoped to ruleCountries.
// A rule with no country restriction accepts any coupon; a restricted rule
// requires the coupon's countries to be a superset of the rule's. A coupon
// with no countries of its own is therefore only compatible with unrestricted
// rules.
func Compatible(c Coupon, ruleCountries []string) bool {
	if len(ruleCountries) == 0 {
		return true
	}
	allowed := make(map[string]struct{}, len(c.Countries))
	for _, cc := range c.Countries {
		allowed[strings.ToUpper(cc)] = struct{}{}
	}
	for _, rc := range ruleCountries {
		if _, ok := allowed[strings.ToUpper(rc)]; !ok {
			return false
		}
	}
	return true
}
