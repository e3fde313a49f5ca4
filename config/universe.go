package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Nifty50 is the default underlying universe.
var Nifty50 = []string{
	"ADANIENT", "ADANIPORTS", "APOLLOHOSP", "ASIANPAINT", "AXISBANK",
	"BAJAJ-AUTO", "BAJAJFINSV", "BAJFINANCE", "BHARTIARTL", "BEL",
	"BPCL", "BRITANNIA", "CIPLA", "COALINDIA", "DIVISLAB",
	"DRREDDY", "EICHERMOT", "GRASIM", "HCLTECH", "HDFCBANK",
	"HDFCLIFE", "HEROMOTOCO", "HINDALCO", "HINDUNILVR", "ICICIBANK",
	"INDIGO", "INFY", "ITC", "JIOFIN", "JSWSTEEL",
	"KOTAKBANK", "LT", "M&M", "MARUTI", "NESTLEIND",
	"NTPC", "ONGC", "POWERGRID", "RELIANCE", "SBILIFE",
	"SBIN", "SUNPHARMA", "TATACONSUM", "TATAPOWER", "TATASTEEL",
	"TCS", "TITAN", "ULTRACEMCO", "UPL", "WIPRO",
}

// Universe is a YAML file listing underlying symbols.
type Universe struct {
	Name    string   `yaml:"name"`
	Symbols []string `yaml:"symbols"`
}

// LoadUniverse loads a symbol universe from the given path.
func LoadUniverse(path string) (*Universe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file: %w", err)
	}
	var u Universe
	if err := yaml.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to parse universe file: %w", err)
	}
	u.Symbols = dedupeSymbols(u.Symbols)
	if len(u.Symbols) == 0 {
		return nil, fmt.Errorf("universe file %s lists no symbols", path)
	}
	return &u, nil
}

// dedupeSymbols upper-cases, trims and removes repeats, keeping first-seen order.
func dedupeSymbols(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
