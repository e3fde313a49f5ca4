package processor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"nfowide/models"
)

var optionPrefixPattern = regexp.MustCompile(`^(\d+)(?:\.0+)?(CE|PE)$`)

// PrefixFor returns the column prefix of a resolved contract: the roll
// bucket for futures and {strike}{CE|PE} for options.
func PrefixFor(c models.Contract) string {
	if c.Kind == models.KindOption {
		return strconv.FormatInt(c.Strike, 10) + string(c.OptionType)
	}
	return string(c.Bucket)
}

// FormatStrike renders a strike without a trailing ".0" so a strike read
// as 2600.0 names the same column as 2600.
func FormatStrike(strike float64) string {
	return strconv.FormatFloat(strike, 'f', -1, 64)
}

// ColumnName joins a prefix and a field into a data column name.
func ColumnName(prefix string, field models.Field) string {
	return prefix + "_" + string(field)
}

func metaKey(name string) models.ColumnKey {
	return models.ColumnKey{Name: name, Meta: true}
}

func dataKey(c models.Contract, field models.Field) models.ColumnKey {
	prefix := PrefixFor(c)
	key := models.ColumnKey{Name: ColumnName(prefix, field), Prefix: prefix, Field: field}
	if c.Kind == models.KindOption {
		key.Option = true
		key.Strike = c.Strike
		key.OptionType = c.OptionType
	}
	return key
}

// Synthesize returns the full column namespace of one symbol: the metadata
// columns followed by six data columns per distinct contract prefix. It is
// computed before any storage is allocated.
func Synthesize(groups []ContractRows) []models.ColumnKey {
	keys := make([]models.ColumnKey, 0, len(models.MetadataColumns)+len(groups)*len(models.Fields))
	for _, name := range models.MetadataColumns {
		keys = append(keys, metaKey(name))
	}
	seen := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		prefix := PrefixFor(g.Contract)
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		for _, f := range models.Fields {
			keys = append(keys, dataKey(g.Contract, f))
		}
	}
	return keys
}

// ParseColumnKey derives a ColumnKey from a column name coming from
// outside the pivot, such as a template schema. Option names written with
// a float strike (2600.0PE_Close) are normalised to the pivot's own name.
// Names without a known field suffix keep the whole name as their prefix.
func ParseColumnKey(name string) models.ColumnKey {
	for _, m := range models.MetadataColumns {
		if name == m {
			return metaKey(name)
		}
	}

	key := models.ColumnKey{Name: name, Prefix: name}
	for _, f := range models.Fields {
		suffix := "_" + string(f)
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			key.Prefix = strings.TrimSuffix(name, suffix)
			key.Field = f
			break
		}
	}
	if key.Field == "" {
		return key
	}

	if m := optionPrefixPattern.FindStringSubmatch(key.Prefix); m != nil {
		if strike, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			key.Option = true
			key.Strike = strike
			key.OptionType = models.OptionType(m[2])
			key.Prefix = FormatStrike(float64(strike)) + m[2]
			key.Name = ColumnName(key.Prefix, key.Field)
		}
	}
	return key
}

func metaRank(name string) int {
	for i, m := range models.MetadataColumns {
		if m == name {
			return i
		}
	}
	return len(models.MetadataColumns)
}

// columnLess orders metadata first, then options by strike, CE before PE
// and field name, then everything else by prefix and field.
func columnLess(a, b models.ColumnKey) bool {
	if a.Meta != b.Meta {
		return a.Meta
	}
	if a.Meta {
		return metaRank(a.Name) < metaRank(b.Name)
	}
	if a.Option != b.Option {
		return a.Option
	}
	if a.Option {
		if a.Strike != b.Strike {
			return a.Strike < b.Strike
		}
		if a.OptionType != b.OptionType {
			return a.OptionType == models.OptionCall
		}
		return a.Field < b.Field
	}
	if a.Prefix != b.Prefix {
		return a.Prefix < b.Prefix
	}
	if a.Field != b.Field {
		return a.Field < b.Field
	}
	return a.Name < b.Name
}

// SortColumns orders keys in place into the finalized column order.
func SortColumns(keys []models.ColumnKey) {
	sort.SliceStable(keys, func(i, j int) bool { return columnLess(keys[i], keys[j]) })
}
