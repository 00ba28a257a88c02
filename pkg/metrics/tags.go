package metrics

import (
	"sort"
	"strings"
)

// Tags are key/value labels attached to samples.
type Tags map[string]string

// TagScenario is the tag every scenario-scoped sample carries.
const TagScenario = "scenario"

// SubmetricName renders "base{k:v,k2:v2}" with keys in sorted order.
func SubmetricName(base string, tags Tags) string {
	if len(tags) == 0 {
		return base
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(base)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(tags[k])
	}
	b.WriteByte('}')
	return b.String()
}

// SplitSubmetricName is the inverse of SubmetricName.
func SplitSubmetricName(name string) (string, Tags) {
	open := strings.IndexByte(name, '{')
	if open < 0 || !strings.HasSuffix(name, "}") {
		return name, nil
	}
	base := name[:open]
	body := name[open+1 : len(name)-1]
	if body == "" {
		return base, nil
	}
	tags := Tags{}
	for _, pair := range strings.Split(body, ",") {
		k, v, _ := strings.Cut(pair, ":")
		tags[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return base, tags
}
