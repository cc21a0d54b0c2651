package model

// SummaryState carries the summary vectors published by the previous report
// step, keyed by mnemonic. Schedule limits may reference these instead of
// carrying a literal number, so the evaluators resolve every limit against
// the current summary before comparing.
type SummaryState map[string]float64

// Get returns the value stored under key, or def when the key is absent.
func (s SummaryState) Get(key string, def float64) float64 {
	if s == nil {
		return def
	}
	if v, ok := s[key]; ok {
		return v
	}
	return def
}

// UDAValue is a limit value that is either a literal number or a reference
// to a summary vector resolved at evaluation time.
type UDAValue struct {
	Value float64
	Key   string
}

// UDA wraps a literal limit value.
func UDA(v float64) UDAValue { return UDAValue{Value: v} }

// UDAKey wraps a summary-vector reference.
func UDAKey(key string) UDAValue { return UDAValue{Key: key} }

// Resolve returns the literal value, or the referenced summary vector when
// the value carries a key. A dangling reference resolves to zero, which the
// control-set Present flags keep from ever being compared.
func (u UDAValue) Resolve(sum SummaryState) float64 {
	if u.Key != "" {
		return sum.Get(u.Key, 0)
	}
	return u.Value
}
