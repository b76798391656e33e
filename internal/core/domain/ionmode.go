package domain

import "strings"

type Ionmode string

const (
	IonmodePositive Ionmode = "positive"
	IonmodeNegative Ionmode = "negative"
	IonmodeUnknown  Ionmode = "n/a"
)

// IsPolarity reports whether the value is a confirmed polarity.
func (m Ionmode) IsPolarity() bool {
	return m == IonmodePositive || m == IonmodeNegative
}

// IsLowercase reports whether the raw value is already harmonized.
func IsLowercase(raw string) bool {
	return raw == strings.ToLower(raw)
}
