// Package profile holds the three fixed generation profiles and the router
// that maps a requested model name plus sampling values onto one of them.
package profile

import "github.com/tanu360/apple-intelligence-api/internal/core"

// Routing thresholds for requests that do not name a fixed profile.
const (
	deterministicBelow = 0.2
	creativeFrom       = 0.8
)

// Profile is a named sampling preset.
type Profile struct {
	Name        string
	Temperature float64
	TopP        float64
}

var (
	// Base is the balanced profile. Requests routed to it keep their own
	// sampling values; Temperature/TopP here are the nominal defaults.
	Base = Profile{Name: core.ModelBase, Temperature: core.DefaultTemperature, TopP: core.DefaultTopP}
	// Deterministic favors repeatable output.
	Deterministic = Profile{Name: core.ModelDeterministic, Temperature: 0.1, TopP: 0.0}
	// Creative favors varied output.
	Creative = Profile{Name: core.ModelCreative, Temperature: 0.9, TopP: 0.9}
)

// All returns the profiles in the order they are listed on /v1/models.
func All() []Profile {
	return []Profile{Base, Deterministic, Creative}
}

// Resolution is the outcome of routing one request.
type Resolution struct {
	Profile     Profile
	Temperature *float64
	TopP        *float64
}

// Model is the name reported back to the client: always the resolved
// profile's canonical name, whatever the caller asked for.
func (r Resolution) Model() string {
	return r.Profile.Name
}

// Resolve picks the profile for a request. Nil temperature/topP never
// satisfy a threshold comparison.
func Resolve(model string, temperature, topP *float64) Resolution {
	switch model {
	case core.ModelDeterministic:
		return preset(Deterministic)
	case core.ModelCreative:
		return preset(Creative)
	}

	if below(temperature, deterministicBelow) || below(topP, deterministicBelow) {
		return preset(Deterministic)
	}
	if atLeast(temperature, creativeFrom) || atLeast(topP, creativeFrom) {
		return preset(Creative)
	}
	return Resolution{Profile: Base, Temperature: temperature, TopP: topP}
}

func preset(p Profile) Resolution {
	temperature, topP := p.Temperature, p.TopP
	return Resolution{Profile: p, Temperature: &temperature, TopP: &topP}
}

func below(v *float64, limit float64) bool {
	return v != nil && *v < limit
}

func atLeast(v *float64, limit float64) bool {
	return v != nil && *v >= limit
}
