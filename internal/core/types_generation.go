package core

// Availability is the capability's readiness as reported at call time.
// Eligible is true when the backing engine exists and could serve once ready;
// Available additionally requires it to be ready now.
type Availability struct {
	Available bool
	Eligible  bool
	Reason    string
}

// GenerateRequest carries one generation call: the full transcript plus the
// resolved sampling values. Nil pointers leave the choice to the engine.
type GenerateRequest struct {
	Messages    []ChatMessage
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Generation is the result of a synchronous generation call. Usage is nil when
// the engine does not report exact token counts.
type Generation struct {
	Text  string
	Usage *OpenAIUsage
}

// DeltaMode tells the stream framer how to read fragments from a FragmentStream.
type DeltaMode int

const (
	// DeltaIncremental fragments are appended as-is.
	DeltaIncremental DeltaMode = iota
	// DeltaCumulative fragments are growing snapshots of the whole response.
	DeltaCumulative
)

func (m DeltaMode) String() string {
	switch m {
	case DeltaIncremental:
		return "incremental"
	case DeltaCumulative:
		return "cumulative"
	default:
		return "unknown"
	}
}
