package generator

import "errors"

// Pipeline error kinds. Handlers match on these with errors.Is to pick a
// response status; vendor detail never rides on them (it is logged at the
// provider boundary instead).
var (
	// ErrProviderUnavailable means the requested tier has no credential
	// configured.
	ErrProviderUnavailable = errors.New("ai provider unavailable")

	// ErrRequestFailed is the normalized form of any transport or vendor
	// failure during generation.
	ErrRequestFailed = errors.New("ai request failed")

	// ErrMalformedResponse means the provider returned something that is
	// not parseable JSON.
	ErrMalformedResponse = errors.New("malformed ai response")

	// ErrStructuralInvalid means the parsed response matched neither the
	// flat task-list shape nor the worksheet shape.
	ErrStructuralInvalid = errors.New("structurally invalid ai response")
)
