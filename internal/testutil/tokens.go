package testutil

// RepeatingGenerator returns the same token on every call.
//
// No valid run can use it for more than one node: the scheduler rejects
// duplicate task tokens. Tests use it to exercise that check, and
// single-node scenarios use it for a stable artifact prefix.
type RepeatingGenerator struct {
	token string
}

// NewRepeatingGenerator creates a generator returning token. An empty token
// defaults to "test-task".
func NewRepeatingGenerator(token string) *RepeatingGenerator {
	if token == "" {
		token = "test-task"
	}
	return &RepeatingGenerator{token: token}
}

// Generate returns the fixed token.
func (g *RepeatingGenerator) Generate() string {
	return g.token
}
