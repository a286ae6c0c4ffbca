package reflux

// WildcardKey selects every keyed entity of an AsyncState in a RESET action.
const WildcardKey = "*"

// Action is the unit of change flowing through a store.
type Action struct {
	// Type identifies the action. Suffixed types are derived from a prefix
	// with TypeOf.
	Type string

	// Payload carries the action data.
	Payload Payload

	// Key selects a keyed entity scope of an AsyncState. Empty targets the
	// root scope.
	Key string

	// HTTP holds declarative requests executed by the Runner in addition to
	// configured tasks.
	HTTP []HTTPRequest
}
