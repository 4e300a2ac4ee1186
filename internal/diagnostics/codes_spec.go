package diagnostics

// Stable E####/W#### codes named directly in spec.md. These sit
// alongside the legacy PAR###/MOD###/... taxonomy in codes.go — the
// legacy codes back *Report values threaded through the module
// loader/linker, while the E####/W#### codes back *Diagnostic values
// produced by the lexer/parser/resolver for the spans they name.
const (
	// Lexer (§4.1)
	EUnclosedString  = "E1001"
	EUnmatchedClose  = "E1002"
	EUnclosedBracket = "E1004"

	// Module header (§4.2)
	EMultipleModules  = "E1516"
	EMissingModule    = "E1517"
	ELegacyBracedMod  = "E1518"
	EModuleNotAtStart = "E1519"

	// Decorators (§4.2)
	ETestArgMissing   = "E1510"
	ETestArgNotString = "E1511"
	EInlineHasArgs    = "E1513"
	ENativeNoSig      = "E1526"

	// Type signatures / decls (§4.2)
	ESigFollowedByEq = "E1528"

	// match legacy syntax (§4.2)
	ELegacyMatchOr = "E1530"

	// Resolver (§4.3)
	WUnusedImport  = "W2100"
	EUnknownImport = "E2005"
	EUnknownRef    = "E3000"

	// Sigils (§4.1)
	WUnknownSigilTag = "W2101"
)
