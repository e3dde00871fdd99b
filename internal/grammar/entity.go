package grammar

import "math/bits"

// Entity names a grammar symbol.
type Entity uint8

const (
	PreprocessingToken Entity = iota
	HeaderName
	HCharSequence
	QCharSequence
	Identifier
	IdentifierNondigit
	PPNumber
	CharacterLiteral
	CCharSequence
	CChar
	StringLiteral
	SCharSequence
	SChar
	EncodingPrefix
	UDSuffix
	EscapeSequence
	SimpleEscapeSequence
	OctalEscapeSequence
	HexadecimalEscapeSequence
	UniversalCharacterName
	HexQuad

	// primitives, resolved by code rather than by the table
	Digit
	NonzeroDigit
	OctalDigit
	HexadecimalDigit
	Nondigit
	Sign
	HChar
	QChar
	BasicCChar
	BasicSChar
	SimpleEscapeChar
	PreprocessingOpOrPunc
	RawString
	NonWhitespaceCharacter

	numEntities
)

const firstLeaf = Digit

var entityNames = [numEntities]string{
	PreprocessingToken:        "preprocessing_token",
	HeaderName:                "header_name",
	HCharSequence:             "h_char_sequence",
	QCharSequence:             "q_char_sequence",
	Identifier:                "identifier",
	IdentifierNondigit:        "identifier_nondigit",
	PPNumber:                  "pp_number",
	CharacterLiteral:          "character_literal",
	CCharSequence:             "c_char_sequence",
	CChar:                     "c_char",
	StringLiteral:             "string_literal",
	SCharSequence:             "s_char_sequence",
	SChar:                     "s_char",
	EncodingPrefix:            "encoding_prefix",
	UDSuffix:                  "ud_suffix",
	EscapeSequence:            "escape_sequence",
	SimpleEscapeSequence:      "simple_escape_sequence",
	OctalEscapeSequence:       "octal_escape_sequence",
	HexadecimalEscapeSequence: "hexadecimal_escape_sequence",
	UniversalCharacterName:    "universal_character_name",
	HexQuad:                   "hex_quad",
	Digit:                     "digit",
	NonzeroDigit:              "nonzero_digit",
	OctalDigit:                "octal_digit",
	HexadecimalDigit:          "hexadecimal_digit",
	Nondigit:                  "nondigit",
	Sign:                      "sign",
	HChar:                     "h_char",
	QChar:                     "q_char",
	BasicCChar:                "basic_c_char",
	BasicSChar:                "basic_s_char",
	SimpleEscapeChar:          "simple_escape_char",
	PreprocessingOpOrPunc:     "preprocessing_op_or_punc",
	RawString:                 "raw_string",
	NonWhitespaceCharacter:    "non_whitespace_character",
}

var entityByName = func() map[string]Entity {
	m := make(map[string]Entity, numEntities)
	for e, name := range entityNames {
		m[name] = Entity(e)
	}
	return m
}()

func (e Entity) String() string {
	if e < numEntities {
		return entityNames[e]
	}
	return "entity(?)"
}

// IsLeaf reports whether e is matched by code instead of by table rules.
func (e Entity) IsLeaf() bool { return e >= firstLeaf && e < numEntities }

// Lookup returns the entity with the given grammar name.
func Lookup(name string) (Entity, bool) {
	e, ok := entityByName[name]
	return e, ok
}

// Entities returns every entity in declaration order.
func Entities() []Entity {
	out := make([]Entity, numEntities)
	for i := range out {
		out[i] = Entity(i)
	}
	return out
}

// Set is a set of entities.
type Set uint64

func SetOf(es ...Entity) Set {
	var s Set
	for _, e := range es {
		s |= 1 << e
	}
	return s
}

func (s Set) Has(e Entity) bool { return s&(1<<e) != 0 }
func (s Set) With(e Entity) Set { return s | 1<<e }
func (s Set) Len() int          { return bits.OnesCount64(uint64(s)) }
