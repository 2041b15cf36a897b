package isa

import "sort"

// Info holds the static metadata for one real (non-synonym) mnemonic.
type Info struct {
	Encoding string // 16-char MSB-first pattern of '0'/'1'/slot letters.
	Syntax   string // literal tokens interleaved with {slot} placeholders.
	Opcode   uint16 // literal bits, slot bits zeroed.
	Mask     uint16 // 1 where literal, 0 where slot.
}

// rawEncodings is the bit-exact instruction table, copied verbatim from the
// original idli ISA definition (original_source/scripts/isa.py), with one
// deliberate change: push/pop use a dedicated 7-bit register-mask field (the
// 'd' operand slot) under the previously-unused 0b11111 prefix, per
// spec.md's data model (§3, §4.3) rather than the GREG-pair-range form the
// Python source used. See DESIGN.md / SPEC_FULL.md for why.
var rawEncodings = map[string]string{
	"nop": "0000000000000000",

	"beqz": "0000000100bbbccc",
	"bnez": "0000000101bbbccc",
	"bltz": "0000000110bbbccc",
	"bgez": "0000000111bbbccc",

	"eq":  "01000pp0qqbbbccc",
	"ne":  "01000pp1qqbbbccc",
	"lt":  "01001pp0qqbbbccc",
	"ltu": "01001pp1qqbbbccc",
	"ge":  "01010pp0qqbbbccc",
	"geu": "01010pp1qqbbbccc",

	"putp": "01011pp0qqbbbccc",

	"eqz": "01011pp1qqbbb000",
	"nez": "01011pp1qqbbb001",
	"ltz": "01011pp1qqbbb010",
	"gez": "01011pp1qqbbb011",

	"putpf": "01011pp1qq000100",
	"putpt": "01011pp1qq001100",

	"srl": "01100ppaaabbbccc",
	"sra": "01101ppaaabbbccc",
	"ror": "01110ppaaabbbccc",
	"sll": "01111ppaaabbbccc",

	"!ld": "10000ppaaabbbccc",
	"!st": "10001ppaaabbbccc",

	"ld!": "10010ppaaabbbccc",
	"st!": "10011ppaaabbbccc",

	"ld": "10100ppaaabbbccc",
	"st": "10101ppaaabbbccc",

	"extbl": "10110ppaaabbb010",
	"extbh": "10110ppaaabbb011",
	"insbl": "10110ppaaabbb100",
	"insbh": "10110ppaaabbb101",
	"not":   "10110ppaaabbb110",
	"neg":   "10110ppaaabbb111",

	"inc":  "10111ppaaa000000",
	"dec":  "10111ppaaa000001",
	"urxb": "10111ppaaa000010",
	"urx":  "10111ppaaa000011",

	"add": "11000ppaaabbbccc",
	"sub": "11001ppaaabbbccc",

	"and":  "11010ppaaabbbccc",
	"andn": "11011ppaaabbbccc",
	"or":   "11100ppaaabbbccc",
	"xor":  "11101ppaaabbbccc",

	"mov":   "11110ppaaa000ccc",
	"addpc": "11110ppaaa010ccc",

	"bt": "11110pp000001ccc",
	"bf": "11110pp000011ccc",

	"blt": "11110pp000101ccc",
	"blf": "11110pp000111ccc",

	"jt": "11110pp001001ccc",
	"jf": "11110pp001011ccc",

	"jlt": "11110pp001101ccc",
	"jlf": "11110pp001111ccc",

	"utxb": "11110pp010001ccc",
	"utx":  "11110pp010011ccc",

	// Redesigned push/pop: 7-bit mask under the unused 0b11111 prefix.
	"push": "1111100ppddddddd",
	"pop":  "1111101ppddddddd",
}

// rawSyntax gives the printable/parseable syntax template for every real
// mnemonic. Copied from isa.py's SYNTAX table, except push/pop which use the
// comma-separated register-list form for the 'd' slot.
var rawSyntax = map[string]string{
	"nop":   "nop",
	"beqz":  "beqz {b}, {c}",
	"bnez":  "bnez {b}, {c}",
	"bltz":  "bltz {b}, {c}",
	"bgez":  "bgez {b}, {c}",
	"eq":    "eq.{p} {q}, {b}, {c}",
	"ne":    "ne.{p} {q}, {b}, {c}",
	"lt":    "lt.{p} {q}, {b}, {c}",
	"ltu":   "ltu.{p} {q}, {b}, {c}",
	"ge":    "ge.{p} {q}, {b}, {c}",
	"geu":   "geu.{p} {q}, {b}, {c}",
	"putp":  "putp.{p} {q}, {b}, {c}",
	"eqz":   "eqz.{p} {q}, {b}",
	"nez":   "nez.{p} {q}, {b}",
	"ltz":   "ltz.{p} {q}, {b}",
	"gez":   "gez.{p} {q}, {b}",
	"putpf": "putpf.{p} {q}",
	"putpt": "putpt.{p} {q}",
	"srl":   "srl.{p} {a}, {b}, {c}",
	"sra":   "sra.{p} {a}, {b}, {c}",
	"ror":   "ror.{p} {a}, {b}, {c}",
	"sll":   "sll.{p} {a}, {b}, {c}",
	"!ld":   "!ld.{p} {a}, {b}, {c}",
	"!st":   "!st.{p} {a}, {b}, {c}",
	"ld!":   "ld!.{p} {a}, {b}, {c}",
	"st!":   "st!.{p} {a}, {b}, {c}",
	"ld":    "ld.{p} {a}, {b}, {c}",
	"st":    "st.{p} {a}, {b}, {c}",
	"extbl": "extbl.{p} {a}, {b}",
	"extbh": "extbh.{p} {a}, {b}",
	"insbl": "insbl.{p} {a}, {b}",
	"insbh": "insbh.{p} {a}, {b}",
	"not":   "not.{p} {a}, {b}",
	"neg":   "neg.{p} {a}, {b}",
	"inc":   "inc.{p} {a}",
	"dec":   "dec.{p} {a}",
	"urxb":  "urxb.{p} {a}",
	"urx":   "urx.{p} {a}",
	"add":   "add.{p} {a}, {b}, {c}",
	"sub":   "sub.{p} {a}, {b}, {c}",
	"and":   "and.{p} {a}, {b}, {c}",
	"andn":  "andn.{p} {a}, {b}, {c}",
	"or":    "or.{p} {a}, {b}, {c}",
	"xor":   "xor.{p} {a}, {b}, {c}",
	"mov":   "mov.{p} {a}, {c}",
	"addpc": "addpc.{p} {a}, {c}",
	"bt":    "bt.{p} {c}",
	"bf":    "bf.{p} {c}",
	"blt":   "blt.{p} {c}",
	"blf":   "blf.{p} {c}",
	"jt":    "jt.{p} {c}",
	"jf":    "jf.{p} {c}",
	"jlt":   "jlt.{p} {c}",
	"jlf":   "jlf.{p} {c}",
	"utxb":  "utxb.{p} {c}",
	"utx":   "utx.{p} {c}",
	"push":  "push.{p} {d}",
	"pop":   "pop.{p} {d}",
}

// Catalog is the static instruction table, populated once at init time.
var Catalog = map[string]Info{}

func init() {
	for name, pattern := range rawEncodings {
		validatePattern(name, pattern)
		opcode, mask := opcodeAndMask(pattern)
		Catalog[name] = Info{
			Encoding: pattern,
			Syntax:   rawSyntax[name],
			Opcode:   opcode,
			Mask:     mask,
		}
	}
}

// Mnemonics returns every real mnemonic in the catalog, sorted.
func Mnemonics() []string {
	names := make([]string, 0, len(Catalog))
	for name := range Catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SynonymDefault describes how a synonym fills in an operand the user
// didn't type: either by copying the value of another slot that was parsed
// from the synonym's own syntax, or a fixed literal value.
type SynonymDefault struct {
	Ref   string // non-empty: copy the already-parsed value of this slot.
	Value uint8  // used when Ref == "".
}

// Synonym is an assembler-level mnemonic that rewrites to a real
// instruction before encoding.
type Synonym struct {
	Syntax   string
	Real     string
	Defaults map[string]SynonymDefault
}

// Synonyms is the fixed synonym table, copied verbatim from isa.py.
var Synonyms = map[string]Synonym{
	"movz": {
		Syntax:   "movz.{p} {a}",
		Real:     "xor",
		Defaults: map[string]SynonymDefault{"b": {Ref: "a"}, "c": {Ref: "a"}},
	},
	"b": {
		Syntax:   "b {c}",
		Real:     "bt",
		Defaults: map[string]SynonymDefault{"p": {Value: PT}},
	},
	"j": {
		Syntax:   "j {c}",
		Real:     "jt",
		Defaults: map[string]SynonymDefault{"p": {Value: PT}},
	},
	"bl": {
		Syntax:   "bl {c}",
		Real:     "blt",
		Defaults: map[string]SynonymDefault{"p": {Value: PT}},
	},
	"jl": {
		Syntax:   "jl {c}",
		Real:     "jlt",
		Defaults: map[string]SynonymDefault{"p": {Value: PT}},
	},
	"ret": {
		Syntax:   "ret.{p} lr",
		Real:     "jt",
		Defaults: map[string]SynonymDefault{"c": {Value: LR}},
	},
	// getp is preserved as-is from the original source: its real
	// instruction is inc with no operand defaults, which only works
	// because getp's own syntax happens to supply both 'a' and 'p' - it
	// does not actually read the predicate bit into the register. Not one
	// of the three named bugs in spec.md §9, so left alone.
	"getp": {
		Syntax:   "getp {a}, {p}",
		Real:     "inc",
		Defaults: map[string]SynonymDefault{},
	},
}

// InstrsReadA is the set of mnemonics that read operand 'a' as a source
// (not just a destination), per spec.md §4.6.
var InstrsReadA = map[string]bool{
	"!st":   true,
	"st!":   true,
	"st":    true,
	"insbl": true,
	"insbh": true,
	"inc":   true,
	"dec":   true,
}

// BranchRegMnemonics are the register-vs-zero branches.
var BranchRegMnemonics = map[string]bool{
	"beqz": true,
	"bnez": true,
	"bltz": true,
	"bgez": true,
}

// BranchPredMnemonics are the predicated branch/jump family (bt/bf/blt/blf,
// jt/jf/jlt/jlf).
var BranchPredMnemonics = map[string]bool{
	"bt": true, "bf": true, "blt": true, "blf": true,
	"jt": true, "jf": true, "jlt": true, "jlf": true,
}

// JumpMnemonics is the absolute-target subset of BranchPredMnemonics.
var JumpMnemonics = map[string]bool{
	"jt": true, "jf": true, "jlt": true, "jlf": true,
}

// LinkMnemonics are the predicated branch/jump forms that write lr.
var LinkMnemonics = map[string]bool{
	"blt": true, "blf": true, "jlt": true, "jlf": true,
}

// NegatedPredMnemonics invert the gating predicate before the check.
var NegatedPredMnemonics = map[string]bool{
	"bf": true, "blf": true, "jf": true, "jlf": true,
}
