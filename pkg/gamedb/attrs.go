package gamedb

import "strings"

// A_USER_START is the first attribute number available for user-defined attrs.
const A_USER_START = 256

// Built-in attribute numbers referenced by the converters.
const (
	A_PASS     = 5
	A_DESC     = 6
	A_MONEY    = 25
	A_LOCK     = 42
	A_NAME     = 43
	A_LENTER   = 59
	A_LLEAVE   = 60
	A_LPAGE    = 61
	A_LUSE     = 62
	A_LGIVE    = 63
	A_LTPORT   = 85
	A_LDROP    = 86
	A_LRECEIVE = 87
	A_LLINK    = 93
	A_LTELOUT  = 94
	A_LUSER    = 97
	A_LPARENT  = 98
	A_LCONTROL = 99
)

// T5X attributes that only TinyMUX defines.
const (
	T5XSpeechLock  = 209
	T5XGetFromLock = 213
	T5XMailLock    = 216
	T5XOpenLock    = 217
	T5XCreated     = 219
	T5XModified    = 220
	T5XVisibleLock = 222
)

// Attributes 1-125 share numbers across the TinyMUD-derived servers.
var commonAttrs = map[int]string{
	1:   "OSUCC",
	2:   "OFAIL",
	3:   "FAIL",
	4:   "SUCC",
	5:   "PASS",
	6:   "DESC",
	7:   "SEX",
	8:   "ODROP",
	9:   "DROP",
	10:  "OKILL",
	11:  "KILL",
	12:  "ASUCC",
	13:  "AFAIL",
	14:  "ADROP",
	15:  "AKILL",
	16:  "AUSE",
	17:  "CHARGES",
	18:  "RUNOUT",
	19:  "STARTUP",
	20:  "ACLONE",
	21:  "APAY",
	22:  "OPAY",
	23:  "PAY",
	24:  "COST",
	25:  "MONEY",
	26:  "LISTEN",
	27:  "AAHEAR",
	28:  "AMHEAR",
	29:  "AHEAR",
	30:  "LAST",
	31:  "QUEUEMAX",
	32:  "IDESC",
	33:  "ENTER",
	34:  "OXENTER",
	35:  "AENTER",
	36:  "ADESC",
	37:  "ODESC",
	38:  "RQUOTA",
	39:  "ACONNECT",
	40:  "ADISCONNECT",
	41:  "ALLOWANCE",
	42:  "LOCK",
	43:  "NAME",
	44:  "COMMENT",
	45:  "USE",
	46:  "OUSE",
	47:  "SEMAPHORE",
	48:  "TIMEOUT",
	49:  "QUOTA",
	50:  "LEAVE",
	51:  "OLEAVE",
	52:  "ALEAVE",
	53:  "OENTER",
	54:  "OXLEAVE",
	55:  "MOVE",
	56:  "OMOVE",
	57:  "AMOVE",
	58:  "ALIAS",
	59:  "LENTER",
	60:  "LLEAVE",
	61:  "LPAGE",
	62:  "LUSE",
	63:  "LGIVE",
	64:  "EALIAS",
	65:  "LALIAS",
	66:  "EFAIL",
	67:  "OEFAIL",
	68:  "AEFAIL",
	69:  "LFAIL",
	70:  "OLFAIL",
	71:  "ALFAIL",
	72:  "REJECT",
	73:  "AWAY",
	74:  "IDLE",
	75:  "UFAIL",
	76:  "OUFAIL",
	77:  "AUFAIL",
	// 78: unused (formerly A_PFAIL)
	79:  "TPORT",
	80:  "OTPORT",
	81:  "OXTPORT",
	82:  "ATPORT",
	// 83: unused (formerly A_PRIVS)
	84:  "LOGINDATA",
	85:  "LTPORT",
	86:  "LDROP",
	87:  "LRECEIVE",
	88:  "LASTSITE",
	89:  "INPREFIX",
	90:  "PREFIX",
	91:  "INFILTER",
	92:  "FILTER",
	93:  "LLINK",
	94:  "LTELOUT",
	95:  "FORWARDLIST",
	96:  "MAILFOLDERS",
	97:  "LUSER",
	98:  "LPARENT",
	99:  "LCONTROL",
	100: "VA",
	101: "VB",
	102: "VC",
	103: "VD",
	104: "VE",
	105: "VF",
	106: "VG",
	107: "VH",
	108: "VI",
	109: "VJ",
	110: "VK",
	111: "VL",
	112: "VM",
	113: "VN",
	114: "VO",
	115: "VP",
	116: "VQ",
	117: "VR",
	118: "VS",
	119: "VT",
	120: "VU",
	121: "VV",
	122: "VW",
	123: "VX",
	124: "VY",
	125: "VZ",
}

var t5xOnlyAttrs = map[int]string{
	200: "VRML_URL",
	201: "HTDESC",
	202: "AMAIL",
	203: "SIGNATURE",
	204: "DAILY",
	205: "MAILTO",
	206: "MAILMSG",
	207: "MAILSUB",
	208: "MAILCURF",
	209: "LSPEECH",
	210: "PROGCMD",
	211: "MAILFLAGS",
	212: "DESTROYER",
	213: "LGETFROM",
	214: "CONFORMAT",
	215: "EXITFORMAT",
	216: "LMAIL",
	217: "LOPEN",
	218: "LASTIP",
	219: "CREATED",
	220: "MODIFIED",
	221: "NAMEFORMAT",
	222: "LVISIBLE",
}

var t6hOnlyAttrs = map[int]string{
	129: "GFAIL",
	130: "OGFAIL",
	131: "AGFAIL",
	132: "RFAIL",
	133: "ORFAIL",
	134: "ARFAIL",
	135: "DFAIL",
	136: "ODFAIL",
	137: "ADFAIL",
	138: "TFAIL",
	139: "OTFAIL",
	140: "ATFAIL",
	141: "TOFAIL",
	142: "OTOFAIL",
	143: "ATOFAIL",
	144: "LOPEN",
	202: "AMAIL",
	204: "DAILY",
	210: "PROGCMD",
	214: "CONFORMAT",
	215: "EXITFORMAT",
	218: "LASTIP",
	221: "HTDESC",
	222: "NAMEFORMAT",
	231: "PROPDIR",
}

var r7hOnlyAttrs = map[int]string{
	150: "SAVESENDMAIL",
	151: "LZONEWIZ",
	152: "LZONETO",
	153: "LTWINK",
	154: "SITEGOOD",
	155: "SITEBAD",
	156: "MAILSIG",
	157: "ADESTROY",
	158: "LSPEECH",
	159: "LDARK",
	160: "LDROPTO",
	161: "LOPEN",
	218: "LASTIP",
}

var commonLocks = []int{
	A_LOCK, A_LENTER, A_LLEAVE, A_LPAGE, A_LUSE, A_LGIVE, A_LTPORT, A_LDROP,
	A_LRECEIVE, A_LLINK, A_LTELOUT, A_LUSER, A_LPARENT, A_LCONTROL,
}

type attrTable struct {
	byNum  map[int]string
	byName map[string]int
	locks  map[int]bool
}

func newAttrTable(extra map[int]string, extraLocks ...int) *attrTable {
	t := &attrTable{
		byNum:  make(map[int]string, len(commonAttrs)+len(extra)),
		byName: make(map[string]int, len(commonAttrs)+len(extra)),
		locks:  make(map[int]bool),
	}
	for _, m := range []map[int]string{commonAttrs, extra} {
		for num, name := range m {
			t.byNum[num] = name
			t.byName[name] = num
		}
	}
	for _, n := range commonLocks {
		t.locks[n] = true
	}
	for _, n := range extraLocks {
		t.locks[n] = true
	}
	return t
}

var attrTables = map[Dialect]*attrTable{
	T5X: newAttrTable(t5xOnlyAttrs, T5XSpeechLock, T5XGetFromLock, T5XMailLock, T5XOpenLock, T5XVisibleLock),
	T6H: newAttrTable(t6hOnlyAttrs, 144),
	R7H: newAttrTable(r7hOnlyAttrs, 151, 152, 153, 158, 159, 160, 161),
}

// BuiltinAttrName returns the built-in name of an attribute number, or "".
func BuiltinAttrName(d Dialect, num int) string {
	if t, ok := attrTables[d]; ok {
		return t.byNum[num]
	}
	return ""
}

// BuiltinAttrNum returns the built-in number for a name (case-insensitive).
func BuiltinAttrNum(d Dialect, name string) (int, bool) {
	t, ok := attrTables[d]
	if !ok {
		return 0, false
	}
	num, ok := t.byName[strings.ToUpper(name)]
	return num, ok
}

// BuiltinAttrs returns a copy of the number-to-name table of a dialect.
func BuiltinAttrs(d Dialect) map[int]string {
	t, ok := attrTables[d]
	if !ok {
		return nil
	}
	out := make(map[int]string, len(t.byNum))
	for k, v := range t.byNum {
		out[k] = v
	}
	return out
}

// IsLockAttr reports whether num is a lock-bearing slot in dialect d.
func IsLockAttr(d Dialect, num int) bool {
	if t, ok := attrTables[d]; ok {
		return t.locks[num]
	}
	return false
}
