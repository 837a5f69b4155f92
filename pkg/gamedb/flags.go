package gamedb

// NamedBit names one bit of a flag, power or attribute-flag word.
type NamedBit struct {
	Name string
	Word int
	Mask uint32
}

// First flag word, common to every numeric dialect (TinyMUD lineage).
const (
	FlagSeeThru    = 0x00000008
	FlagWizard     = 0x00000010
	FlagLinkOK     = 0x00000020
	FlagDark       = 0x00000040
	FlagJumpOK     = 0x00000080
	FlagSticky     = 0x00000100
	FlagDestroyOK  = 0x00000200
	FlagHaven      = 0x00000400
	FlagQuiet      = 0x00000800
	FlagHalt       = 0x00001000
	FlagTrace      = 0x00002000
	FlagGoing      = 0x00004000
	FlagMonitor    = 0x00008000
	FlagMyopic     = 0x00010000
	FlagPuppet     = 0x00020000
	FlagChownOK    = 0x00040000
	FlagEnterOK    = 0x00080000
	FlagVisual     = 0x00100000
	FlagImmortal   = 0x00200000
	FlagHasStartup = 0x00400000
	FlagOpaque     = 0x00800000
	FlagVerbose    = 0x01000000
	FlagInherit    = 0x02000000
	FlagNoSpoof    = 0x04000000
	FlagRobot      = 0x08000000
	FlagSafe       = 0x10000000
	FlagRoyalty    = 0x20000000
	FlagHearThru   = 0x40000000
	FlagTerse      = 0x80000000
)

var word0Bits = []NamedBit{
	{"SEETHRU", 0, FlagSeeThru},
	{"WIZARD", 0, FlagWizard},
	{"LINK_OK", 0, FlagLinkOK},
	{"DARK", 0, FlagDark},
	{"JUMP_OK", 0, FlagJumpOK},
	{"STICKY", 0, FlagSticky},
	{"DESTROY_OK", 0, FlagDestroyOK},
	{"HAVEN", 0, FlagHaven},
	{"QUIET", 0, FlagQuiet},
	{"HALT", 0, FlagHalt},
	{"TRACE", 0, FlagTrace},
	{"GOING", 0, FlagGoing},
	{"MONITOR", 0, FlagMonitor},
	{"MYOPIC", 0, FlagMyopic},
	{"PUPPET", 0, FlagPuppet},
	{"CHOWN_OK", 0, FlagChownOK},
	{"ENTER_OK", 0, FlagEnterOK},
	{"VISUAL", 0, FlagVisual},
	{"IMMORTAL", 0, FlagImmortal},
	{"HAS_STARTUP", 0, FlagHasStartup},
	{"OPAQUE", 0, FlagOpaque},
	{"VERBOSE", 0, FlagVerbose},
	{"INHERIT", 0, FlagInherit},
	{"NOSPOOF", 0, FlagNoSpoof},
	{"ROBOT", 0, FlagRobot},
	{"SAFE", 0, FlagSafe},
	{"ROYALTY", 0, FlagRoyalty},
	{"HEARTHRU", 0, FlagHearThru},
	{"TERSE", 0, FlagTerse},
}

func markers(word int, first uint32) []NamedBit {
	bits := make([]NamedBit, 0, 10)
	for i := 0; i < 10; i++ {
		bits = append(bits, NamedBit{Name: "MARKER" + string(rune('0'+i)), Word: word, Mask: first << i})
	}
	return bits
}

func concat(parts ...[]NamedBit) []NamedBit {
	var out []NamedBit
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// TinyMUX 2.x.
var t5xFlagBits = concat(word0Bits, []NamedBit{
	{"KEY", 1, 0x00000001},
	{"ABODE", 1, 0x00000002},
	{"FLOATING", 1, 0x00000004},
	{"UNFINDABLE", 1, 0x00000008},
	{"PARENT_OK", 1, 0x00000010},
	{"LIGHT", 1, 0x00000020},
	{"HAS_LISTEN", 1, 0x00000040},
	{"HAS_FWDLIST", 1, 0x00000080},
	{"AUDITORIUM", 1, 0x00000100},
	{"ANSI", 1, 0x00000200},
	{"HEAD", 1, 0x00000400},
	{"FIXED", 1, 0x00000800},
	{"UNINSPECTED", 1, 0x00001000},
	{"NO_COMMAND", 1, 0x00002000},
	{"KEEPALIVE", 1, 0x00004000},
	{"NOBLEED", 1, 0x00008000},
	{"STAFF", 1, 0x00010000},
	{"HAS_DAILY", 1, 0x00020000},
	{"GAGGED", 1, 0x00040000},
	{"OPEN_OK", 1, 0x00080000},
	{"VACATION", 1, 0x01000000},
	{"PLAYER_MAILS", 1, 0x02000000},
	{"HTML", 1, 0x04000000},
	{"BLIND", 1, 0x08000000},
	{"SUSPECT", 1, 0x10000000},
	{"NOACCENTS", 1, 0x20000000},
	{"CONNECTED", 1, 0x40000000},
	{"SLAVE", 1, 0x80000000},
	{"SITEMON", 2, 0x00000001},
	{"CMDCHECK", 2, 0x00000002},
	{"UNICODE", 2, 0x00000004},
}, markers(2, 0x00400000))

var t5xPowerBits = []NamedBit{
	{"QUOTA", 0, 0x00000001},
	{"CHOWN_ANYTHING", 0, 0x00000002},
	{"ANNOUNCE", 0, 0x00000004},
	{"BOOT", 0, 0x00000008},
	{"HALT", 0, 0x00000010},
	{"CONTROL_ALL", 0, 0x00000020},
	{"WIZARD_WHO", 0, 0x00000040},
	{"SEE_ALL", 0, 0x00000080},
	{"FIND_UNFINDABLE", 0, 0x00000100},
	{"FREE_MONEY", 0, 0x00000200},
	{"FREE_QUOTA", 0, 0x00000400},
	{"HIDE", 0, 0x00000800},
	{"IDLE", 0, 0x00001000},
	{"SEARCH", 0, 0x00002000},
	{"LONG_FINGERS", 0, 0x00004000},
	{"PROG", 0, 0x00008000},
	{"COMM_ALL", 0, 0x00080000},
	{"SEE_QUEUE", 0, 0x00100000},
	{"SEE_HIDDEN", 0, 0x00200000},
	{"MONITOR", 0, 0x00400000},
	{"POLL", 0, 0x00800000},
	{"NO_DESTROY", 0, 0x01000000},
	{"GUEST", 0, 0x02000000},
	{"PASS_LOCKS", 0, 0x04000000},
	{"STAT_ANY", 0, 0x08000000},
	{"STEAL_MONEY", 0, 0x10000000},
	{"TEL_ANYWHERE", 0, 0x20000000},
	{"TEL_ANYTHING", 0, 0x40000000},
	{"UNKILLABLE", 0, 0x80000000},
	{"BUILDER", 1, 0x00000001},
}

// TinyMUSH 3.x.
var t6hFlagBits = concat(word0Bits, []NamedBit{
	{"KEY", 1, 0x00000001},
	{"ABODE", 1, 0x00000002},
	{"FLOATING", 1, 0x00000004},
	{"UNFINDABLE", 1, 0x00000008},
	{"PARENT_OK", 1, 0x00000010},
	{"LIGHT", 1, 0x00000020},
	{"HAS_LISTEN", 1, 0x00000040},
	{"HAS_FWDLIST", 1, 0x00000080},
	{"AUDITORIUM", 1, 0x00000100},
	{"CONNECTED", 1, 0x00000200},
	{"SLAVE", 1, 0x00000800},
	{"HTML", 1, 0x00001000},
	{"ANSI", 1, 0x00002000},
	{"HAD_STARTUP", 1, 0x00004000},
	{"BLIND", 1, 0x00008000},
	{"CONTROL_OK", 1, 0x00010000},
	{"WATCHER", 1, 0x00080000},
	{"HAS_COMMANDS", 1, 0x00200000},
	{"STOP_MATCH", 1, 0x00400000},
	{"BOUNCE", 1, 0x00800000},
	{"ZONE_PARENT", 1, 0x01000000},
	{"NOBLEED", 1, 0x02000000},
	{"HAS_DAILY", 1, 0x04000000},
	{"GAGGED", 1, 0x08000000},
	{"STAFF", 1, 0x10000000},
	{"HAS_DARKLOCK", 1, 0x20000000},
	{"FIXED", 1, 0x40000000},
	{"VACATION", 2, 0x00000001},
	{"NO_COMMAND", 2, 0x00000002},
}, markers(2, 0x00400000))

var t6hPowerBits = []NamedBit{
	{"QUOTA", 0, 0x00000001},
	{"CHOWN_ANYTHING", 0, 0x00000002},
	{"ANNOUNCE", 0, 0x00000004},
	{"BOOT", 0, 0x00000008},
	{"HALT", 0, 0x00000010},
	{"CONTROL_ALL", 0, 0x00000020},
	{"WIZARD_WHO", 0, 0x00000040},
	{"SEE_ALL", 0, 0x00000080},
	{"FIND_UNFINDABLE", 0, 0x00000100},
	{"FREE_MONEY", 0, 0x00000200},
	{"FREE_QUOTA", 0, 0x00000400},
	{"HIDE", 0, 0x00000800},
	{"IDLE", 0, 0x00001000},
	{"SEARCH", 0, 0x00002000},
	{"LONG_FINGERS", 0, 0x00004000},
	{"PROG", 0, 0x00008000},
	{"MDARK_ATTR", 0, 0x00010000},
	{"WIZ_ATTR", 0, 0x00020000},
	{"COMM_ALL", 0, 0x00080000},
	{"SEE_QUEUE", 0, 0x00100000},
	{"SEE_HIDDEN", 0, 0x00200000},
	{"MONITOR", 0, 0x00400000},
	{"POLL", 0, 0x00800000},
	{"NO_DESTROY", 0, 0x01000000},
	{"GUEST", 0, 0x02000000},
	{"PASS_LOCKS", 0, 0x04000000},
	{"STAT_ANY", 0, 0x08000000},
	{"STEAL_MONEY", 0, 0x10000000},
	{"TEL_ANYWHERE", 0, 0x20000000},
	{"TEL_ANYTHING", 0, 0x40000000},
	{"UNKILLABLE", 0, 0x80000000},
	{"BUILDER", 1, 0x00000001},
	{"LINKVAR", 1, 0x00000002},
	{"LINKTOANY", 1, 0x00000004},
	{"OPENANYLOC", 1, 0x00000008},
	{"USE_SQL", 1, 0x00000010},
	{"LINKHOME", 1, 0x00000020},
	{"CLOAK", 1, 0x00000040},
}

// RhostMUSH.
var r7hFlagBits = concat(word0Bits, []NamedBit{
	{"KEY", 1, 0x00000001},
	{"ABODE", 1, 0x00000002},
	{"FLOATING", 1, 0x00000004},
	{"UNFINDABLE", 1, 0x00000008},
	{"PARENT_OK", 1, 0x00000010},
	{"LIGHT", 1, 0x00000020},
	{"HAS_LISTEN", 1, 0x00000040},
	{"HAS_FWDLIST", 1, 0x00000080},
	{"ADMIN", 1, 0x00000100},
	{"GUILDOBJ", 1, 0x00000200},
	{"GUILDMASTER", 1, 0x00000400},
	{"NO_WALLS", 1, 0x00000800},
	{"FUBAR", 1, 0x00001000},
	{"BACKSTAGE", 1, 0x00002000},
	{"NO_BACKSTAGE", 1, 0x00004000},
	{"NO_TEL", 1, 0x00008000},
	{"AUDITORIUM", 1, 0x00010000},
	{"ANSI", 1, 0x00020000},
	{"NOFLASH", 1, 0x00040000},
	{"ANSICOLOR", 1, 0x00080000},
	{"SUSPECT", 1, 0x00200000},
	{"BUILDER", 1, 0x00400000},
	{"CONNECTED", 1, 0x40000000},
	{"SLAVE", 1, 0x80000000},
	{"INDESTRUCTABLE", 2, 0x00000001},
	{"NO_MODIFY", 2, 0x00000002},
	{"CLOAK", 2, 0x00000004},
	{"SCLOAK", 2, 0x00000008},
	{"BLIND", 2, 0x00000010},
	{"STOP", 2, 0x00000100},
	{"FIXED", 2, 0x00000200},
	{"GAGGED", 2, 0x00000400},
	{"STAFF", 2, 0x00000800},
	{"HTML", 2, 0x00001000},
	{"NO_COMMAND", 2, 0x00002000},
	{"NOBLEED", 2, 0x00004000},
	{"VACATION", 2, 0x00008000},
	{"HAS_DAILY", 2, 0x00010000},
	{"SITEMON", 2, 0x00020000},
}, markers(3, 0x00400000))

var r7hPowerBits = []NamedBit{
	{"QUOTA", 0, 0x00000001},
	{"CHOWN_ANYTHING", 0, 0x00000002},
	{"ANNOUNCE", 0, 0x00000004},
	{"BOOT", 0, 0x00000008},
	{"HALT", 0, 0x00000010},
	{"CONTROL_ALL", 0, 0x00000020},
	{"WIZARD_WHO", 0, 0x00000040},
	{"SEE_ALL", 0, 0x00000080},
	{"FIND_UNFINDABLE", 0, 0x00000100},
	{"FREE_MONEY", 0, 0x00000200},
	{"FREE_QUOTA", 0, 0x00000400},
	{"HIDE", 0, 0x00000800},
	{"IDLE", 0, 0x00001000},
	{"SEARCH", 0, 0x00002000},
	{"LONG_FINGERS", 0, 0x00004000},
	{"PROG", 0, 0x00008000},
	{"SEE_QUEUE", 0, 0x00100000},
	{"NO_DESTROY", 0, 0x01000000},
	{"GUEST", 0, 0x02000000},
	{"PASS_LOCKS", 0, 0x04000000},
	{"STAT_ANY", 0, 0x08000000},
	{"STEAL_MONEY", 0, 0x10000000},
	{"TEL_ANYWHERE", 0, 0x20000000},
	{"TEL_ANYTHING", 0, 0x40000000},
	{"UNKILLABLE", 0, 0x80000000},
	{"FREE_WALL", 1, 0x00000001},
	{"FREE_PAGE", 1, 0x00000002},
	{"NOWHO", 1, 0x00000004},
	{"WHO_UNFIND", 1, 0x00000008},
}

// Attribute flag bits. T6H is TinyMUSH's attrs.h.
const (
	AFODark    = 0x00000001
	AFDark     = 0x00000002
	AFWizard   = 0x00000004
	AFMDark    = 0x00000008
	AFInternal = 0x00000010
	AFNoCMD    = 0x00000020
	AFLock     = 0x00000040
	AFDeleted  = 0x00000080
	AFNoProg   = 0x00000100
	AFGod      = 0x00000200
	AFIsLock   = 0x00000400
	AFVisual   = 0x00000800
	AFPrivate  = 0x00001000
	AFHTML     = 0x00002000
	AFNoParse  = 0x00004000
	AFRegexp   = 0x00008000
	AFNoClone  = 0x00010000
	AFConst    = 0x00020000
	AFCase     = 0x00040000
)

var sharedAttrFlagBits = []NamedBit{
	{"ODARK", 0, AFODark},
	{"DARK", 0, AFDark},
	{"WIZARD", 0, AFWizard},
	{"MDARK", 0, AFMDark},
	{"INTERNAL", 0, AFInternal},
	{"NOCMD", 0, AFNoCMD},
	{"LOCK", 0, AFLock},
	{"DELETED", 0, AFDeleted},
	{"NOPROG", 0, AFNoProg},
	{"GOD", 0, AFGod},
}

var t5xAttrFlagBits = concat(sharedAttrFlagBits, []NamedBit{
	{"IS_LOCK", 0, AFIsLock},
	{"VISUAL", 0, AFVisual},
	{"PRIVATE", 0, AFPrivate},
	{"HTML", 0, AFHTML},
	{"NOPARSE", 0, AFNoParse},
	{"REGEXP", 0, AFRegexp},
	{"NOCLONE", 0, AFNoClone},
	{"CONST", 0, AFConst},
	{"CASE", 0, AFCase},
	{"NONAME", 0, 0x00080000},
	{"TRACE", 0, 0x00100000},
})

var t6hAttrFlagBits = concat(sharedAttrFlagBits, []NamedBit{
	{"IS_LOCK", 0, AFIsLock},
	{"VISUAL", 0, AFVisual},
	{"PRIVATE", 0, AFPrivate},
	{"HTML", 0, AFHTML},
	{"NOPARSE", 0, AFNoParse},
	{"REGEXP", 0, AFRegexp},
	{"NOCLONE", 0, AFNoClone},
	{"CONST", 0, AFConst},
	{"CASE", 0, AFCase},
	{"STRUCTURE", 0, 0x00080000},
	{"DIRTY", 0, 0x00100000},
	{"DEFAULT", 0, 0x00200000},
	{"NONAME", 0, 0x00400000},
	{"RMATCH", 0, 0x00800000},
	{"NOW", 0, 0x01000000},
	{"TRACE", 0, 0x02000000},
})

var r7hAttrFlagBits = concat(sharedAttrFlagBits, []NamedBit{
	{"ADMIN", 0, 0x00000400},
	{"BUILDER", 0, 0x00000800},
	{"GUILDMASTER", 0, 0x00001000},
	{"IMMORTAL", 0, 0x00002000},
	{"NOANSI", 0, 0x00004000},
	{"NORETURN", 0, 0x00008000},
	{"NOPARSE", 0, 0x00010000},
	{"PRIVATE", 0, 0x00020000},
	{"PINVIS", 0, 0x00040000},
	{"UNSAFE", 0, 0x00080000},
	{"IS_LOCK", 0, 0x00200000},
	{"VISUAL", 0, 0x00400000},
	{"NOCLONE", 0, 0x00800000},
	{"REGEXP", 0, 0x01000000},
	{"CASE", 0, 0x02000000},
	{"HTML", 0, 0x04000000},
})

// FlagBits returns the named object flag bits of a numeric dialect.
func FlagBits(d Dialect) []NamedBit {
	switch d {
	case T5X:
		return t5xFlagBits
	case T6H:
		return t6hFlagBits
	case R7H:
		return r7hFlagBits
	}
	return nil
}

// PowerBits returns the named power bits of a numeric dialect.
func PowerBits(d Dialect) []NamedBit {
	switch d {
	case T5X:
		return t5xPowerBits
	case T6H:
		return t6hPowerBits
	case R7H:
		return r7hPowerBits
	}
	return nil
}

// AttrFlagBits returns the named attribute flag bits of a numeric dialect.
func AttrFlagBits(d Dialect) []NamedBit {
	switch d {
	case T5X:
		return t5xAttrFlagBits
	case T6H:
		return t6hAttrFlagBits
	case R7H:
		return r7hAttrFlagBits
	}
	return nil
}

// FlagWords returns how many flag words a numeric dialect stores at most.
func FlagWords(d Dialect) int {
	if d == R7H {
		return 4
	}
	return 3
}

// LookupBit finds a named bit by exact (case-sensitive) name.
func LookupBit(bits []NamedBit, name string) (NamedBit, bool) {
	for _, b := range bits {
		if b.Name == name {
			return b, true
		}
	}
	return NamedBit{}, false
}

// Residual returns the bits of word that no entry of bits (restricted to the
// given word index) accounts for. ignore masks out bits handled elsewhere,
// such as the object type.
func Residual(bits []NamedBit, word int, value, ignore uint32) uint32 {
	known := ignore
	for _, b := range bits {
		if b.Word == word {
			known |= b.Mask
		}
	}
	return value &^ known
}
