package remap

import (
	"strings"

	"github.com/crystal-mush/omega/pkg/gamedb"
)

// PennAliases folds PennMUSH spellings onto the names the tables use.
var PennAliases = Aliases{
	"COLOUR": "COLOR",
	"TRUST":  "INHERIT",
}

// PennFlags maps PennMUSH object flags onto TinyMUX flag words.
var PennFlags = Table{
	{"TRANSPARENT", 0, gamedb.FlagSeeThru},
	{"WIZARD", 0, gamedb.FlagWizard},
	{"LINK_OK", 0, gamedb.FlagLinkOK},
	{"DARK", 0, gamedb.FlagDark},
	{"JUMP_OK", 0, gamedb.FlagJumpOK},
	{"STICKY", 0, gamedb.FlagSticky},
	{"DESTROY_OK", 0, gamedb.FlagDestroyOK},
	{"HAVEN", 0, gamedb.FlagHaven},
	{"QUIET", 0, gamedb.FlagQuiet},
	{"HALT", 0, gamedb.FlagHalt},
	{"DEBUG", 0, gamedb.FlagTrace},
	{"GOING", 0, gamedb.FlagGoing},
	{"MONITOR", 0, gamedb.FlagMonitor},
	{"MYOPIC", 0, gamedb.FlagMyopic},
	{"PUPPET", 0, gamedb.FlagPuppet},
	{"CHOWN_OK", 0, gamedb.FlagChownOK},
	{"ENTER_OK", 0, gamedb.FlagEnterOK},
	{"VISUAL", 0, gamedb.FlagVisual},
	{"OPAQUE", 0, gamedb.FlagOpaque},
	{"VERBOSE", 0, gamedb.FlagVerbose},
	{"INHERIT", 0, gamedb.FlagInherit},
	{"NOSPOOF", 0, gamedb.FlagNoSpoof},
	{"SAFE", 0, gamedb.FlagSafe},
	{"ROYALTY", 0, gamedb.FlagRoyalty},
	{"AUDIBLE", 0, gamedb.FlagHearThru},
	{"TERSE", 0, gamedb.FlagTerse},
	{"ABODE", 1, 0x00000002},
	{"FLOATING", 1, 0x00000004},
	{"UNFINDABLE", 1, 0x00000008},
	{"LIGHT", 1, 0x00000020},
	{"ANSI", 1, 0x00000200},
	{"COLOR", 1, 0x00000200},
	{"FIXED", 1, 0x00000800},
	{"NO_COMMAND", 1, 0x00002000},
	{"KEEPALIVE", 1, 0x00004000},
	{"GAGGED", 1, 0x00040000},
	{"SUSPECT", 1, 0x10000000},
	{"NOACCENTS", 1, 0x20000000},
	{"CONNECTED", 1, 0x40000000},
}

// PennPowers maps PennMUSH powers onto TinyMUX power words.
var PennPowers = Table{
	{"ANNOUNCE", 0, 0x00000004},
	{"BOOT", 0, 0x00000008},
	{"HALT", 0, 0x00000010},
	{"SEE_ALL", 0, 0x00000080},
	{"NO_PAY", 0, 0x00000200},
	{"NO_QUOTA", 0, 0x00000400},
	{"HIDE", 0, 0x00000800},
	{"IDLE", 0, 0x00001000},
	{"SEARCH", 0, 0x00002000},
	{"LONG_FINGERS", 0, 0x00004000},
	{"CHAT_PRIVS", 0, 0x00080000},
	{"SEE_QUEUE", 0, 0x00100000},
	{"POLL", 0, 0x00800000},
	{"GUEST", 0, 0x02000000},
	{"PASS_LOCKS", 0, 0x04000000},
	{"TPORT_ANYWHERE", 0, 0x20000000},
	{"TPORT_ANYTHING", 0, 0x40000000},
	{"UNKILLABLE", 0, 0x80000000},
	{"BUILDER", 1, 0x00000001},
}

// PennLockFlags maps PennMUSH lock flags onto TinyMUX attribute flags of the
// attribute the lock is stored in.
var PennLockFlags = Table{
	{"VISUAL", 0, gamedb.AFVisual},
	{"NO_INHERIT", 0, gamedb.AFPrivate},
	{"NO_CLONE", 0, gamedb.AFNoClone},
	{"WIZARD", 0, gamedb.AFWizard},
	{"LOCKED", 0, gamedb.AFLock},
}

// PennAttrFlags maps PennMUSH attribute flags onto TinyMUX attribute flags.
var PennAttrFlags = Table{
	{"MORTAL_DARK", 0, gamedb.AFMDark},
	{"WIZARD", 0, gamedb.AFWizard},
	{"NO_COMMAND", 0, gamedb.AFNoCMD},
	{"LOCKED", 0, gamedb.AFLock},
	{"VISUAL", 0, gamedb.AFVisual},
	{"NO_INHERIT", 0, gamedb.AFPrivate},
	{"REGEXP", 0, gamedb.AFRegexp},
	{"NO_CLONE", 0, gamedb.AFNoClone},
	{"SAFE", 0, gamedb.AFConst},
	{"CASE", 0, gamedb.AFCase},
	{"NONAME", 0, 0x00080000},
	{"DEBUG", 0, 0x00100000},
}

// PennLockAttrs maps PennMUSH lock types onto the TinyMUX attribute slot
// that holds the same lock. The basic lock also lives in the object header.
var PennLockAttrs = []struct {
	Type string
	Attr int
}{
	{"Basic", gamedb.A_LOCK},
	{"Enter", gamedb.A_LENTER},
	{"Leave", gamedb.A_LLEAVE},
	{"Page", gamedb.A_LPAGE},
	{"Use", gamedb.A_LUSE},
	{"Give", gamedb.A_LGIVE},
	{"Teleport", gamedb.A_LTPORT},
	{"Drop", gamedb.A_LDROP},
	{"Receive", gamedb.A_LRECEIVE},
	{"Link", gamedb.A_LLINK},
	{"Parent", gamedb.A_LPARENT},
	{"Control", gamedb.A_LCONTROL},
	{"Speech", gamedb.T5XSpeechLock},
}

// PennLockAttr returns the TinyMUX slot for a PennMUSH lock type.
func PennLockAttr(typ string) (int, bool) {
	for _, l := range PennLockAttrs {
		if strings.EqualFold(l.Type, typ) {
			return l.Attr, true
		}
	}
	return 0, false
}

// PennLockType returns the PennMUSH lock type stored in a TinyMUX slot.
func PennLockType(attr int) (string, bool) {
	for _, l := range PennLockAttrs {
		if l.Attr == attr {
			return l.Type, true
		}
	}
	return "", false
}

// PennAttrSynonyms maps PennMUSH attribute names onto the TinyMUX built-in
// that holds the same thing under another name.
var PennAttrSynonyms = map[string]string{
	"DESCRIBE":  "DESC",
	"IDESCRIBE": "IDESC",
	"ODESCRIBE": "ODESC",
	"ADESCRIBE": "ADESC",
	"XYXXY":     "PASS",
}

// PennRenamed lists names both servers define with different meanings.
var PennRenamed = []string{
	"SEMAPHORE", "MAILFOLDERS", "LASTSITE", "QUEUE", "DAILY", "MAILCURF",
}
