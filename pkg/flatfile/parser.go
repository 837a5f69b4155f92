// Package flatfile reads and writes the numeric-family flatfiles: TinyMUX
// (T5X), TinyMUSH 3 (T6H) and RhostMUSH (R7H).
package flatfile

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/lock"
)

var (
	// ErrFormat marks input that is not a well-formed flatfile.
	ErrFormat = errors.New("malformed flatfile")

	// ErrUnknownFlags marks header flag bits the dialect does not define.
	ErrUnknownFlags = errors.New("unknown database header flags")
)

const endOfDump = "***END OF DUMP***"

// HeaderLetter returns the letter following '+' on a dialect's version line.
func HeaderLetter(d gamedb.Dialect) byte {
	switch d {
	case gamedb.T5X:
		return 'X'
	case gamedb.T6H:
		return 'T'
	case gamedb.R7H:
		return 'V'
	}
	return 0
}

// UnknownFlags returns the header flag bits of db its dialect does not know.
func UnknownFlags(db *gamedb.Database) int {
	return db.Flags &^ gamedb.VMask &^ gamedb.KnownVersionFlags(db.Dialect)
}

// Parser reads a numeric-family flatfile and produces a Database.
type Parser struct {
	reader *bufio.Reader
	db     *gamedb.Database
	log    *zap.Logger
	line   int

	readName       bool
	readZone       bool
	readLink       bool
	readKey        bool
	readParent     bool
	readMoney      bool
	readExtFlags   bool
	read3Flags     bool
	read4Flags     bool
	readPowers     bool
	readTimestamps bool
	readQuoted     bool
}

// Load reads a flatfile of dialect d from disk.
func Load(path string, d gamedb.Dialect, log *zap.Logger) (*gamedb.Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open flatfile %s", path)
	}
	defer f.Close()

	return Parse(f, d, log)
}

// Parse reads a flatfile of dialect d from r.
func Parse(r io.Reader, d gamedb.Dialect, log *zap.Logger) (*gamedb.Database, error) {
	if !d.Numeric() {
		return nil, errors.Newf("flatfile: %s is not a numeric dialect", d)
	}
	if log == nil {
		log = zap.NewNop()
	}
	p := &Parser{
		reader:    bufio.NewReaderSize(r, 256*1024),
		db:        gamedb.NewDatabase(d),
		log:       log,
		line:      1,
		readName:  true,
		readKey:   true,
		readMoney: true,
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.db, nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrFormat, "line %d: "+format, append([]interface{}{p.line}, args...)...)
}

func (p *Parser) parse() error {
	for {
		ch, err := p.peekByte()
		if err == io.EOF {
			return p.errorf("unexpected EOF (no end-of-dump marker)")
		}
		if err != nil {
			return errors.Wrapf(err, "read error at line %d", p.line)
		}

		switch ch {
		case '+':
			if err := p.parseHeader(); err != nil {
				return err
			}
		case '-':
			if err := p.parseMiscTag(); err != nil {
				return err
			}
		case '!':
			if err := p.parseObject(); err != nil {
				return err
			}
		case '*':
			return p.parseEOF()
		case '\n', '\r':
			p.readLine()
		default:
			return p.errorf("unexpected character %q", ch)
		}
	}
}

// parseHeader handles + prefixed lines: version, +S size, +A attr def,
// +N next attr, +F free attr.
func (p *Parser) parseHeader() error {
	p.mustReadByte() // '+'
	ch, err := p.mustReadByte()
	if err != nil {
		return p.errorf("truncated header")
	}

	switch ch {
	case 'X', 'T', 'V':
		if ch != HeaderLetter(p.db.Dialect) {
			return p.errorf("+%c header in a %s flatfile", ch, p.db.Dialect)
		}
		val, err := p.readInt()
		if err != nil {
			return p.errorf("version: %v", err)
		}
		p.applyVersionFlags(val)

	case 'S':
		val, err := p.readInt()
		if err != nil {
			return p.errorf("size: %v", err)
		}
		p.db.Size.Set(val)

	case 'N':
		val, err := p.readInt()
		if err != nil {
			return p.errorf("next attr: %v", err)
		}
		p.db.NextAttr.Set(val)

	case 'A':
		num, err := p.readInt()
		if err != nil {
			return p.errorf("attr def number: %v", err)
		}
		str, err := p.readString()
		if err != nil {
			return p.errorf("attr def %d: %v", num, err)
		}
		flags, name := splitAttrDef(str)
		p.db.AddAttrDef(num, name, flags)

	case 'F':
		if _, err := p.readInt(); err != nil {
			return p.errorf("free attr: %v", err)
		}

	default:
		line, _ := p.readLine()
		p.log.Warn("skipping unknown header line", zap.String("line", "+"+string(ch)+line), zap.Int("lineno", p.line))
	}
	return nil
}

// splitAttrDef splits the on-disk "flags:name" form.
func splitAttrDef(s string) (int, string) {
	idx := strings.IndexByte(s, ':')
	if idx <= 0 {
		return 0, s
	}
	flags, err := strconv.Atoi(s[:idx])
	if err != nil {
		return 0, s
	}
	return flags, s[idx+1:]
}

func (p *Parser) applyVersionFlags(val int) {
	p.db.Version = val & gamedb.VMask
	p.db.Flags = val &^ gamedb.VMask

	if val&gamedb.VGDBM != 0 {
		p.readName = val&gamedb.VAtrName == 0
	}
	p.readZone = val&gamedb.VZone != 0
	p.readLink = val&gamedb.VLink != 0
	p.readKey = val&gamedb.VAtrKey == 0
	p.readParent = val&gamedb.VParent != 0
	p.readMoney = val&gamedb.VAtrMoney == 0
	p.readExtFlags = val&gamedb.VXFlags != 0
	p.read3Flags = val&gamedb.V3Flags != 0
	p.read4Flags = p.db.Dialect == gamedb.R7H && val&gamedb.V4Flags != 0
	p.readPowers = val&gamedb.VPowers != 0
	p.readTimestamps = val&gamedb.VTimestamps != 0
	p.readQuoted = val&gamedb.VQuoted != 0

	if bad := UnknownFlags(p.db); bad != 0 {
		p.log.Error("unknown header flags", zap.Int("flags", bad))
	}
}

// parseMiscTag handles - prefixed lines
func (p *Parser) parseMiscTag() error {
	p.mustReadByte() // '-'
	ch, err := p.mustReadByte()
	if err != nil {
		return p.errorf("truncated tag")
	}
	switch ch {
	case 'R':
		val, err := p.readInt()
		if err != nil {
			return p.errorf("record players: %v", err)
		}
		p.db.RecordPlayers.Set(val)
	default:
		line, _ := p.readLine()
		p.log.Warn("skipping unknown tag", zap.String("line", "-"+string(ch)+line), zap.Int("lineno", p.line))
	}
	return nil
}

// parseObject reads a single object entry starting with !<dbref>
func (p *Parser) parseObject() error {
	p.mustReadByte() // '!'
	ref, err := p.readInt()
	if err != nil {
		return p.errorf("object dbref: %v", err)
	}
	obj := gamedb.NewObject(gamedb.DBRef(ref))
	if err := p.readObjectBody(obj); err != nil {
		return errors.Wrapf(err, "object #%d", ref)
	}
	if p.db.AddObject(obj) {
		p.log.Warn("duplicate object merged", zap.Int("ref", ref))
	}
	return nil
}

func (p *Parser) readObjectBody(obj *gamedb.Object) error {
	if p.readName {
		name, err := p.readString()
		if err != nil {
			return p.errorf("name: %v", err)
		}
		obj.Name.Set(name)
	}
	if err := p.readRef(&obj.Location, "location"); err != nil {
		return err
	}
	if p.readZone {
		if err := p.readRef(&obj.Zone, "zone"); err != nil {
			return err
		}
	}
	if err := p.readRef(&obj.Contents, "contents"); err != nil {
		return err
	}
	if err := p.readRef(&obj.Exits, "exits"); err != nil {
		return err
	}
	if p.readLink {
		if err := p.readRef(&obj.Link, "link"); err != nil {
			return err
		}
	}
	if err := p.readRef(&obj.Next, "next"); err != nil {
		return err
	}

	// Default lock, when it lives in the header rather than an attribute.
	if p.readKey {
		n, raw, err := lock.ReadCanonical(p.reader)
		p.line += strings.Count(raw, "\n")
		if err != nil {
			if !strings.HasSuffix(raw, "\n") {
				rest, _ := p.readLine()
				raw += rest + "\n"
			}
			p.log.Warn("unparsable header lock kept verbatim",
				zap.Int("ref", int(obj.Ref)), zap.Error(err))
			n = nil
		}
		obj.Lock = n
		obj.LockRaw.Set(raw)
	}

	if err := p.readRef(&obj.Owner, "owner"); err != nil {
		return err
	}
	if p.readParent {
		if err := p.readRef(&obj.Parent, "parent"); err != nil {
			return err
		}
	}
	if p.readMoney {
		n, err := p.readInt()
		if err != nil {
			return p.errorf("pennies: %v", err)
		}
		obj.Pennies.Set(n)
	}

	if err := p.readWord(&obj.Flags[0], "flags1"); err != nil {
		return err
	}
	if p.readExtFlags {
		if err := p.readWord(&obj.Flags[1], "flags2"); err != nil {
			return err
		}
	}
	if p.read3Flags {
		if err := p.readWord(&obj.Flags[2], "flags3"); err != nil {
			return err
		}
	}
	if p.read4Flags {
		if err := p.readWord(&obj.Flags[3], "flags4"); err != nil {
			return err
		}
	}
	if p.readPowers {
		if err := p.readWord(&obj.Powers[0], "powers1"); err != nil {
			return err
		}
		if err := p.readWord(&obj.Powers[1], "powers2"); err != nil {
			return err
		}
	}
	if p.readTimestamps {
		if err := p.readLong(&obj.AccessTime, "access time"); err != nil {
			return err
		}
		if err := p.readLong(&obj.ModTime, "mod time"); err != nil {
			return err
		}
	}

	attrs, err := p.readAttrList()
	if err != nil {
		return err
	}
	obj.Attrs = attrs
	return nil
}

// readAttrList reads the > ... < delimited attribute section.
func (p *Parser) readAttrList() ([]gamedb.Attribute, error) {
	var attrs []gamedb.Attribute

	for {
		ch, err := p.peekByte()
		if err != nil {
			return attrs, p.errorf("unexpected EOF in attr list")
		}

		switch ch {
		case '>', ']':
			p.mustReadByte()
			num, err := p.readInt()
			if err != nil {
				return attrs, p.errorf("attr number: %v", err)
			}
			val, err := p.readString()
			if err != nil {
				return attrs, p.errorf("attr %d value: %v", num, err)
			}
			if num <= 0 {
				p.log.Warn("dropping attribute with bad number", zap.Int("attr", num), zap.Int("lineno", p.line))
				continue
			}
			attrs = append(attrs, gamedb.Attribute{Number: num, Value: val})
		case '<':
			p.mustReadByte()
			p.readLine()
			return attrs, nil
		case '\n', '\r':
			p.readLine()
		default:
			return attrs, p.errorf("unexpected character %q in attr list", ch)
		}
	}
}

// parseEOF handles the ***END OF DUMP*** marker.
func (p *Parser) parseEOF() error {
	line, _ := p.readLine()
	if line != endOfDump {
		return p.errorf("bad EOF marker %q", line)
	}
	return nil
}

// --- Low-level I/O helpers ---

func (p *Parser) peekByte() (byte, error) {
	b, err := p.reader.Peek(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (p *Parser) mustReadByte() (byte, error) {
	b, err := p.reader.ReadByte()
	if b == '\n' {
		p.line++
	}
	return b, err
}

// readLine reads until end of line and returns the content (excluding newline).
func (p *Parser) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err == nil {
		p.line++
	}
	if err == io.EOF && line != "" {
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}

func (p *Parser) readInt() (int, error) {
	line, err := p.readLine()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(line))
}

func (p *Parser) readRef(o *gamedb.Opt[gamedb.DBRef], what string) error {
	n, err := p.readInt()
	if err != nil {
		return p.errorf("%s: %v", what, err)
	}
	o.Set(gamedb.DBRef(n))
	return nil
}

// readWord reads a flag or power word. Older servers wrote them signed.
func (p *Parser) readWord(o *gamedb.Opt[uint32], what string) error {
	line, err := p.readLine()
	if err != nil {
		return p.errorf("%s: %v", what, err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return p.errorf("%s: %v", what, err)
	}
	o.Set(uint32(v))
	return nil
}

func (p *Parser) readLong(o *gamedb.Opt[int64], what string) error {
	line, err := p.readLine()
	if err != nil {
		return p.errorf("%s: %v", what, err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return p.errorf("%s: %v", what, err)
	}
	o.Set(v)
	return nil
}

// readString reads a quoted string when the header says strings are quoted,
// otherwise a plain line.
func (p *Parser) readString() (string, error) {
	if !p.readQuoted {
		return p.readLine()
	}
	ch, err := p.peekByte()
	if err != nil {
		return "", err
	}
	if ch != '"' {
		return p.readLine()
	}
	return p.readQuotedString()
}

// readQuotedString reads a "..." delimited string, handling escapes.
func (p *Parser) readQuotedString() (string, error) {
	p.mustReadByte() // opening "

	var buf strings.Builder
	for {
		b, err := p.mustReadByte()
		if err != nil {
			return "", errors.New("unterminated string")
		}
		switch b {
		case '"':
			p.readLine()
			return buf.String(), nil
		case '\\':
			next, err := p.mustReadByte()
			if err != nil {
				return "", errors.New("unterminated string")
			}
			buf.WriteByte(unescape(p.db.Dialect, next))
		default:
			buf.WriteByte(b)
		}
	}
}
