package penndb

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/crystal-mush/omega/pkg/gamedb"
)

// ErrFormat marks input that is not a well-formed labeled flatfile.
var ErrFormat = errors.New("malformed P6H flatfile")

const endOfDump = "***END OF DUMP***"

// Parser reads a PennMUSH labeled flatfile.
type Parser struct {
	reader *bufio.Reader
	db     *Database
	log    *zap.Logger
	line   int
}

// Load reads a flatfile from disk.
func Load(path string, log *zap.Logger) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open flatfile %s", path)
	}
	defer f.Close()
	return Parse(f, log)
}

// Parse reads a flatfile from r.
func Parse(r io.Reader, log *zap.Logger) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Parser{
		reader: bufio.NewReaderSize(r, 256*1024),
		db:     NewDatabase(),
		log:    log,
		line:   1,
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
			if err := p.parseSection(); err != nil {
				return err
			}
		case '~':
			p.mustReadByte()
			n, err := p.readInt()
			if err != nil {
				return p.errorf("size: %v", err)
			}
			p.db.Size.Set(n)
		case '!':
			if err := p.parseObject(); err != nil {
				return err
			}
		case '*':
			line, _ := p.readLine()
			if line != endOfDump {
				return p.errorf("bad EOF marker %q", line)
			}
			return nil
		case '\n', '\r':
			p.readLine()
		default:
			label, _, err := p.readLabel()
			if err != nil {
				return err
			}
			if err := p.parseHeaderField(label); err != nil {
				return err
			}
		}
	}
}

func (p *Parser) parseHeaderField(label string) error {
	switch label {
	case "dbversion":
		n, err := p.readInt()
		if err != nil {
			return p.errorf("dbversion: %v", err)
		}
		p.db.DBVersion.Set(n)
	case "savedtime":
		s, err := p.readValue()
		if err != nil {
			return err
		}
		p.db.SavedTime.Set(s)
	default:
		p.log.Warn("skipping unknown header field", zap.String("label", label), zap.Int("line", p.line))
		_, err := p.readValue()
		return err
	}
	return nil
}

func (p *Parser) parseSection() error {
	line, err := p.readLine()
	if err != nil {
		return p.errorf("%v", err)
	}
	switch {
	case strings.HasPrefix(line, "+V"):
		n, err := strconv.Atoi(line[2:])
		if err != nil {
			return p.errorf("version header %q", line)
		}
		p.db.Version = n & 0xff
		p.db.DBFlags = n >> 8
	case line == "+FLAGS LIST":
		list, count, err := p.readFlagList()
		if err != nil {
			return errors.Wrap(err, "flag list")
		}
		p.db.FlagList, p.db.FlagCount = list, count
	case line == "+POWER LIST":
		list, count, err := p.readFlagList()
		if err != nil {
			return errors.Wrap(err, "power list")
		}
		p.db.PowerList, p.db.PowerCount = list, count
	case line == "+FLAG ALIASES":
		list, count, err := p.readAliasList()
		if err != nil {
			return errors.Wrap(err, "flag aliases")
		}
		p.db.FlagAliases, p.db.FlagAliasCount = list, count
	case line == "+POWER ALIASES":
		list, count, err := p.readAliasList()
		if err != nil {
			return errors.Wrap(err, "power aliases")
		}
		p.db.PowerAliases, p.db.PowerAliasCount = list, count
	default:
		p.log.Warn("skipping unknown section", zap.String("section", line), zap.Int("line", p.line))
	}
	return nil
}

func (p *Parser) readCount(want string) (gamedb.Opt[int], error) {
	label, _, err := p.readLabel()
	if err != nil {
		return gamedb.Opt[int]{}, err
	}
	if label != want {
		return gamedb.Opt[int]{}, p.errorf("expected %q, got %q", want, label)
	}
	n, err := p.readInt()
	if err != nil {
		return gamedb.Opt[int]{}, p.errorf("%s: %v", want, err)
	}
	if n < 0 {
		return gamedb.Opt[int]{}, p.errorf("%s: negative count %d", want, n)
	}
	return gamedb.Some(n), nil
}

func (p *Parser) readFlagList() ([]FlagInfo, gamedb.Opt[int], error) {
	count, err := p.readCount("flagcount")
	if err != nil {
		return nil, count, err
	}
	var list []FlagInfo
	for i := 0; i < count.V; i++ {
		fields, err := p.readEntry("name")
		if err != nil {
			return nil, count, err
		}
		list = append(list, FlagInfo{
			Name:        fields["name"],
			Letter:      fields["letter"],
			Type:        fields["type"],
			Perms:       fields["perms"],
			NegatePerms: fields["negate_perms"],
		})
	}
	return list, count, nil
}

func (p *Parser) readAliasList() ([]FlagAliasInfo, gamedb.Opt[int], error) {
	count, err := p.readCount("flagaliascount")
	if err != nil {
		return nil, count, err
	}
	var list []FlagAliasInfo
	for i := 0; i < count.V; i++ {
		fields, err := p.readEntry("name")
		if err != nil {
			return nil, count, err
		}
		list = append(list, FlagAliasInfo{Name: fields["name"], Alias: fields["alias"]})
	}
	return list, count, nil
}

// readEntry reads one indented list entry: a first label, then every
// following line indented deeper than it.
func (p *Parser) readEntry(first string) (map[string]string, error) {
	label, indent, err := p.readLabel()
	if err != nil {
		return nil, err
	}
	if label != first {
		return nil, p.errorf("expected %q, got %q", first, label)
	}
	v, err := p.readValue()
	if err != nil {
		return nil, err
	}
	fields := map[string]string{first: v}
	for {
		n, err := p.peekIndent()
		if err != nil || n <= indent {
			return fields, nil
		}
		label, _, err := p.readLabel()
		if err != nil {
			return nil, err
		}
		v, err := p.readValue()
		if err != nil {
			return nil, err
		}
		fields[label] = v
	}
}

func (p *Parser) parseObject() error {
	p.mustReadByte() // '!'
	ref, err := p.readInt()
	if err != nil {
		return p.errorf("object ref: %v", err)
	}
	obj := NewObject(gamedb.DBRef(ref))

	for {
		ch, err := p.peekByte()
		if err != nil {
			return p.errorf("object #%d: unexpected EOF", ref)
		}
		if ch == '!' || ch == '*' {
			break
		}
		if ch == '\n' || ch == '\r' {
			p.readLine()
			continue
		}
		label, _, err := p.readLabel()
		if err != nil {
			return err
		}
		if err := p.objectField(obj, label); err != nil {
			return errors.Wrapf(err, "object #%d %s", ref, label)
		}
	}

	if p.db.AddObject(obj) {
		p.log.Warn("duplicate object merged", zap.Int("ref", ref))
	}
	return nil
}

func (p *Parser) objectField(obj *Object, label string) error {
	switch label {
	case "name":
		return p.setString(&obj.Name)
	case "location":
		return p.setRef(&obj.Location)
	case "contents":
		return p.setRef(&obj.Contents)
	case "exits":
		return p.setRef(&obj.Exits)
	case "next":
		return p.setRef(&obj.Next)
	case "parent":
		return p.setRef(&obj.Parent)
	case "owner":
		return p.setRef(&obj.Owner)
	case "zone":
		return p.setRef(&obj.Zone)
	case "pennies":
		return p.setInt(&obj.Pennies)
	case "type":
		return p.setInt(&obj.Type)
	case "flags":
		return p.setString(&obj.Flags)
	case "powers":
		return p.setString(&obj.Powers)
	case "warnings":
		return p.setString(&obj.Warnings)
	case "created":
		return p.setInt64(&obj.Created)
	case "modified":
		return p.setInt64(&obj.Modified)
	case "lockcount":
		if err := p.setInt(&obj.LockCount); err != nil {
			return err
		}
		if obj.LockCount.V < 0 {
			return p.errorf("lockcount: negative count %d", obj.LockCount.V)
		}
		for i := 0; i < obj.LockCount.V; i++ {
			fields, err := p.readEntry("type")
			if err != nil {
				return err
			}
			obj.Locks = append(obj.Locks, lockFromFields(fields))
		}
	case "attrcount":
		if err := p.setInt(&obj.AttrCount); err != nil {
			return err
		}
		if obj.AttrCount.V < 0 {
			return p.errorf("attrcount: negative count %d", obj.AttrCount.V)
		}
		for i := 0; i < obj.AttrCount.V; i++ {
			fields, err := p.readEntry("name")
			if err != nil {
				return err
			}
			obj.Attrs = append(obj.Attrs, attrFromFields(fields))
		}
	default:
		p.log.Warn("skipping unknown object field",
			zap.Int("ref", int(obj.Ref)), zap.String("label", label), zap.Int("line", p.line))
		_, err := p.readValue()
		return err
	}
	return nil
}

func lockFromFields(f map[string]string) Lock {
	l := Lock{Type: f["type"]}
	if v, ok := f["creator"]; ok {
		if ref, err := parseRef(v); err == nil {
			l.Creator.Set(ref)
		}
	}
	if v, ok := f["flags"]; ok {
		l.Flags.Set(v)
	}
	if v, ok := f["derefs"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			l.Derefs.Set(n)
		}
	}
	if v, ok := f["key"]; ok {
		l.Key.Set(v)
	}
	return l
}

func attrFromFields(f map[string]string) Attr {
	a := Attr{Name: f["name"]}
	if v, ok := f["owner"]; ok {
		if ref, err := parseRef(v); err == nil {
			a.Owner.Set(ref)
		}
	}
	if v, ok := f["flags"]; ok {
		a.Flags.Set(v)
	}
	if v, ok := f["derefs"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			a.Derefs.Set(n)
		}
	}
	if v, ok := f["value"]; ok {
		a.Value.Set(v)
	}
	return a
}

func parseRef(s string) (gamedb.DBRef, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	n, err := strconv.Atoi(s)
	return gamedb.DBRef(n), err
}

func (p *Parser) setString(o *gamedb.Opt[string]) error {
	v, err := p.readValue()
	if err != nil {
		return err
	}
	o.Set(v)
	return nil
}

func (p *Parser) setRef(o *gamedb.Opt[gamedb.DBRef]) error {
	v, err := p.readValue()
	if err != nil {
		return err
	}
	ref, err := parseRef(v)
	if err != nil {
		return p.errorf("bad reference %q", v)
	}
	o.Set(ref)
	return nil
}

func (p *Parser) setInt(o *gamedb.Opt[int]) error {
	n, err := p.readInt()
	if err != nil {
		return p.errorf("%v", err)
	}
	o.Set(n)
	return nil
}

func (p *Parser) setInt64(o *gamedb.Opt[int64]) error {
	v, err := p.readValue()
	if err != nil {
		return err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return p.errorf("bad number %q", v)
	}
	o.Set(n)
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

// peekIndent reports how many blanks start the next line.
func (p *Parser) peekIndent() (int, error) {
	for n := 1; ; n++ {
		b, err := p.reader.Peek(n)
		if err != nil {
			return 0, err
		}
		if c := b[n-1]; c != ' ' && c != '\t' {
			return n - 1, nil
		}
	}
}

// readLabel skips leading blanks and reads the label word together with the
// single space that separates it from its value.
func (p *Parser) readLabel() (string, int, error) {
	indent := 0
	var label strings.Builder
	for {
		ch, err := p.peekByte()
		if err != nil {
			return "", 0, p.errorf("unexpected EOF reading label")
		}
		if (ch == ' ' || ch == '\t') && label.Len() == 0 {
			p.mustReadByte()
			indent++
			continue
		}
		if ch == ' ' {
			p.mustReadByte()
			return label.String(), indent, nil
		}
		if ch == '\n' || ch == '\r' {
			return label.String(), indent, nil
		}
		p.mustReadByte()
		label.WriteByte(ch)
	}
}

// readValue reads the rest of a labeled line. Quoted values may span lines.
func (p *Parser) readValue() (string, error) {
	ch, err := p.peekByte()
	if err != nil {
		return "", p.errorf("unexpected EOF reading value")
	}
	if ch == '"' {
		return p.readQuotedString()
	}
	return p.readLine()
}

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

// readQuotedString reads a "..." string. Only '\' escapes exist: the byte
// after it is taken literally.
func (p *Parser) readQuotedString() (string, error) {
	p.mustReadByte() // opening "

	var buf strings.Builder
	for {
		b, err := p.mustReadByte()
		if err != nil {
			return "", p.errorf("unterminated string")
		}
		switch b {
		case '"':
			rest, _ := p.readLine()
			if strings.TrimSpace(rest) != "" {
				p.log.Warn("text after closing quote", zap.String("text", rest), zap.Int("line", p.line))
			}
			return buf.String(), nil
		case '\\':
			next, err := p.mustReadByte()
			if err != nil {
				return "", p.errorf("unterminated string")
			}
			buf.WriteByte(next)
		default:
			buf.WriteByte(b)
		}
	}
}
