package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crystal-mush/omega/pkg/boltstore"
	"github.com/crystal-mush/omega/pkg/convert"
	"github.com/crystal-mush/omega/pkg/flatfile"
	"github.com/crystal-mush/omega/pkg/gamedb"
	"github.com/crystal-mush/omega/pkg/penndb"
	"github.com/crystal-mush/omega/pkg/validate"
)

type inspectFlags struct {
	players   bool
	rooms     bool
	obj       int
	attrStats bool
	validate  bool
}

func newInspectCmd() *cobra.Command {
	var f inspectFlags
	cmd := &cobra.Command{
		Use:   "inspect <dialect> <file>",
		Short: "Print a summary of a flatfile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := gamedb.ParseDialect(args[0])
			if err != nil {
				return reportError(cmd, err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Loading flatfile: %s\n", args[1])
			start := time.Now()
			db, err := loadFile(d, args[1])
			if err != nil {
				return reportError(cmd, err)
			}
			fmt.Fprintf(w, "Loaded in %v\n\n", time.Since(start))
			printDB(w, db, f)
			return nil
		},
	}
	cmd.Flags().BoolVar(&f.players, "players", false, "list all players")
	cmd.Flags().BoolVar(&f.rooms, "rooms", false, "list rooms with content and exit counts")
	cmd.Flags().IntVar(&f.obj, "obj", -1, "show one object by dbref")
	cmd.Flags().BoolVar(&f.attrStats, "attrstats", false, "show attribute usage statistics")
	cmd.Flags().BoolVar(&f.validate, "validate", false, "run the validator and list findings")
	return cmd
}

func newSnapshotCmd() *cobra.Command {
	var f inspectFlags
	var player string
	cmd := &cobra.Command{
		Use:   "snapshot <boltfile>",
		Short: "Print a summary of a bbolt snapshot written with --bolt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return reportError(cmd, errors.Wrap(err, "snapshot"))
			}
			s, err := boltstore.Open(args[0], zap.NewNop())
			if err != nil {
				return reportError(cmd, err)
			}
			defer s.Close()

			w := cmd.OutOrStdout()
			if player != "" {
				ref, ok := s.LookupPlayer(player)
				if !ok {
					return reportError(cmd, errors.Newf("no player named %q", player))
				}
				fmt.Fprintf(w, "Player %s is #%d\n\n", player, ref)
				f.obj = int(ref)
			}
			db, err := s.Load()
			if err != nil {
				return reportError(cmd, err)
			}
			printDB(w, db, f)
			return nil
		},
	}
	cmd.Flags().StringVar(&player, "player", "", "find a player by name and show it")
	cmd.Flags().BoolVar(&f.players, "players", false, "list all players")
	cmd.Flags().BoolVar(&f.validate, "validate", false, "run the validator and list findings")
	f.obj = -1
	return cmd
}

func loadFile(d gamedb.Dialect, path string) (convert.DB, error) {
	if d == gamedb.P6H {
		db, err := penndb.Load(path, zap.NewNop())
		if err != nil {
			return convert.DB{}, err
		}
		return convert.PennDB(db), nil
	}
	db, err := flatfile.Load(path, d, zap.NewNop())
	if err != nil {
		return convert.DB{}, err
	}
	return convert.NumericDB(db), nil
}

func printDB(w io.Writer, db convert.DB, f inspectFlags) {
	if db.Penn != nil {
		printPennSummary(w, db.Penn)
		if f.players {
			fmt.Fprintln(w)
			printPennPlayers(w, db.Penn)
		}
		if f.obj >= 0 {
			fmt.Fprintln(w)
			printPennObject(w, db.Penn, gamedb.DBRef(f.obj))
		}
		if f.validate {
			fmt.Fprintln(w)
			printFindings(w, validate.ForPenn(db.Penn))
		}
		return
	}

	printSummary(w, db.Numeric)
	if f.players {
		fmt.Fprintln(w)
		printPlayers(w, db.Numeric)
	}
	if f.rooms {
		fmt.Fprintln(w)
		printRooms(w, db.Numeric)
	}
	if f.obj >= 0 {
		fmt.Fprintln(w)
		printObject(w, db.Numeric, gamedb.DBRef(f.obj))
	}
	if f.attrStats {
		fmt.Fprintln(w)
		printAttrStats(w, db.Numeric)
	}
	if f.validate {
		fmt.Fprintln(w)
		printFindings(w, validate.ForNumeric(db.Numeric))
	}
}

func printSummary(w io.Writer, db *gamedb.Database) {
	fmt.Fprintln(w, "=== DATABASE SUMMARY ===")
	fmt.Fprintf(w, "Dialect:        %s\n", db.Dialect)
	fmt.Fprintf(w, "Version:        %d\n", db.Version)
	fmt.Fprintf(w, "Header flags:   0x%x\n", db.Flags)
	fmt.Fprintf(w, "Declared size:  %s\n", optInt(db.Size))
	fmt.Fprintf(w, "Loaded objects: %d\n", len(db.Objects))
	fmt.Fprintf(w, "Attr defs:      %d user-defined attributes\n", len(db.AttrNames))
	fmt.Fprintf(w, "Next attr num:  %s\n", optInt(db.NextAttr))
	fmt.Fprintf(w, "Record players: %s\n", optInt(db.RecordPlayers))

	typeCounts := make(map[gamedb.ObjectType]int)
	totalAttrs := 0
	goingCount := 0
	for _, obj := range db.Objects {
		typeCounts[obj.ObjType()]++
		totalAttrs += len(obj.Attrs)
		if obj.IsGoing() {
			goingCount++
		}
	}

	fmt.Fprintln(w, "\n--- Object Counts by Type ---")
	types := []gamedb.ObjectType{
		gamedb.TypeRoom, gamedb.TypeThing, gamedb.TypeExit,
		gamedb.TypePlayer, gamedb.TypeGarbage,
	}
	for _, t := range types {
		if c, ok := typeCounts[t]; ok {
			fmt.Fprintf(w, "  %-10s %d\n", t.String(), c)
		}
	}
	fmt.Fprintf(w, "  %-10s %d\n", "GOING", goingCount)
	fmt.Fprintf(w, "\nTotal attributes across all objects: %d\n", totalAttrs)
}

func printPlayers(w io.Writer, db *gamedb.Database) {
	fmt.Fprintln(w, "=== PLAYERS ===")
	fmt.Fprintf(w, "%-8s %-25s %-10s %s\n", "DBRef", "Name", "Location", "Last Access")
	fmt.Fprintln(w, strings.Repeat("-", 75))
	count := 0
	for _, ref := range db.Refs() {
		obj := db.Objects[ref]
		if obj.ObjType() != gamedb.TypePlayer || obj.IsGoing() {
			continue
		}
		last := "never"
		if obj.AccessTime.Ok && obj.AccessTime.V > 0 {
			last = time.Unix(obj.AccessTime.V, 0).UTC().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "#%-7d %-25s %-10s %s\n", ref, truncate(obj.Name.V, 25), optRef(obj.Location), last)
		count++
	}
	fmt.Fprintf(w, "\nTotal players: %d\n", count)
}

// chainLen counts a next-linked list, stopping at a missing object or loop.
func chainLen(db *gamedb.Database, head gamedb.Opt[gamedb.DBRef]) int {
	n := 0
	seen := make(map[gamedb.DBRef]bool)
	for next := head.Or(gamedb.Nothing); next >= 0 && !seen[next]; n++ {
		seen[next] = true
		o, ok := db.Objects[next]
		if !ok {
			return n + 1
		}
		next = o.Next.Or(gamedb.Nothing)
	}
	return n
}

func printRooms(w io.Writer, db *gamedb.Database) {
	fmt.Fprintln(w, "=== ROOMS (first 50) ===")
	fmt.Fprintf(w, "%-8s %-40s %8s %8s\n", "DBRef", "Name", "Contents", "Exits")
	fmt.Fprintln(w, strings.Repeat("-", 68))

	total, shown := 0, 0
	for _, ref := range db.Refs() {
		obj := db.Objects[ref]
		if obj.ObjType() != gamedb.TypeRoom || obj.IsGoing() {
			continue
		}
		total++
		if shown < 50 {
			fmt.Fprintf(w, "#%-7d %-40s %8d %8d\n", ref, truncate(obj.Name.V, 40),
				chainLen(db, obj.Contents), chainLen(db, obj.Exits))
			shown++
		}
	}
	fmt.Fprintf(w, "\nTotal rooms: %d (showing first %d)\n", total, shown)
}

func printObject(w io.Writer, db *gamedb.Database, ref gamedb.DBRef) {
	obj, ok := db.Objects[ref]
	if !ok {
		fmt.Fprintf(w, "Object #%d not found in database\n", ref)
		return
	}

	fmt.Fprintf(w, "=== OBJECT #%d ===\n", ref)
	fmt.Fprintf(w, "Name:       %s\n", obj.Name.V)
	fmt.Fprintf(w, "Type:       %s\n", obj.ObjType())
	fmt.Fprintf(w, "Location:   %s\n", optRef(obj.Location))
	fmt.Fprintf(w, "Zone:       %s\n", optRef(obj.Zone))
	fmt.Fprintf(w, "Contents:   %s\n", optRef(obj.Contents))
	fmt.Fprintf(w, "Exits:      %s\n", optRef(obj.Exits))
	fmt.Fprintf(w, "Link/Home:  %s\n", optRef(obj.Link))
	fmt.Fprintf(w, "Next:       %s\n", optRef(obj.Next))
	fmt.Fprintf(w, "Owner:      %s\n", optRef(obj.Owner))
	fmt.Fprintf(w, "Parent:     %s\n", optRef(obj.Parent))
	fmt.Fprintf(w, "Pennies:    %s\n", optInt(obj.Pennies))
	fmt.Fprintf(w, "Flags:      0x%08x 0x%08x 0x%08x 0x%08x\n",
		obj.FlagWord(0), obj.FlagWord(1), obj.FlagWord(2), obj.FlagWord(3))
	fmt.Fprintf(w, "Powers:     0x%08x 0x%08x\n", obj.Powers[0].V, obj.Powers[1].V)
	if obj.Lock != nil {
		fmt.Fprintf(w, "Lock:       %s\n", flatfile.HeaderLock(obj))
	}
	fmt.Fprintf(w, "Going:      %v\n", obj.IsGoing())
	fmt.Fprintf(w, "Flag names: %s\n", flagNames(db.Dialect, obj))

	fmt.Fprintf(w, "\n--- Attributes (%d) ---\n", len(obj.Attrs))
	for _, attr := range obj.Attrs {
		fmt.Fprintf(w, "  [%d] %s = %s\n", attr.Number, db.AttrName(attr.Number), truncate(attr.Value, 120))
	}
}

// flagNames lists the named bits set in the object's flag words.
func flagNames(d gamedb.Dialect, obj *gamedb.Object) string {
	var names []string
	for _, b := range gamedb.FlagBits(d) {
		if b.Word < 4 && obj.HasFlag(b.Word, b.Mask) {
			names = append(names, b.Name)
		}
	}
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, " ")
}

func printAttrStats(w io.Writer, db *gamedb.Database) {
	fmt.Fprintln(w, "=== ATTRIBUTE STATISTICS ===")

	usage := make(map[int]int)
	for _, obj := range db.Objects {
		for _, attr := range obj.Attrs {
			usage[attr.Number]++
		}
	}

	type attrCount struct {
		num   int
		count int
	}
	var counts []attrCount
	for num, count := range usage {
		counts = append(counts, attrCount{num, count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].num < counts[j].num
	})

	fmt.Fprintf(w, "%-8s %-30s %s\n", "AttrNum", "Name", "Usage Count")
	fmt.Fprintln(w, strings.Repeat("-", 55))
	for _, c := range counts[:min(50, len(counts))] {
		fmt.Fprintf(w, "%-8d %-30s %d\n", c.num, truncate(db.AttrName(c.num), 30), c.count)
	}
	fmt.Fprintf(w, "\nTotal unique attributes in use: %d\n", len(usage))
}

func printPennSummary(w io.Writer, db *penndb.Database) {
	fmt.Fprintln(w, "=== DATABASE SUMMARY ===")
	fmt.Fprintf(w, "Dialect:        %s\n", gamedb.P6H)
	fmt.Fprintf(w, "Header:         +V%d\n", db.Header())
	fmt.Fprintf(w, "DB version:     %s\n", optInt(db.DBVersion))
	fmt.Fprintf(w, "Saved:          %s\n", db.SavedTime.Or("(unknown)"))
	fmt.Fprintf(w, "Declared size:  %s\n", optInt(db.Size))
	fmt.Fprintf(w, "Loaded objects: %d\n", len(db.Objects))
	fmt.Fprintf(w, "Flags listed:   %d (%d aliases)\n", len(db.FlagList), len(db.FlagAliases))
	fmt.Fprintf(w, "Powers listed:  %d (%d aliases)\n", len(db.PowerList), len(db.PowerAliases))

	typeCounts := make(map[int]int)
	totalAttrs, totalLocks := 0, 0
	for _, obj := range db.Objects {
		typeCounts[obj.Type.V]++
		totalAttrs += len(obj.Attrs)
		totalLocks += len(obj.Locks)
	}
	fmt.Fprintln(w, "\n--- Object Counts by Type ---")
	for _, t := range []int{penndb.TypeRoom, penndb.TypeThing, penndb.TypeExit, penndb.TypePlayer, penndb.TypeGarbage} {
		if c, ok := typeCounts[t]; ok {
			fmt.Fprintf(w, "  %-10s %d\n", penndb.TypeName(t), c)
		}
	}
	fmt.Fprintf(w, "\nTotal attributes across all objects: %d\n", totalAttrs)
	fmt.Fprintf(w, "Total locks across all objects:      %d\n", totalLocks)
}

func printPennPlayers(w io.Writer, db *penndb.Database) {
	fmt.Fprintln(w, "=== PLAYERS ===")
	fmt.Fprintf(w, "%-8s %-25s %-10s %s\n", "DBRef", "Name", "Location", "Flags")
	fmt.Fprintln(w, strings.Repeat("-", 75))
	count := 0
	for _, ref := range db.Refs() {
		obj := db.Objects[ref]
		if obj.Type.V != penndb.TypePlayer {
			continue
		}
		fmt.Fprintf(w, "#%-7d %-25s %-10s %s\n", ref, truncate(obj.Name.V, 25), optRef(obj.Location), obj.Flags.V)
		count++
	}
	fmt.Fprintf(w, "\nTotal players: %d\n", count)
}

func printPennObject(w io.Writer, db *penndb.Database, ref gamedb.DBRef) {
	obj, ok := db.Objects[ref]
	if !ok {
		fmt.Fprintf(w, "Object #%d not found in database\n", ref)
		return
	}
	fmt.Fprintf(w, "=== OBJECT #%d ===\n", ref)
	fmt.Fprintf(w, "Name:       %s\n", obj.Name.V)
	fmt.Fprintf(w, "Type:       %s\n", penndb.TypeName(obj.Type.V))
	fmt.Fprintf(w, "Location:   %s\n", optRef(obj.Location))
	fmt.Fprintf(w, "Contents:   %s\n", optRef(obj.Contents))
	fmt.Fprintf(w, "Exits:      %s\n", optRef(obj.Exits))
	fmt.Fprintf(w, "Next:       %s\n", optRef(obj.Next))
	fmt.Fprintf(w, "Owner:      %s\n", optRef(obj.Owner))
	fmt.Fprintf(w, "Parent:     %s\n", optRef(obj.Parent))
	fmt.Fprintf(w, "Zone:       %s\n", optRef(obj.Zone))
	fmt.Fprintf(w, "Flags:      %s\n", obj.Flags.V)
	fmt.Fprintf(w, "Powers:     %s\n", obj.Powers.V)

	fmt.Fprintf(w, "\n--- Locks (%d) ---\n", len(obj.Locks))
	for _, l := range obj.Locks {
		fmt.Fprintf(w, "  %s = %s\n", l.Type, l.Key.V)
	}
	fmt.Fprintf(w, "\n--- Attributes (%d) ---\n", len(obj.Attrs))
	for _, a := range obj.Attrs {
		fmt.Fprintf(w, "  %s = %s\n", a.Name, truncate(a.Value.V, 120))
	}
}

func printFindings(w io.Writer, v *validate.Validator) {
	fmt.Fprintln(w, "=== VALIDATION ===")
	findings := v.Run()
	for _, f := range findings {
		fmt.Fprintf(w, "%-7s %-22s %s\n", strings.ToUpper(f.Severity.String()), f.Category, f.Description)
	}
	bySev := v.SummaryBySeverity()
	fmt.Fprintf(w, "\n%d fatal, %d errors, %d warnings, %d info\n",
		bySev[validate.SevFatal], bySev[validate.SevError], bySev[validate.SevWarning], bySev[validate.SevInfo])
}

func optRef(o gamedb.Opt[gamedb.DBRef]) string {
	if !o.Ok {
		return "-"
	}
	return fmt.Sprintf("#%d", o.V)
}

func optInt(o gamedb.Opt[int]) string {
	if !o.Ok {
		return "-"
	}
	return fmt.Sprint(o.V)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
