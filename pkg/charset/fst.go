package charset

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/transform"
)

// rule maps one input byte sequence to its output. then selects the start
// state the machine resumes from after the match.
type rule struct {
	in   string
	out  string
	then int
}

// missFunc handles input at a unit boundary that no rule accepts. It returns
// the text to emit, the bytes consumed and the next mode. more asks for more
// input before deciding.
type missFunc func(src []byte, atEOF bool, mode int) (out string, used int, next int, more bool)

// machine is a compiled transducer. A byte is first mapped to its class; the
// transition table row for the current state and that class holds 0 (no
// match), a positive next state, or -(i+1) for accepting rule i.
type machine struct {
	classes [256]uint8
	trans   [][]int32
	outs    []string
	thens   []int
	starts  []int
}

// compile builds a machine from per-mode rule sets. Rules within a mode must
// be prefix free.
func compile(modes [][]rule) *machine {
	nodes := [][256]int32{{}} // row 0 is the dead state
	m := &machine{}
	for range modes {
		nodes = append(nodes, [256]int32{})
		m.starts = append(m.starts, len(nodes)-1)
	}
	for mode, rules := range modes {
		for _, r := range rules {
			s := m.starts[mode]
			for i := 0; i < len(r.in); i++ {
				c := r.in[i]
				cur := nodes[s][c]
				if i == len(r.in)-1 {
					if cur != 0 {
						panic(fmt.Sprintf("charset: rule %q overlaps another rule", r.in))
					}
					m.outs = append(m.outs, r.out)
					m.thens = append(m.thens, r.then)
					nodes[s][c] = -int32(len(m.outs))
					break
				}
				if cur < 0 {
					panic(fmt.Sprintf("charset: rule %q extends another rule", r.in))
				}
				if cur == 0 {
					nodes = append(nodes, [256]int32{})
					cur = int32(len(nodes) - 1)
					nodes[s][c] = cur
				}
				s = int(cur)
			}
		}
	}

	// Bytes whose columns agree in every state share a class.
	ids := make(map[string]uint8)
	var reps []int
	for b := 0; b < 256; b++ {
		key := make([]byte, 0, 4*len(nodes))
		for s := range nodes {
			key = binary.LittleEndian.AppendUint32(key, uint32(nodes[s][b]))
		}
		id, ok := ids[string(key)]
		if !ok {
			if len(reps) == 256 {
				panic("charset: too many byte classes")
			}
			id = uint8(len(reps))
			ids[string(key)] = id
			reps = append(reps, b)
		}
		m.classes[b] = id
	}
	m.trans = make([][]int32, len(nodes))
	for s := range nodes {
		row := make([]int32, len(reps))
		for class, b := range reps {
			row[class] = nodes[s][b]
		}
		m.trans[s] = row
	}
	return m
}

// numClasses reports the size of the byte class alphabet.
func (m *machine) numClasses() int {
	if len(m.trans) == 0 {
		return 0
	}
	return len(m.trans[0])
}

// fst runs a machine as a transform.Transformer.
type fst struct {
	m    *machine
	miss missFunc
	mode int
}

func newFST(m *machine, miss missFunc) *fst {
	return &fst{m: m, miss: miss}
}

func (t *fst) Reset() { t.mode = 0 }

func (t *fst) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		out, used, next, more := t.step(src[nSrc:], atEOF)
		if more {
			return nDst, nSrc, transform.ErrShortSrc
		}
		if nDst+len(out) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += copy(dst[nDst:], out)
		nSrc += used
		t.mode = next
	}
	return nDst, nSrc, nil
}

func (t *fst) step(src []byte, atEOF bool) (string, int, int, bool) {
	s := t.m.starts[t.mode]
	for i := 0; i < len(src); i++ {
		v := t.m.trans[s][t.m.classes[src[i]]]
		if v < 0 {
			idx := -v - 1
			return t.m.outs[idx], i + 1, t.m.thens[idx], false
		}
		if v == 0 {
			return t.miss(src, atEOF, t.mode)
		}
		s = int(v)
	}
	if !atEOF {
		return "", 0, t.mode, true
	}
	return t.miss(src, atEOF, t.mode)
}
