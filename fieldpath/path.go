package fieldpath

import (
	"strconv"
	"strings"
)

type Kind int

const (
	// Key looks up Name in an object.
	Key Kind = iota
	// Index looks up Name, then takes element Index of the resulting array.
	Index
	// Conditional looks up Name, then takes the first array element
	// whose fields equal every condition.
	Conditional
)

func (k Kind) String() string {
	switch k {
	case Key:
		return "key"
	case Index:
		return "index"
	case Conditional:
		return "conditional"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

type Condition struct {
	Key   string
	Value string
}

// A Segment with an empty Name and Kind other than Key selects
// from the current value itself, as in the second bracket of "a[0][1]".
type Segment struct {
	Kind       Kind
	Name       string
	Index      int
	Conditions []Condition
}

type Path struct {
	raw      string
	segments []Segment
}

// Parse splits a field path into segments. It never fails: a segment
// whose brackets cannot be read as an index or a condition list is
// taken as a plain key, spelled exactly as written.
func Parse(path string) Path {
	p := Path{raw: path}
	if path == "" {
		return p
	}
	for _, part := range splitDots(path) {
		p.segments = append(p.segments, parseSegment(part)...)
	}
	return p
}

func (p Path) String() string {
	return p.raw
}

func (p Path) IsEmpty() bool {
	return len(p.segments) == 0
}

func (p Path) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// dots inside brackets belong to condition values
func splitDots(path string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '.':
			if depth == 0 {
				parts = append(parts, path[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, path[start:])
}

func parseSegment(part string) []Segment {
	open := strings.IndexByte(part, '[')
	if open < 0 {
		return []Segment{{Kind: Key, Name: part}}
	}

	name := part[:open]
	var segs []Segment
	rest := part[open:]
	for rest != "" {
		if rest[0] != '[' {
			return []Segment{{Kind: Key, Name: part}}
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return []Segment{{Kind: Key, Name: part}}
		}
		seg, ok := parseSelector(rest[1:end])
		if !ok {
			return []Segment{{Kind: Key, Name: part}}
		}
		if len(segs) == 0 {
			seg.Name = name
		}
		segs = append(segs, seg)
		rest = rest[end+1:]
	}
	return segs
}

func parseSelector(body string) (Segment, bool) {
	if strings.Contains(body, "=") {
		var conds []Condition
		for _, pair := range strings.Split(body, "&") {
			k, v, found := strings.Cut(pair, "=")
			if !found || k == "" {
				return Segment{}, false
			}
			conds = append(conds, Condition{Key: k, Value: v})
		}
		return Segment{Kind: Conditional, Conditions: conds}, true
	}

	if body == "" {
		return Segment{}, false
	}
	for _, c := range body {
		if c < '0' || c > '9' {
			return Segment{}, false
		}
	}
	n, err := strconv.Atoi(body)
	if err != nil {
		return Segment{}, false
	}
	return Segment{Kind: Index, Index: n}, true
}

// Join appends a key to a dotted path.
func Join(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

// Indexed appends an array index to a path.
func Indexed(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}
