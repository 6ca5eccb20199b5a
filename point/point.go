package point

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/alimasry/go-collab-blocks/orderable"
)

var (
	ErrEmptyPoint = errors.New("empty-point")
	ErrNoRelation = errors.New("invalid-distance-between-no-relation")
)

// Identifier is the "replicaID-nonce" form of a point's own tag.
type Identifier string

func NewIdentifier(replicaID, nonce uint32) Identifier {
	return Identifier(fmt.Sprintf("%d-%d", replicaID, nonce))
}

// Point is a non-empty chain of tags, root first. Points are values and
// are never mutated after construction.
type Point struct {
	tags []Tag
}

var (
	TagMIN = Tag{Priority: orderable.Uint32MIN, ReplicaID: 0, Nonce: 1}
	TagMID = Tag{Priority: orderable.Uint32MID, ReplicaID: 0, Nonce: 3}
	TagMAX = Tag{Priority: orderable.Uint32MAX, ReplicaID: 0, Nonce: 2}

	PointMIN = Point{tags: []Tag{TagMIN}}
	PointMID = Point{tags: []Tag{TagMID}}
	PointMAX = Point{tags: []Tag{TagMAX}}
)

// New builds a point from tags. It panics on an empty chain; use Decode
// for untrusted data.
func New(tags ...Tag) Point {
	if len(tags) == 0 {
		panic(ErrEmptyPoint)
	}
	return Point{tags: append([]Tag(nil), tags...)}
}

// Tags returns a copy of the chain.
func (p Point) Tags() []Tag {
	return append([]Tag(nil), p.tags...)
}

func (p Point) Depth() int { return len(p.tags) }

// IsZero reports whether p is the zero value, which is not a valid point.
func (p Point) IsZero() bool { return len(p.tags) == 0 }

func (p Point) lastTag() Tag {
	return p.tags[len(p.tags)-1]
}

func (p Point) ReplicaID() uint32 { return p.lastTag().ReplicaID }

func (p Point) Nonce() uint32 { return p.lastTag().Nonce }

func (p Point) Identifier() Identifier {
	return NewIdentifier(p.ReplicaID(), p.Nonce())
}

func (p Point) Clone() Point {
	return Point{tags: p.Tags()}
}

// WithNonce replaces the nonce of the last tag.
func (p Point) WithNonce(nonce int64) (Point, error) {
	last, err := p.lastTag().WithNonce(nonce)
	if err != nil {
		return Point{}, err
	}
	return p.withLast(last), nil
}

// Offset shifts the nonce of the last tag.
func (p Point) Offset(offset int64) (Point, error) {
	last, err := p.lastTag().Offset(offset)
	if err != nil {
		return Point{}, err
	}
	return p.withLast(last), nil
}

func (p Point) withLast(last Tag) Point {
	tags := p.Tags()
	tags[len(tags)-1] = last
	return Point{tags: tags}
}

// Equals compares only the identity of the last tags.
func (p Point) Equals(other Point) bool {
	return p.ReplicaID() == other.ReplicaID() && p.Nonce() == other.Nonce()
}

// Compare is the total order over full chains. On a common-prefix tie the
// shorter chain comes first.
func (p Point) Compare(other Point) orderable.Order {
	if p.Equals(other) {
		return orderable.Equal
	}
	thisDepth, otherDepth := len(p.tags), len(other.tags)
	for i := 0; i < min(thisDepth, otherDepth); i++ {
		if comp := p.tags[i].Compare(other.tags[i]); comp != orderable.Equal {
			return comp
		}
	}
	if thisDepth < otherDepth {
		return orderable.Less
	}
	return orderable.Greater
}

// CompareBase orders points ignoring the nonce of the deepest common tag.
// Tagging means p extends other's chain; Tagged means other extends p's.
func (p Point) CompareBase(other Point) orderable.Order {
	if p.Equals(other) {
		return orderable.Equal
	}
	thisDepth, otherDepth := len(p.tags), len(other.tags)
	commonBaseDepth := min(thisDepth, otherDepth) - 1

	baseComp := orderable.Equal
	for i := 0; i < commonBaseDepth && baseComp == orderable.Equal; i++ {
		baseComp = p.tags[i].Compare(other.tags[i])
	}
	if baseComp == orderable.Equal {
		baseComp = p.tags[commonBaseDepth].CompareBase(other.tags[commonBaseDepth])
	}
	if baseComp != orderable.Equal {
		return baseComp
	}
	switch {
	case thisDepth > otherDepth:
		return orderable.Tagging
	case thisDepth == otherDepth:
		return orderable.Equal
	default:
		return orderable.Tagged
	}
}

// DistanceFrom returns the nonce distance at the deepest common tag and
// how p's nonce orders against other's there.
func (p Point) DistanceFrom(other Point) (int, orderable.Order, error) {
	baseComp := p.CompareBase(other)
	if baseComp == orderable.Less || baseComp == orderable.Greater {
		return 0, baseComp, ErrNoRelation
	}
	dist, order := p.Distance(other)
	return dist, order, nil
}

// Distance is DistanceFrom without the relation check, for callers that
// already know the two points share a base.
func (p Point) Distance(other Point) (int, orderable.Order) {
	commonBaseDepth := min(len(p.tags), len(other.tags)) - 1
	thisNonce := int(p.tags[commonBaseDepth].Nonce)
	otherNonce := int(other.tags[commonBaseDepth].Nonce)
	order := orderable.Compare(thisNonce, otherNonce)
	if order == orderable.Less {
		return otherNonce - thisNonce, order
	}
	return thisNonce - otherNonce, order
}

// Data is the encoded form of a point.
type Data [][3]uint32

func (p Point) Encode() Data {
	data := make(Data, len(p.tags))
	for i, tag := range p.tags {
		data[i] = tag.Encode()
	}
	return data
}

func Decode(data Data) (Point, error) {
	if len(data) == 0 {
		return Point{}, ErrEmptyPoint
	}
	tags := make([]Tag, len(data))
	for i, tuple := range data {
		tags[i] = DecodeTag(tuple)
	}
	return Point{tags: tags}, nil
}

// MustDecode is Decode for literals known to be valid.
func MustDecode(data Data) Point {
	p, err := Decode(data)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Encode())
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var data Data
	if err := json.Unmarshal(b, &data); err != nil {
		return fmt.Errorf("decode point: %w", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		return fmt.Errorf("decode point: %w", err)
	}
	*p = decoded
	return nil
}

func (p Point) String() string {
	parts := make([]string, len(p.tags))
	for i, tag := range p.tags {
		parts[i] = tag.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}
