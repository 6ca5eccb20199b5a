package block

import "fmt"

// Nonce is a replica's pair of counters within one block: how many of its
// operations were applied and how many points it has minted.
type Nonce [2]uint32

func (n Nonce) Contributor() uint32 { return n[0] }

func (n Nonce) Point() uint32 { return n[1] }

// Version maps replicaID to that replica's Nonce.
type Version map[uint32]Nonce

func (v Version) Clone() Version {
	c := make(Version, len(v))
	for k, n := range v {
		c[k] = n
	}
	return c
}

// VersionEntry is the version a local operation was assigned, to be sent
// along with it.
type VersionEntry struct {
	ReplicaID uint32 `json:"replicaID"`
	Nonce     Nonce  `json:"nonce"`
}

func (e VersionEntry) String() string {
	return fmt.Sprintf("%d@%d/%d", e.ReplicaID, e.Nonce[0], e.Nonce[1])
}

// Origin names the replica behind an operation. Remote operations carry
// the sender's version entry and are recorded verbatim; local ones leave
// Nonce nil and are assigned the next one.
type Origin struct {
	ReplicaID uint32 `json:"replicaID"`
	Nonce     *Nonce `json:"nonce,omitempty"`
}

func Local(replicaID uint32) Origin {
	return Origin{ReplicaID: replicaID}
}

func Remote(entry VersionEntry) Origin {
	nonce := entry.Nonce
	return Origin{ReplicaID: entry.ReplicaID, Nonce: &nonce}
}

func (o Origin) IsRemote() bool { return o.Nonce != nil }
