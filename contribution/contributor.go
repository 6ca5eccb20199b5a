package contribution

import "github.com/alimasry/go-collab-blocks/point"

// Contributor is a replica's identity plus the nonce of the last block
// point it minted.
type Contributor struct {
	replicaID  uint32
	blockNonce uint32
}

func NewContributor(replicaID, blockNonce uint32) *Contributor {
	return &Contributor{replicaID: replicaID, blockNonce: blockNonce}
}

func (c *Contributor) ReplicaID() uint32 { return c.replicaID }

func (c *Contributor) BlockNonce() uint32 { return c.blockNonce }

// BlockPointBetween mints a block point between lower and upper (zero
// points mean the document bounds) and advances the block nonce.
func (c *Contributor) BlockPointBetween(lower, upper point.Point) (point.Point, error) {
	p, err := point.Between(c.replicaID, c.blockNonce, lower, upper, false)
	if err != nil {
		return point.Point{}, err
	}
	c.blockNonce++
	return p, nil
}
