package frame

import "github.com/cockroachdb/errors"

const NoOwner = -1

// Ownership records which in-flight slot's fence last claimed each swapchain
// image. An image must not be touched again until that fence has signaled.
type Ownership struct {
	owners []int
}

func NewOwnership(imageCount int) *Ownership {
	o := &Ownership{}
	o.Reset(imageCount)
	return o
}

// Reset forgets every owner and resizes the table. Called whenever the
// swapchain is rebuilt, since the image count may change.
func (o *Ownership) Reset(imageCount int) {
	o.owners = make([]int, imageCount)
	for i := range o.owners {
		o.owners[i] = NoOwner
	}
}

func (o *Ownership) Len() int {
	return len(o.owners)
}

func (o *Ownership) Owner(image int) (int, error) {
	if image < 0 || image >= len(o.owners) {
		return NoOwner, errors.AssertionFailedf("image index %d outside ownership table of %d", image, len(o.owners))
	}
	return o.owners[image], nil
}

// Claim assigns image to slot and returns the previous owner.
func (o *Ownership) Claim(image, slot int) (int, error) {
	prev, err := o.Owner(image)
	if err != nil {
		return NoOwner, err
	}
	o.owners[image] = slot
	return prev, nil
}
