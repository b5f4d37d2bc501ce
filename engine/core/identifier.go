package core

import "fmt"

// IdentifierPool hands out small integer ids and reuses released slots.
type IdentifierPool struct {
	owners []interface{}
}

func NewIdentifierPool(capacity int) *IdentifierPool {
	return &IdentifierPool{
		owners: make([]interface{}, 0, capacity),
	}
}

// Acquire returns the lowest free id. Id 0 is never handed out so that a zero
// value can mean "no handle".
func (p *IdentifierPool) Acquire(owner interface{}) uint32 {
	if len(p.owners) == 0 {
		p.owners = append(p.owners, p)
	}
	length := uint32(len(p.owners))
	for i := uint32(1); i < length; i++ {
		// Existing free spot. Take it.
		if p.owners[i] == nil {
			p.owners[i] = owner
			return i
		}
	}

	p.owners = append(p.owners, owner)
	return uint32(len(p.owners)) - 1
}

func (p *IdentifierPool) Release(id uint32) error {
	if len(p.owners) == 0 {
		return fmt.Errorf("identifier release called before any acquire, id `%d` ignored", id)
	}
	if id == 0 || id >= uint32(len(p.owners)) {
		return fmt.Errorf("identifier `%d` out of range (max=%d)", id, len(p.owners)-1)
	}
	if p.owners[id] == nil {
		return fmt.Errorf("identifier `%d` already released", id)
	}
	p.owners[id] = nil
	return nil
}

// Owner returns the object registered under id, or nil.
func (p *IdentifierPool) Owner(id uint32) interface{} {
	if id == 0 || id >= uint32(len(p.owners)) {
		return nil
	}
	return p.owners[id]
}

// Live counts ids currently in use.
func (p *IdentifierPool) Live() int {
	n := 0
	for i := 1; i < len(p.owners); i++ {
		if p.owners[i] != nil {
			n++
		}
	}
	return n
}
