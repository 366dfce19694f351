package adsb

// IcaoCache remembers addresses confirmed by a DF11 or DF17 message with a
// valid, uncorrected checksum. It is the only evidence accepted when an
// address is recovered from an address/parity field.
type IcaoCache struct {
	seen map[uint32]int64
}

// NewIcaoCache creates an empty cache
func NewIcaoCache() *IcaoCache {
	return &IcaoCache{seen: make(map[uint32]int64)}
}

// Add records addr as confirmed at now.
func (c *IcaoCache) Add(addr uint32, now int64) {
	c.seen[addr] = now
}

// Contains reports whether addr has been confirmed and not yet expired.
func (c *IcaoCache) Contains(addr uint32) bool {
	_, ok := c.seen[addr]
	return ok
}

// SweepExpired drops entries older than ttl seconds and returns how many
// were removed. An entry confirmed exactly ttl seconds ago is kept.
func (c *IcaoCache) SweepExpired(now, ttl int64) int {
	removed := 0
	for addr, seen := range c.seen {
		if seen < now-ttl {
			delete(c.seen, addr)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached addresses
func (c *IcaoCache) Len() int {
	return len(c.seen)
}
