package oracle

import (
	"context"
	"encoding/binary"
	"math/big"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/holiman/bloomfilter/v2"

	"github.com/ethvm/evm/core/types"
)

// CachingOracle wraps a WorldState with an in-process hot cache for code
// and balance lookups, plus a negative-existence bloom filter that lets a
// cold miss short-circuit straight to the underlying oracle without a
// cache probe. It does not cache storage or nonce, which churn too fast
// within a block to be worth the memory.
type CachingOracle struct {
	WorldState
	codeCache *fastcache.Cache
	negative  *bloomfilter.Filter
}

// NewCachingOracle wraps next with an in-memory code cache of
// approximately cacheBytes in size and a bloom filter sized for
// expectedAccounts negative-existence entries.
func NewCachingOracle(next WorldState, cacheBytes int, expectedAccounts uint64) *CachingOracle {
	filter, err := bloomfilter.New(expectedAccounts*10, 7)
	if err != nil {
		// Parameters are caller-controlled constants; a construction
		// failure here means expectedAccounts was zero.
		filter, _ = bloomfilter.New(1024, 7)
	}
	return &CachingOracle{
		WorldState: next,
		codeCache:  fastcache.New(cacheBytes),
		negative:   filter,
	}
}

func cacheKey(addr types.Address) []byte {
	return addr[:]
}

func bloomKey(addr types.Address) uint64 {
	return binary.BigEndian.Uint64(addr[:8])
}

// GetCode serves from the in-memory cache when present, otherwise fetches
// from the wrapped oracle and populates the cache (including a negative
// entry when the account has no code, via the bloom filter).
func (c *CachingOracle) GetCode(ctx context.Context, addr types.Address) ([]byte, error) {
	key := cacheKey(addr)
	if c.negative.Contains(bloomfilterHash(bloomKey(addr))) {
		if cached, ok := c.codeCache.HasGet(nil, key); ok {
			return cached, nil
		}
	}
	code, err := c.WorldState.GetCode(ctx, addr)
	if err != nil {
		return nil, err
	}
	if len(code) == 0 {
		c.negative.Add(bloomfilterHash(bloomKey(addr)))
		return code, nil
	}
	c.codeCache.Set(key, code)
	return code, nil
}

// GetBalance bypasses the cache (balances mutate every transaction) and
// simply forwards to the wrapped oracle; it exists to make the decorator a
// drop-in WorldState without the embedding falling through silently.
func (c *CachingOracle) GetBalance(ctx context.Context, addr types.Address) (*big.Int, error) {
	return c.WorldState.GetBalance(ctx, addr)
}

func bloomfilterHash(v uint64) bloomfilter.Hashable {
	return u64Hashable(v)
}

type u64Hashable uint64

func (h u64Hashable) Write(buf []byte) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(h))
}
