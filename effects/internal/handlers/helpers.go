package handlers

import (
	"github.com/cespare/xxhash/v2"
)

func getIndexByHash(key string, numChs int) int {
	switch numChs {
	case 0:
		panic("number of channels cannot be 0")
	case 1:
		return 0
	default:
		return int(xxhash.Sum64String(key) % uint64(numChs))
	}
}
