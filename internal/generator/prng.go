package generator

import (
	"hash/fnv"
	"time"
)

// Salts keep the draws for different purposes independent for the same hour.
const (
	saltWeather uint64 = iota + 1
	saltEfficiency
	saltLoadVariation
	saltApplianceTrigger
	saltApplianceChoice
	saltGridVariation
)

// mix is the splitmix64 finalizer.
func mix(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Unit returns a reproducible value in [0, 1) for key and salt.
// The same inputs always yield the same value, across processes and platforms.
func Unit(key, salt uint64) float64 {
	return float64(mix(key^mix(salt))>>11) / (1 << 53)
}

// SeedFor derives a stable seed from an identifier such as a device id or grid zone.
func SeedFor(id string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64()
}

// hourKey is the absolute hour index of t.
func hourKey(t time.Time) uint64 {
	return uint64(t.Unix() / 3600)
}
