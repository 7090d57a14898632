package vcdiff

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const propMinSuccessfulTests = 200

func newProps() (*gopter.Properties, int64) {
	parameters := gopter.DefaultTestParameters()
	seed := time.Now().UnixNano()
	parameters.MinSuccessfulTests = propMinSuccessfulTests
	parameters.Rng.Seed(seed)
	return gopter.NewProperties(parameters), seed
}

func runProps(t *testing.T, props *gopter.Properties, seed int64) {
	t.Helper()
	reporter := gopter.NewFormatedReporter(true, 160, os.Stdout)
	if !props.Run(reporter) {
		t.Errorf("property failed with initial seed: %d", seed)
	}
}

// genCompressibleBytes draws byte slices from a small alphabet, so random
// targets plausibly share substrings with the dictionary the way real
// input does; a uniform byte generator would make every match accidental.
func genCompressibleBytes(maxLen int) gopter.Gen {
	return gen.SliceOfN(maxLen, gen.IntRange(0, 4)).
		Map(func(vs []int) []byte {
			b := make([]byte, len(vs))
			for i, v := range vs {
				b[i] = "abcde"[v]
			}
			return b
		})
}

func genDictAndTarget() gopter.Gen {
	return gopter.CombineGens(
		genCompressibleBytes(40),
		genCompressibleBytes(60),
	).Map(func(vs []interface{}) [2][]byte {
		return [2][]byte{vs[0].([]byte), vs[1].([]byte)}
	})
}

// encodeGreedy is a minimal matcher used only to exercise the Encoder in
// these tests: at every target position it looks for the longest match of
// at least 4 bytes anywhere in dict||target-so-far, falling back to a
// single-byte ADD. It is not meant to produce good compression, only a
// realistic mix of ADD and COPY instructions.
func encodeGreedy(t *testing.T, dict, target []byte, interleaved bool) []byte {
	t.Helper()
	e := NewEncoder(interleaved)
	var buf bytes.Buffer
	mustErr(t, e.WriteHeader(&buf, FormatExtensions{Interleaved: interleaved}))
	mustErr(t, e.Init(len(dict)))

	produced := 0
	for produced < len(target) {
		here := len(dict) + produced
		bestLen, bestOff := 0, 0
		window := append(append([]byte{}, dict...), target[:produced]...)
		remaining := target[produced:]
		maxTry := len(remaining)
		if maxTry > 32 {
			maxTry = 32
		}
		for off := 0; off < here; off++ {
			l := 0
			for l < maxTry && off+l < len(window) && window[off+l] == remaining[l] {
				l++
			}
			if l > bestLen {
				bestLen, bestOff = l, off
			}
		}
		if bestLen >= 4 {
			mustErr(t, e.Copy(bestOff, bestLen))
			produced += bestLen
		} else {
			mustErr(t, e.Add(target[produced:produced+1]))
			produced++
		}
	}
	mustErr(t, e.Output(&buf))
	return buf.Bytes()
}

func TestPropRoundTripAnyDictAndTarget(t *testing.T) {
	props, seed := newProps()
	props.Property("decoding a greedily-encoded delta reproduces the target", prop.ForAll(
		func(pair [2][]byte) bool {
			dict, target := pair[0], pair[1]
			delta := encodeGreedy(t, dict, target, false)
			got := decodeAll(t, delta, dict, false)
			return bytes.Equal(got, target)
		},
		genDictAndTarget(),
	))
	runProps(t, props, seed)
}

func TestPropRoundTripInterleaved(t *testing.T) {
	props, seed := newProps()
	props.Property("the interleaved layout round-trips identically to the segregated one", prop.ForAll(
		func(pair [2][]byte) bool {
			dict, target := pair[0], pair[1]
			delta := encodeGreedy(t, dict, target, true)
			got := decodeAll(t, delta, dict, true)
			return bytes.Equal(got, target)
		},
		genDictAndTarget(),
	))
	runProps(t, props, seed)
}

func TestPropChunkedDecodeMatchesWholeDecode(t *testing.T) {
	props, seed := newProps()
	props.Property("feeding a delta in arbitrary chunk sizes produces the same target as one shot", prop.ForAll(
		func(pair [2][]byte, chunkSize uint8) bool {
			dict, target := pair[0], pair[1]
			delta := encodeGreedy(t, dict, target, false)
			n := int(chunkSize)%7 + 1

			d := NewDecoder(DecoderConfig{})
			if err := d.StartDecoding(dict); err != nil {
				return false
			}
			var out bytes.Buffer
			for i := 0; i < len(delta); i += n {
				end := i + n
				if end > len(delta) {
					end = len(delta)
				}
				if _, err := d.DecodeChunk(delta[i:end], &out); err != nil {
					return false
				}
			}
			if err := d.FinishDecoding(); err != nil {
				return false
			}
			return bytes.Equal(out.Bytes(), target)
		},
		genDictAndTarget(),
		gen.UInt8(),
	))
	runProps(t, props, seed)
}

func TestPropDeltaWindowSizeMatchesOutput(t *testing.T) {
	props, seed := newProps()
	props.Property("DeltaWindowSize predicts exactly how many bytes Output writes", prop.ForAll(
		func(pair [2][]byte) bool {
			dict, target := pair[0], pair[1]
			e := NewEncoder(false)
			var header bytes.Buffer
			if err := e.WriteHeader(&header, FormatExtensions{}); err != nil {
				return false
			}
			if err := e.Init(len(dict)); err != nil {
				return false
			}
			if len(target) > 0 {
				if err := e.Add(target); err != nil {
					return false
				}
			}
			predicted := e.DeltaWindowSize()
			var out bytes.Buffer
			if err := e.Output(&out); err != nil {
				return false
			}
			return out.Len() == predicted
		},
		genDictAndTarget(),
	))
	runProps(t, props, seed)
}

func TestPropChecksumMutationIsDetected(t *testing.T) {
	props, seed := newProps()
	props.Property("flipping a checksum byte makes the decoder reject the window", prop.ForAll(
		func(pair [2][]byte) bool {
			dict, target := pair[0], pair[1]
			if len(target) == 0 {
				return true // nothing to checksum meaningfully
			}
			e := NewEncoder(false)
			var buf bytes.Buffer
			if err := e.WriteHeader(&buf, FormatExtensions{Checksum: true}); err != nil {
				return false
			}
			if err := e.Init(len(dict)); err != nil {
				return false
			}
			if err := e.Add(target); err != nil {
				return false
			}
			e.AddChecksum(checksum(target) ^ 0x1) // deliberately wrong
			if err := e.Output(&buf); err != nil {
				return false
			}

			d := NewDecoder(DecoderConfig{})
			if err := d.StartDecoding(dict); err != nil {
				return false
			}
			var out bytes.Buffer
			_, err := d.DecodeChunk(buf.Bytes(), &out)
			_, ok := err.(*ChecksumError)
			return ok
		},
		genDictAndTarget(),
	))
	runProps(t, props, seed)
}

func TestPropAddressCacheRoundTripsForAnySequence(t *testing.T) {
	props, seed := newProps()
	props.Property("encodeAddress/decodeAddress round trip for any address sequence", prop.ForAll(
		func(deltas []uint8) bool {
			enc := newAddressCache(defaultNearSize, defaultSameSize)
			dec := newAddressCache(defaultNearSize, defaultSameSize)
			enc.init()
			dec.init()
			here := uint32(1)
			for _, d := range deltas {
				here += uint32(d) + 1
				addr := here - 1 - uint32(d)%here
				mode, value := enc.encodeAddress(addr, here)
				got, err := dec.decodeAddress(here, mode, value)
				if err != nil || got != addr {
					return false
				}
				enc.update(addr)
				dec.update(addr)
			}
			return true
		},
		gen.SliceOfN(20, gen.UInt8()),
	))
	runProps(t, props, seed)
}
