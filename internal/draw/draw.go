// Package draw derives the lottery outcome from a game's committed creation
// time and the administrator-posted entropy. Everything here is a pure
// function of its inputs; one-shot posting is enforced by the game record.
package draw

import (
	"encoding/binary"
	"fmt"
	"sort"

	"golang.org/x/crypto/sha3"
)

// Size is the number of values in a draw and of numbers on a ticket.
const Size = 6

// MinMaxNumber is the smallest number range that can hold Size distinct balls.
const MinMaxNumber = Size

const domainDraw = "lottochain/draw/v1"

// Draw is the six 64-bit values derived for a game.
type Draw [Size]uint64

// Derive hashes each entropy word together with the creation time:
//
//	v_i = LE64(SHA3-256(domain || LE64(creationTime) || LE64(entropy_i) || LE32(i))[:8])
func Derive(creationTime uint64, entropy [Size]uint64) Draw {
	var d Draw
	buf := make([]byte, 0, len(domainDraw)+8+8+4)
	for i := 0; i < Size; i++ {
		buf = buf[:0]
		buf = append(buf, domainDraw...)
		buf = binary.LittleEndian.AppendUint64(buf, creationTime)
		buf = binary.LittleEndian.AppendUint64(buf, entropy[i])
		buf = binary.LittleEndian.AppendUint32(buf, uint32(i))
		sum := sha3.Sum256(buf)
		d[i] = binary.LittleEndian.Uint64(sum[:8])
	}
	return d
}

// Balls maps the draw onto Size distinct numbers in 1..maxNumber, ranked
// ascending. A value that lands on an already drawn number is rehashed with
// a counter until it lands on a free one.
func (d Draw) Balls(maxNumber uint8) ([Size]uint8, error) {
	var out [Size]uint8
	if maxNumber < MinMaxNumber {
		return out, fmt.Errorf("maxNumber %d below %d", maxNumber, MinMaxNumber)
	}
	var taken [256]bool
	for i, v := range d {
		var counter uint32
		for {
			n := uint8(v%uint64(maxNumber)) + 1
			if !taken[n] {
				taken[n] = true
				out[i] = n
				break
			}
			v = rehash(v, counter)
			counter++
		}
	}
	sort.Slice(out[:], func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func rehash(v uint64, counter uint32) uint64 {
	buf := make([]byte, 0, len(domainDraw)+1+8+4)
	buf = append(buf, domainDraw...)
	buf = append(buf, '/')
	buf = binary.LittleEndian.AppendUint64(buf, v)
	buf = binary.LittleEndian.AppendUint32(buf, counter)
	sum := sha3.Sum256(buf)
	return binary.LittleEndian.Uint64(sum[:8])
}

// Matches counts how many of the ticket numbers were drawn.
func Matches(numbers, balls [Size]uint8) int {
	var drawn [256]bool
	for _, b := range balls {
		drawn[b] = true
	}
	n := 0
	for _, x := range numbers {
		if drawn[x] {
			n++
		}
	}
	return n
}

// ValidNumbers reports whether numbers are distinct and within 1..maxNumber.
func ValidNumbers(numbers [Size]uint8, maxNumber uint8) bool {
	var seen [256]bool
	for _, x := range numbers {
		if x == 0 || x > maxNumber || seen[x] {
			return false
		}
		seen[x] = true
	}
	return true
}
