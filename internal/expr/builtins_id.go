package expr

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jn-toolkit/jn/internal/record"
)

// idState holds the process-local state backing the ID-generating
// built-ins.
type idState struct {
	seq      int64
	xidOnce  sync.Once
	xidMach  [3]byte
	xidCount uint32
}

func newIDState() *idState {
	return &idState{}
}

func (s *idState) nextSeq() int64 {
	return atomic.AddInt64(&s.seq, 1) - 1
}

func (s *idState) xidMachine() [3]byte {
	s.xidOnce.Do(func() {
		var b [3]byte
		_, _ = rand.Read(b[:])
		s.xidMach = b
	})
	return s.xidMach
}

func (s *idState) nextXidCounter() uint32 {
	return atomic.AddUint32(&s.xidCount, 1) - 1
}

// callID dispatches the ID-generator built-ins. None read their input;
// each takes no arguments.
func callID(ctx *Context, name string) (EvalResult, bool, error) {
	switch name {
	case "uuid":
		v, err := uuidV4()
		if err != nil {
			return EvalResult{}, true, err
		}
		return one(record.String(v)), true, nil
	case "uuid7":
		v, err := uuidV7()
		if err != nil {
			return EvalResult{}, true, err
		}
		return one(record.String(v)), true, nil
	case "ulid":
		v, err := ulid()
		if err != nil {
			return EvalResult{}, true, err
		}
		return one(record.String(v)), true, nil
	case "xid":
		return one(record.String(xid(ctx.ids))), true, nil
	case "nanoid":
		v, err := nanoid(21)
		if err != nil {
			return EvalResult{}, true, err
		}
		return one(record.String(v)), true, nil
	case "shortid":
		v, err := nanoid(10)
		if err != nil {
			return EvalResult{}, true, err
		}
		return one(record.String(v)), true, nil
	case "sid":
		return one(record.String(fmt.Sprintf("s_%012x", ctx.ids.nextSeq()))), true, nil
	case "seq":
		return one(record.Int(ctx.ids.nextSeq())), true, nil
	case "random":
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			return EvalResult{}, true, err
		}
		var v uint64
		for _, c := range b {
			v = v<<8 | uint64(c)
		}
		return one(record.Float(float64(v) / float64(^uint64(0)))), true, nil
	default:
		return EvalResult{}, false, nil
	}
}

const hexDigits = "0123456789abcdef"

func uuidV4() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return formatUUID(b), nil
}

// uuidV7 embeds a 48-bit millisecond timestamp in the first 6 bytes,
// per RFC 9562, so lexical order tracks creation order.
func uuidV7() (string, error) {
	var b [16]byte
	ms := uint64(time.Now().UnixMilli())
	b[0] = byte(ms >> 40)
	b[1] = byte(ms >> 32)
	b[2] = byte(ms >> 24)
	b[3] = byte(ms >> 16)
	b[4] = byte(ms >> 8)
	b[5] = byte(ms)
	if _, err := rand.Read(b[6:]); err != nil {
		return "", err
	}
	b[6] = (b[6] & 0x0f) | 0x70
	b[8] = (b[8] & 0x3f) | 0x80
	return formatUUID(b), nil
}

func formatUUID(b [16]byte) string {
	s := hex.EncodeToString(b[:])
	return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:32]
}

var crockford = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

// ulid encodes a 48-bit millisecond timestamp followed by 80 random
// bits using Crockford base32, matching the canonical ULID layout.
func ulid() (string, error) {
	var b [16]byte
	ms := uint64(time.Now().UnixMilli())
	b[0] = byte(ms >> 40)
	b[1] = byte(ms >> 32)
	b[2] = byte(ms >> 24)
	b[3] = byte(ms >> 16)
	b[4] = byte(ms >> 8)
	b[5] = byte(ms)
	if _, err := rand.Read(b[6:]); err != nil {
		return "", err
	}
	return crockford.EncodeToString(b[:]), nil
}

// xid reproduces the mongo xid layout: 4-byte timestamp, 3-byte
// process-local machine ID, 3-byte monotonic counter, encoded base32.
func xid(s *idState) string {
	var b [10]byte
	ts := uint32(time.Now().Unix())
	b[0] = byte(ts >> 24)
	b[1] = byte(ts >> 16)
	b[2] = byte(ts >> 8)
	b[3] = byte(ts)
	mach := s.xidMachine()
	copy(b[4:7], mach[:])
	c := s.nextXidCounter()
	b[7] = byte(c >> 16)
	b[8] = byte(c >> 8)
	b[9] = byte(c)
	return crockford.EncodeToString(b[:])
}

const nanoAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

func nanoid(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, size)
	for i, c := range buf {
		out[i] = nanoAlphabet[int(c)%len(nanoAlphabet)]
	}
	return string(out), nil
}
