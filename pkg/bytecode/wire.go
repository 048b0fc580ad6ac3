package bytecode

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
	errors "gopkg.in/src-d/go-errors.v1"
)

// FormatVersion is the current serialized chunk format version.
// Increment when making incompatible changes to the format.
const FormatVersion uint16 = 1

// Magic identifies a serialized chunk: "QLBC" (quill bytecode).
const Magic = "QLBC"

var (
	// ErrBadMagic is returned when the data is not a serialized chunk.
	ErrBadMagic = errors.NewKind("bytecode: bad magic %q")
	// ErrUnsupportedVersion is returned for envelopes written by a newer format.
	ErrUnsupportedVersion = errors.NewKind("bytecode: unsupported format version %d (want %d)")
	// ErrDigestMismatch is returned when the payload does not hash to the
	// digest recorded in the envelope.
	ErrDigestMismatch = errors.NewKind("bytecode: payload digest mismatch")
	// ErrDecode wraps CBOR decoding failures.
	ErrDecode = errors.NewKind("bytecode: decode %s")
)

// envelope is the outer record written to disk. Payload holds the
// CBOR-encoded wireChunk and Digest its blake3-256 hash.
type envelope struct {
	Magic   string `cbor:"1,keyasint"`
	Version uint16 `cbor:"2,keyasint"`
	Digest  []byte `cbor:"3,keyasint"`
	Payload []byte `cbor:"4,keyasint"`
}

type wireChunk struct {
	Code      []wireInstruction `cbor:"1,keyasint"`
	Lines     []int             `cbor:"2,keyasint"`
	Constants []wireValue       `cbor:"3,keyasint"`
}

type wireInstruction struct {
	_       struct{} `cbor:",toarray"`
	Op      uint8
	Operand int
}

type wireValue struct {
	_      struct{} `cbor:",toarray"`
	Type   uint8
	Number float64
}

// Canonical mode keeps the encoding deterministic, so identical chunks
// produce identical bytes and digests.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a chunk into a QLBC envelope.
func Marshal(c *Chunk) ([]byte, error) {
	wc := wireChunk{
		Code:      make([]wireInstruction, len(c.Code)),
		Lines:     c.Lines,
		Constants: make([]wireValue, len(c.Constants)),
	}
	for i, ins := range c.Code {
		wc.Code[i] = wireInstruction{Op: uint8(ins.Op), Operand: ins.Operand}
	}
	for i, v := range c.Constants {
		wc.Constants[i] = wireValue{Type: uint8(v.typ), Number: v.num}
	}

	payload, err := cborEncMode.Marshal(&wc)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal chunk: %w", err)
	}
	digest := blake3.Sum256(payload)

	return cborEncMode.Marshal(&envelope{
		Magic:   Magic,
		Version: FormatVersion,
		Digest:  digest[:],
		Payload: payload,
	})
}

// Unmarshal decodes a QLBC envelope, verifies its digest and validates the
// resulting chunk.
func Unmarshal(data []byte) (*Chunk, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, ErrDecode.Wrap(err, "envelope")
	}
	if env.Magic != Magic {
		return nil, ErrBadMagic.New(env.Magic)
	}
	if env.Version != FormatVersion {
		return nil, ErrUnsupportedVersion.New(env.Version, FormatVersion)
	}
	digest := blake3.Sum256(env.Payload)
	if !bytes.Equal(digest[:], env.Digest) {
		return nil, ErrDigestMismatch.New()
	}

	var wc wireChunk
	if err := cbor.Unmarshal(env.Payload, &wc); err != nil {
		return nil, ErrDecode.Wrap(err, "payload")
	}

	c := &Chunk{
		Code:      make([]Instruction, len(wc.Code)),
		Lines:     wc.Lines,
		Constants: make([]Value, len(wc.Constants)),
	}
	if c.Lines == nil {
		c.Lines = []int{}
	}
	for i, wi := range wc.Code {
		c.Code[i] = Instruction{Op: Opcode(wi.Op), Operand: wi.Operand}
	}
	for i, wv := range wc.Constants {
		if ValueType(wv.Type) != ValNumber {
			return nil, ErrInvalidChunk.New(fmt.Sprintf("constant %d has unknown type %d", i, wv.Type))
		}
		c.Constants[i] = NumberValue(wv.Number)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
