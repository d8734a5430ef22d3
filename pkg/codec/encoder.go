package codec

import (
	"sync"

	"github.com/fxamacker/cbor/v2"
)

var (
	encOnce sync.Once
	encMode cbor.EncMode
	encErr  error
)

// Encoder returns the process-wide deterministic CBOR encoding mode.
// Core deterministic encoding keeps frames byte-stable for identical
// payloads, which the snapshot store relies on.
func Encoder() (cbor.EncMode, error) {
	encOnce.Do(func() {
		opts := cbor.CoreDetEncOptions()
		opts.Time = cbor.TimeUnix
		encMode, encErr = opts.EncMode()
	})
	return encMode, encErr
}

// Marshal encodes v with the shared deterministic mode.
func Marshal(v any) ([]byte, error) {
	em, err := Encoder()
	if err != nil {
		return nil, err
	}
	return em.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}
