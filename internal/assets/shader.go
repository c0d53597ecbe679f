package assets

import (
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"
)

const spirvMagic = 0x07230203

// ReadShader loads a precompiled SPIR-V blob from disk.
func ReadShader(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", path)
	}

	code, err := BytesToBytecode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", path)
	}

	return code, nil
}

func BytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Newf("spir-v blob length %d is not a positive multiple of 4", len(b))
	}

	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}

	if byteCode[0] != spirvMagic {
		return nil, errors.Newf("bad spir-v magic %#08x", byteCode[0])
	}

	return byteCode, nil
}
