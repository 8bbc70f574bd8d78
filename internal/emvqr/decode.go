package emvqr

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrMalformed = errors.New("emvqr: malformed payload")
	ErrChecksum  = errors.New("emvqr: checksum mismatch")
)

// Verify checks that payload ends with a checksum field matching its contents.
func Verify(payload string) error {
	if len(payload) < 8 {
		return fmt.Errorf("%w: too short", ErrMalformed)
	}
	body, crc := payload[:len(payload)-4], payload[len(payload)-4:]
	if body[len(body)-4:] != TagCRC+"04" {
		return fmt.Errorf("%w: missing checksum field", ErrMalformed)
	}
	if want := checksumHex(body); crc != want {
		return fmt.Errorf("%w: got %s, want %s", ErrChecksum, crc, want)
	}
	return nil
}

// Decode verifies payload and parses it back into fields. Templates (26-51
// and 62) are expanded into Sub; the checksum field is not returned.
func Decode(payload string) ([]Field, error) {
	if err := Verify(payload); err != nil {
		return nil, err
	}
	return parseFields([]rune(payload[:len(payload)-8]), true)
}

func parseFields(rs []rune, top bool) ([]Field, error) {
	var fields []Field
	for i := 0; i < len(rs); {
		if len(rs)-i < 4 {
			return nil, fmt.Errorf("%w: truncated header at %d", ErrMalformed, i)
		}
		tag := string(rs[i : i+2])
		n, err := strconv.Atoi(string(rs[i+2 : i+4]))
		if err != nil {
			return nil, fmt.Errorf("%w: bad length for tag %s", ErrMalformed, tag)
		}
		i += 4
		if len(rs)-i < n {
			return nil, fmt.Errorf("%w: tag %s overruns payload", ErrMalformed, tag)
		}
		value := rs[i : i+n]
		i += n

		f := Field{Tag: tag}
		if top && isTemplate(tag) {
			if f.Sub, err = parseFields(value, false); err != nil {
				return nil, err
			}
		} else {
			f.Value = string(value)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func isTemplate(tag string) bool {
	n, err := strconv.Atoi(tag)
	if err != nil {
		return false
	}
	return (n >= 26 && n <= 51) || n == 62
}
