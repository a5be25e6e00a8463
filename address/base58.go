package address

import (
	"fmt"

	"btctx.mleku.dev/p256k1"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// base58Index maps an ASCII byte to its digit value, or 0xFF.
var base58Index = func() [256]byte {
	var idx [256]byte
	for i := range idx {
		idx[i] = 0xFF
	}
	for i := 0; i < len(base58Alphabet); i++ {
		idx[base58Alphabet[i]] = byte(i)
	}
	return idx
}()

// Base58Encode encodes b, keeping each leading zero byte as a '1'.
func Base58Encode(b []byte) string {
	zeros := 0
	for zeros < len(b) && b[zeros] == 0 {
		zeros++
	}

	// log(256)/log(58) < 1.37
	digits := make([]byte, (len(b)-zeros)*138/100+1)
	size := 0
	for _, v := range b[zeros:] {
		carry := int(v)
		i := 0
		for j := len(digits) - 1; (carry != 0 || i < size) && j >= 0; j-- {
			carry += 256 * int(digits[j])
			digits[j] = byte(carry % 58)
			carry /= 58
			i++
		}
		size = i
	}

	start := len(digits) - size
	for start < len(digits) && digits[start] == 0 {
		start++
	}

	out := make([]byte, zeros, zeros+len(digits)-start)
	for i := range out {
		out[i] = '1'
	}
	for _, d := range digits[start:] {
		out = append(out, base58Alphabet[d])
	}
	return string(out)
}

// Base58Decode decodes s, mapping each leading '1' to a zero byte.
func Base58Decode(s string) ([]byte, error) {
	zeros := 0
	for zeros < len(s) && s[zeros] == '1' {
		zeros++
	}

	// log(58)/log(256) < 0.733
	bin := make([]byte, (len(s)-zeros)*733/1000+1)
	size := 0
	for k := zeros; k < len(s); k++ {
		carry := int(base58Index[s[k]])
		if carry == 0xFF {
			return nil, fmt.Errorf("%w: %q at %d", ErrInvalidCharacter, s[k], k)
		}
		i := 0
		for j := len(bin) - 1; (carry != 0 || i < size) && j >= 0; j-- {
			carry += 58 * int(bin[j])
			bin[j] = byte(carry % 256)
			carry /= 256
			i++
		}
		size = i
	}

	start := len(bin) - size
	for start < len(bin) && bin[start] == 0 {
		start++
	}
	out := make([]byte, zeros, zeros+len(bin)-start)
	return append(out, bin[start:]...), nil
}

// Base58CheckEncode encodes version || payload || checksum where checksum
// is the first four bytes of dSHA256(version || payload).
func Base58CheckEncode(version byte, payload []byte) string {
	b := make([]byte, 0, 1+len(payload)+4)
	b = append(b, version)
	b = append(b, payload...)
	sum := p256k1.DoubleSHA256(b)
	return Base58Encode(append(b, sum[:4]...))
}

// Base58CheckDecode reverses Base58CheckEncode.
func Base58CheckDecode(s string) (version byte, payload []byte, err error) {
	b, err := Base58Decode(s)
	if err != nil {
		return 0, nil, err
	}
	if len(b) < 5 {
		return 0, nil, ErrInvalidLength
	}
	body, check := b[:len(b)-4], b[len(b)-4:]
	sum := p256k1.DoubleSHA256(body)
	if sum[0] != check[0] || sum[1] != check[1] || sum[2] != check[2] || sum[3] != check[3] {
		return 0, nil, ErrInvalidChecksum
	}
	return body[0], body[1:], nil
}
