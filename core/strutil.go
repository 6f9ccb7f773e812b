package core

// appendInt appends the decimal form of n to buf without going through fmt.
// Keeps string building usable from step loops on small targets.
func appendInt(buf []byte, n int) []byte {
	if n == 0 {
		return append(buf, '0')
	}
	if n < 0 {
		buf = append(buf, '-')
		n = -n
	}

	var tmp [20]byte
	pos := len(tmp)
	for n > 0 {
		pos--
		tmp[pos] = byte('0' + n%10)
		n /= 10
	}
	return append(buf, tmp[pos:]...)
}

// appendHex appends v as 0x-prefixed hexadecimal with at least digits digits.
func appendHex(buf []byte, v uint32, digits int) []byte {
	const hexdigits = "0123456789abcdef"
	buf = append(buf, '0', 'x')

	var tmp [8]byte
	pos := len(tmp)
	for v > 0 || len(tmp)-pos < digits {
		pos--
		tmp[pos] = hexdigits[v&0xf]
		v >>= 4
		if pos == 0 {
			break
		}
	}
	return append(buf, tmp[pos:]...)
}

// itoa converts an integer to a string
func itoa(n int) string {
	return string(appendInt(make([]byte, 0, 12), n))
}
