package pattern

// ValidNationalID validates a 9-digit national ID with the
// parity-doubling checksum: digits at odd 0-indexed positions are
// doubled and digit-summed when above 9; the total must divide by 10.
func ValidNationalID(id string) bool {
	if len(id) != 9 {
		return false
	}
	sum := 0
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
		d := int(id[i] - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d = d/10 + d%10
			}
		}
		sum += d
	}
	return sum%10 == 0
}

// ValidCardNumber strips separators and applies the standard Luhn
// check from the rightmost digit. Lengths outside [13,19] are
// rejected before the checksum runs.
func ValidCardNumber(card string) bool {
	digits := make([]int, 0, len(card))
	for i := 0; i < len(card); i++ {
		c := card[i]
		switch {
		case c == '-' || c == ' ':
			continue
		case c < '0' || c > '9':
			return false
		default:
			digits = append(digits, int(c-'0'))
		}
	}
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	for i := 0; i < len(digits); i++ {
		d := digits[len(digits)-1-i]
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}
