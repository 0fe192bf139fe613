package phone

// Digits strips everything but decimal digits from a phone number.
func Digits(number string) string {
	out := make([]byte, 0, len(number))
	for i := 0; i < len(number); i++ {
		if number[i] >= '0' && number[i] <= '9' {
			out = append(out, number[i])
		}
	}
	return string(out)
}

// Last4 returns the last four digits of a phone number, or "" if the
// number has fewer than four digits.
func Last4(number string) string {
	d := Digits(number)
	if len(d) < 4 {
		return ""
	}
	return d[len(d)-4:]
}
