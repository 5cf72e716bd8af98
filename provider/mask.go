package provider

// MaskValue is the constant placeholder used when a credential is too short
// to mask safely.
const MaskValue = "***********"

// DefaultVisibleChars is the number of leading and trailing characters kept
// visible by Mask.
const DefaultVisibleChars = 4

// Mask returns a loggable form of a credential: the first and last
// visible characters with the middle elided. Credentials shorter than
// 2*visible+1 are fully masked with a constant placeholder so their length
// is not disclosed either. The middle segment of the real value never
// appears in the output.
func Mask(credential string, visible int) string {
	if visible <= 0 {
		visible = DefaultVisibleChars
	}
	if len(credential) < 2*visible+1 {
		return MaskValue
	}
	return credential[:visible] + "..." + credential[len(credential)-visible:]
}
