package internal

// StringHash returns a hash value for the given string value.
func StringHash(s string) (hash uint64) {
	// DJBX33A
	hash = 5381
	for _, b := range s {
		hash = ((hash << 5) + hash) + uint64(b)
	}
	return
}

// StringsHash combines the hash values of the given strings. The
// result depends on the order of the strings.
func StringsHash(s ...string) (hash uint64) {
	hash = 5381
	for _, str := range s {
		hash = ((hash << 5) + hash) ^ StringHash(str)
	}
	return
}
