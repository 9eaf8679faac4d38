package repository

// ICipher encrypts platform tokens at rest.
type ICipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(enc string) (string, error)
}
