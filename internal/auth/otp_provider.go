package auth

// OtpProvider defines the interface for OTP lifecycle operations
type OtpProvider interface {
	GenerateAndStore(identity string) (code string)
	Verify(identity, code string) bool
	GenerateToken(identity string) (string, error)
}
