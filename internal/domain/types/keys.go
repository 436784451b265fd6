package types

// KeyPair is the local RSA identity. PublicKey doubles as the identity token
// handed to friends; PrivateKey is PKCS#8 PEM and never leaves the state file.
type KeyPair struct {
	PublicKey  Token  `json:"public_key"`
	PrivateKey string `json:"private_key"`
}
