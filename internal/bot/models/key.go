package models

// Key is an access key issued by an Outline server. KeyID is unique only
// within ServerAddress.
type Key struct {
	ServerAddress string
	KeyID         int64
	Name          string
	Password      string
	Port          int
	Method        string
	AccessURL     string
	UsedBytes     int64
}

// SameAs reports whether every field of k equals o.
func (k *Key) SameAs(o *Key) bool {
	return *k == *o
}

// DisplayName is the key name, or a placeholder for unnamed keys.
func (k *Key) DisplayName() string {
	if k.Name != "" {
		return k.Name
	}
	return "Key id " + itoa(k.KeyID)
}
